package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all runtime configuration loaded from environment variables.
type Config struct {
	AppPort string
	AppEnv  string

	AWSRegion      string
	AWSEndpointURL string // empty in prod, set to LocalStack URL in dev
	AWSAccessKeyID string
	AWSSecretKey   string

	DynamoTableOTPRecords string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	SMTPHost     string
	SMTPPort     string
	SMTPFrom     string
	SMTPUsername string
	SMTPPassword string

	SNSRegion string

	// ClientSecretKey authenticates callers of the OTP endpoints via the
	// X-Client-Secret header.
	ClientSecretKey string

	// Proof-token signing keys are optional; when either file is missing the
	// verify response simply omits the token.
	ProofPrivateKeyPath string
	ProofPublicKeyPath  string
	ProofTokenExpiry    time.Duration

	OTP OTPConfig

	AllowedOrigins []string
}

// OTPConfig carries the core lifecycle settings. CacheTTL bounds live
// verifiability; Retention bounds the durable audit record. The two are
// configured independently and may drift.
type OTPConfig struct {
	Length    int
	CacheTTL  time.Duration
	Retention time.Duration
	MaxActive int
}

const (
	MinOTPLength = 4
	MaxOTPLength = 10
)

// Load reads all configuration from environment variables.
func Load() *Config {
	return &Config{
		AppPort: getEnv("APP_PORT", "3000"),
		AppEnv:  getEnv("APP_ENV", "development"),

		AWSRegion:      getEnv("AWS_REGION", "us-east-1"),
		AWSEndpointURL: getEnv("AWS_ENDPOINT_URL", ""),
		AWSAccessKeyID: getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretKey:   getEnv("AWS_SECRET_ACCESS_KEY", ""),

		DynamoTableOTPRecords: getEnv("DYNAMO_TABLE_OTP_RECORDS", "otp_records"),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		SMTPHost:     getEnv("SMTP_HOST", "localhost"),
		SMTPPort:     getEnv("SMTP_PORT", "1025"),
		SMTPFrom:     getEnv("SMTP_FROM", "noreply@example.com"),
		SMTPUsername: getEnv("SMTP_USERNAME", ""),
		SMTPPassword: getEnv("SMTP_PASSWORD", ""),

		SNSRegion: getEnv("SNS_REGION", "us-east-1"),

		ClientSecretKey: getEnv("CLIENT_SECRET_KEY", ""),

		ProofPrivateKeyPath: getEnv("PROOF_PRIVATE_KEY_PATH", "./private_key.pem"),
		ProofPublicKeyPath:  getEnv("PROOF_PUBLIC_KEY_PATH", "./public_key.pem"),
		ProofTokenExpiry:    time.Duration(getEnvInt("PROOF_TOKEN_EXPIRY_MINUTES", 15)) * time.Minute,

		OTP: OTPConfig{
			Length:    getEnvInt("OTP_LENGTH", 6),
			CacheTTL:  time.Duration(getEnvInt("OTP_EXPIRY_SECONDS", 300)) * time.Second,
			Retention: time.Duration(getEnvInt("OTP_RETENTION_MINUTES", 60)) * time.Minute,
			MaxActive: getEnvInt("OTP_MAX_ACTIVE", 3),
		},

		AllowedOrigins: strings.Split(getEnv("ALLOWED_ORIGINS", "*"), ","),
	}
}

// Validate checks the loaded configuration once at startup so that
// misconfiguration fails the process instead of surfacing mid-request.
func (c *Config) Validate() error {
	if c.OTP.Length < MinOTPLength || c.OTP.Length > MaxOTPLength {
		return fmt.Errorf("OTP_LENGTH %d must be between %d and %d", c.OTP.Length, MinOTPLength, MaxOTPLength)
	}
	if c.OTP.CacheTTL <= 0 {
		return fmt.Errorf("OTP_EXPIRY_SECONDS must be positive")
	}
	if c.OTP.Retention <= 0 {
		return fmt.Errorf("OTP_RETENTION_MINUTES must be positive")
	}
	if c.OTP.MaxActive < 1 {
		return fmt.Errorf("OTP_MAX_ACTIVE must be at least 1")
	}
	if c.ClientSecretKey == "" {
		return fmt.Errorf("CLIENT_SECRET_KEY is required")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

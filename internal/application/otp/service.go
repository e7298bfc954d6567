package otp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-otp-api/internal/config"
	"github.com/go-otp-api/internal/domain"
	"github.com/go-otp-api/internal/pkg/otpgen"
)

// RecordStore is the durable audit store. It is written on every issue and
// updated on verify, but never decides whether a code is currently valid.
type RecordStore interface {
	Create(ctx context.Context, rec *domain.OTPRecord) error
	FindByID(ctx context.Context, verificationID string) (*domain.OTPRecord, error)
	// MarkVerified returns (nil, nil) when the record is missing or already
	// verified; that outcome is a no-op, not an error.
	MarkVerified(ctx context.Context, verificationID string) (*domain.OTPRecord, error)
	CountActive(ctx context.Context, recipient string, now time.Time) (int, error)
}

// CodeCache is the ephemeral store holding the live copy of each code. Its
// entries are the sole authority for "verification currently possible".
type CodeCache interface {
	Set(ctx context.Context, verificationID string, entry *domain.CacheEntry, ttl time.Duration) error
	// Consume atomically deletes the entry when code matches. It returns
	// domain.ErrNotFound when the entry is absent and domain.ErrIncorrectCode
	// on mismatch, leaving the entry in place.
	Consume(ctx context.Context, verificationID, code string) (*domain.CacheEntry, error)
	Exists(ctx context.Context, verificationID string) (bool, error)
	TTL(ctx context.Context, verificationID string) (time.Duration, error)
}

// EmailSender delivers a code over email. Any non-nil error is total
// failure; there is no partial-success concept.
type EmailSender interface {
	SendCode(ctx context.Context, to, code, subject string) error
}

// SMSSender delivers a code over SMS.
type SMSSender interface {
	SendCode(ctx context.Context, to, code string) error
}

// VerifyResult is returned on successful verification. Recipient comes from
// the consumed cache entry, not the durable record.
type VerifyResult struct {
	Recipient string
	Channel   domain.Channel
	Verified  bool
}

// StatusResult reports the live state of a verification id. Exists and
// ExpiresIn reflect the cache only; Verified comes from the durable record
// and defaults to false when that record cannot be read.
type StatusResult struct {
	Exists    bool
	ExpiresIn time.Duration
	Verified  bool
}

// Service is the OTP lifecycle manager: it owns issuance, throttling,
// single-use verification, and all cross-store consistency decisions.
type Service interface {
	Issue(ctx context.Context, recipient string, channel domain.Channel, subject string) (string, error)
	Verify(ctx context.Context, verificationID, code string) (*VerifyResult, error)
	Status(ctx context.Context, verificationID string) (*StatusResult, error)
	CanIssue(ctx context.Context, recipient string) (bool, error)
}

// ServiceDeps carries the injected collaborators. GenerateCode, GenerateID
// and Now default to the production implementations when nil.
type ServiceDeps struct {
	Records RecordStore
	Cache   CodeCache
	Mailer  EmailSender
	SMS     SMSSender
	OTP     config.OTPConfig

	GenerateCode func(length int) (string, error)
	GenerateID   func() string
	Now          func() time.Time
}

type service struct {
	records RecordStore
	cache   CodeCache
	mailer  EmailSender
	sms     SMSSender
	cfg     config.OTPConfig

	genCode func(int) (string, error)
	genID   func() string
	now     func() time.Time
}

func NewService(deps ServiceDeps) Service {
	s := &service{
		records: deps.Records,
		cache:   deps.Cache,
		mailer:  deps.Mailer,
		sms:     deps.SMS,
		cfg:     deps.OTP,
		genCode: deps.GenerateCode,
		genID:   deps.GenerateID,
		now:     deps.Now,
	}
	if s.genCode == nil {
		s.genCode = otpgen.Code
	}
	if s.genID == nil {
		s.genID = otpgen.VerificationID
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// Issue generates, delivers, and stores a new code for the recipient.
// Ordering is deliberate: throttle check, generate, dispatch, cache write,
// durable write. A failed dispatch creates no state at all. A store failure
// after a successful dispatch propagates to the caller — the code was
// delivered but is not verifiable, an accepted inconsistency window.
func (s *service) Issue(ctx context.Context, recipient string, channel domain.Channel, subject string) (string, error) {
	if !channel.Valid() {
		return "", fmt.Errorf("unknown channel %q: %w", channel, domain.ErrBadRequest)
	}
	recipient = domain.NormalizeRecipient(recipient)

	active, err := s.records.CountActive(ctx, recipient, s.now())
	if err != nil {
		return "", fmt.Errorf("count active otps: %w", err)
	}
	if active >= s.cfg.MaxActive {
		return "", fmt.Errorf("recipient has %d active codes: %w", active, domain.ErrThrottled)
	}

	code, err := s.genCode(s.cfg.Length)
	if err != nil {
		return "", err
	}
	verificationID := s.genID()

	if err := s.dispatch(ctx, recipient, channel, code, subject); err != nil {
		slog.Warn("otp delivery failed", "recipient", recipient, "channel", channel, "err", err)
		return "", fmt.Errorf("send otp via %s: %w", channel, domain.ErrDeliveryFailed)
	}

	entry := &domain.CacheEntry{Code: code, Recipient: recipient, Channel: channel}
	if err := s.cache.Set(ctx, verificationID, entry, s.cfg.CacheTTL); err != nil {
		return "", fmt.Errorf("cache otp: %w", err)
	}

	now := s.now()
	rec := &domain.OTPRecord{
		VerificationID: verificationID,
		Recipient:      recipient,
		Code:           code,
		Channel:        channel,
		CreatedAt:      now,
		ExpiresAt:      now.Add(s.cfg.Retention).Unix(),
	}
	if err := s.records.Create(ctx, rec); err != nil {
		return "", fmt.Errorf("store otp record: %w", err)
	}

	slog.Info("otp issued", "verification_id", verificationID, "recipient", recipient, "channel", channel)
	return verificationID, nil
}

// Verify consumes the cached entry when the presented code matches. The
// cache deletion closes the replay window and is the authoritative success
// signal; the durable verified-flag update is best-effort and its outcome
// never turns a success into a failure.
func (s *service) Verify(ctx context.Context, verificationID, code string) (*VerifyResult, error) {
	entry, err := s.cache.Consume(ctx, verificationID, code)
	if err != nil {
		switch {
		case isNotFound(err):
			return nil, fmt.Errorf("verification %s: %w", verificationID, domain.ErrInvalidOrExpired)
		case isIncorrectCode(err):
			slog.Warn("incorrect otp presented", "verification_id", verificationID)
			return nil, fmt.Errorf("verification %s: %w", verificationID, domain.ErrIncorrectCode)
		default:
			return nil, fmt.Errorf("consume otp: %w", err)
		}
	}

	if _, err := s.records.MarkVerified(ctx, verificationID); err != nil {
		slog.Warn("failed to mark otp record verified", "verification_id", verificationID, "err", err)
	}

	slog.Info("otp verified", "verification_id", verificationID, "recipient", entry.Recipient)
	return &VerifyResult{Recipient: entry.Recipient, Channel: entry.Channel, Verified: true}, nil
}

// Status reports cache existence and remaining TTL, plus the durable
// verified flag. A durable-store miss or failure degrades to verified=false
// rather than failing the query; cache errors still propagate.
func (s *service) Status(ctx context.Context, verificationID string) (*StatusResult, error) {
	exists, err := s.cache.Exists(ctx, verificationID)
	if err != nil {
		return nil, fmt.Errorf("check otp existence: %w", err)
	}
	if !exists {
		return &StatusResult{Exists: false}, nil
	}

	ttl, err := s.cache.TTL(ctx, verificationID)
	if err != nil {
		return nil, fmt.Errorf("read otp ttl: %w", err)
	}
	if ttl < 0 {
		ttl = 0
	}

	verified := false
	if rec, err := s.records.FindByID(ctx, verificationID); err != nil {
		if !isNotFound(err) {
			slog.Warn("failed to read otp record for status", "verification_id", verificationID, "err", err)
		}
	} else {
		verified = rec.Verified
	}

	return &StatusResult{Exists: true, ExpiresIn: ttl, Verified: verified}, nil
}

// CanIssue is the throttle pre-check, usable independently of Issue.
func (s *service) CanIssue(ctx context.Context, recipient string) (bool, error) {
	recipient = domain.NormalizeRecipient(recipient)
	active, err := s.records.CountActive(ctx, recipient, s.now())
	if err != nil {
		return false, fmt.Errorf("count active otps: %w", err)
	}
	return active < s.cfg.MaxActive, nil
}

func isNotFound(err error) bool      { return errors.Is(err, domain.ErrNotFound) }
func isIncorrectCode(err error) bool { return errors.Is(err, domain.ErrIncorrectCode) }

func (s *service) dispatch(ctx context.Context, recipient string, channel domain.Channel, code, subject string) error {
	switch channel {
	case domain.ChannelEmail:
		if s.mailer == nil {
			return fmt.Errorf("email sender not configured")
		}
		return s.mailer.SendCode(ctx, recipient, code, subject)
	case domain.ChannelSMS:
		if s.sms == nil {
			return fmt.Errorf("sms sender not configured")
		}
		return s.sms.SendCode(ctx, recipient, code)
	}
	return fmt.Errorf("unknown channel %q", channel)
}

package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-otp-api/internal/config"
	"github.com/go-otp-api/internal/infrastructure/cache"
	"github.com/go-otp-api/internal/infrastructure/dynamo"
	jwtinfra "github.com/go-otp-api/internal/infrastructure/jwt"
	"github.com/go-otp-api/internal/infrastructure/smtp"
	"github.com/go-otp-api/internal/infrastructure/sns"
	transporthttp "github.com/go-otp-api/internal/transport/http"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Info("no .env file found, reading from environment")
	}

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", "err", err)
		os.Exit(1)
	}

	// Bootstrap the DynamoDB audit table (creates it if it doesn't exist).
	dynamoClient := dynamo.NewClient(cfg)
	dynamo.Bootstrap(context.Background(), dynamoClient, cfg.DynamoTableOTPRecords)

	redisClient := cache.NewClient(cfg)
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		slog.Warn("redis not reachable at startup", "addr", cfg.RedisAddr, "err", err)
	}

	// Proof-token provider (optional — graceful fallback if keys are missing).
	var proofProvider *jwtinfra.Provider
	if p, err := jwtinfra.NewProvider(cfg); err == nil {
		proofProvider = p
	} else {
		slog.Warn("proof-token provider not available", "err", err)
	}

	mailer := smtp.NewMailer(cfg)

	// SNS SMS sender (optional — graceful fallback).
	var smsSender sns.SMSSender
	if sender, err := sns.NewSender(cfg); err == nil {
		smsSender = sender
	} else {
		slog.Warn("SNS sender not available", "err", err)
	}

	deps := &transporthttp.Deps{
		Records:       dynamo.NewRecordRepo(dynamoClient, cfg.DynamoTableOTPRecords),
		Cache:         cache.NewStore(redisClient),
		Mailer:        mailer,
		SMS:           smsSender,
		ProofProvider: proofProvider,
	}

	router := transporthttp.NewRouter(cfg, deps)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.AppPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("server starting", "port", cfg.AppPort, "env", cfg.AppEnv)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "err", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("forced shutdown", "err", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}

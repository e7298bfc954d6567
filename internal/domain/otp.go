package domain

import (
	"strings"
	"time"
)

// Channel is the delivery channel for a one-time passcode.
type Channel string

const (
	ChannelEmail Channel = "email"
	ChannelSMS   Channel = "sms"
)

// Valid reports whether c is one of the supported channels.
func (c Channel) Valid() bool {
	return c == ChannelEmail || c == ChannelSMS
}

// OTPRecord is the durable audit record written for every issued code.
// PK: verification_id. ExpiresAt doubles as the DynamoDB TTL attribute, so
// retention is enforced by the table's own expiry sweep — nothing deletes
// these records explicitly.
//
// Code is stored in clear to keep admin lookups possible; the live copy in
// the cache is the only one that can be consumed.
type OTPRecord struct {
	VerificationID string    `json:"verification_id" dynamodbav:"verification_id"`
	Recipient      string    `json:"recipient" dynamodbav:"recipient"`
	Code           string    `json:"code" dynamodbav:"code"`
	Channel        Channel   `json:"channel" dynamodbav:"channel"`
	CreatedAt      time.Time `json:"created_at" dynamodbav:"created_at"`
	ExpiresAt      int64     `json:"expires_at" dynamodbav:"expires_at"` // TTL (Unix seconds)
	Verified       bool      `json:"verified" dynamodbav:"verified"`
}

// CacheEntry is the live, consumable copy of an issued code held in the
// ephemeral store under otp:<verificationID>. Its presence is the sole
// authority for "this code can still be verified".
type CacheEntry struct {
	Code      string  `json:"code"`
	Recipient string  `json:"recipient"`
	Channel   Channel `json:"channel"`
}

// NormalizeRecipient canonicalizes a contact address before it is used as a
// throttle key or stored: trimmed and lower-cased.
func NormalizeRecipient(recipient string) string {
	return strings.ToLower(strings.TrimSpace(recipient))
}

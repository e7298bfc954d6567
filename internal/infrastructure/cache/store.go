package cache

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-otp-api/internal/domain"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "otp:"

// Store holds the live, consumable copy of each issued code. An entry's
// presence under otp:<verificationID> is the single source of truth for
// "verification currently possible"; once it is gone — consumed or evicted
// by its TTL — the verification id is permanently unusable.
type Store struct {
	client *redis.Client
}

func NewStore(client *redis.Client) *Store {
	return &Store{client: client}
}

// Key returns the namespaced cache key for a verification id.
func Key(verificationID string) string {
	return keyPrefix + verificationID
}

// Set writes the entry with an absolute TTL.
func (s *Store) Set(ctx context.Context, verificationID string, entry *domain.CacheEntry, ttl time.Duration) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal cache entry: %w", err)
	}
	if err := s.client.Set(ctx, Key(verificationID), data, ttl).Err(); err != nil {
		return fmt.Errorf("cache set: %w", err)
	}
	return nil
}

// Get reads the entry without consuming it.
func (s *Store) Get(ctx context.Context, verificationID string) (*domain.CacheEntry, error) {
	data, err := s.client.Get(ctx, Key(verificationID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("cache entry %s: %w", verificationID, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("cache get: %w", err)
	}
	var entry domain.CacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("unmarshal cache entry: %w", err)
	}
	return &entry, nil
}

// Consume atomically deletes the entry if the presented code matches.
// A WATCH transaction guards the delete, so when two callers race on the
// same id with the correct code, exactly one wins; the loser retries and
// finds the key gone. A mismatch leaves the entry untouched so the caller
// may retry until the TTL elapses.
func (s *Store) Consume(ctx context.Context, verificationID, code string) (*domain.CacheEntry, error) {
	const maxRetries = 4
	key := Key(verificationID)

	for i := 0; i < maxRetries; i++ {
		var matched *domain.CacheEntry

		err := s.client.Watch(ctx, func(tx *redis.Tx) error {
			data, err := tx.Get(ctx, key).Bytes()
			if err != nil {
				return err
			}
			var entry domain.CacheEntry
			if err := json.Unmarshal(data, &entry); err != nil {
				return fmt.Errorf("unmarshal cache entry: %w", err)
			}

			// Exact-match on the full string; no numeric coercion, so
			// leading zeros are significant.
			if subtle.ConstantTimeCompare([]byte(entry.Code), []byte(code)) != 1 {
				return domain.ErrIncorrectCode
			}

			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Del(ctx, key)
				return nil
			})
			if err != nil {
				return err
			}
			matched = &entry
			return nil
		}, key)

		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("cache entry %s: %w", verificationID, domain.ErrNotFound)
		}
		if err != nil {
			return nil, err
		}
		return matched, nil
	}

	return nil, fmt.Errorf("cache entry %s: %w", verificationID, domain.ErrNotFound)
}

// Delete removes the entry, reporting whether it existed.
func (s *Store) Delete(ctx context.Context, verificationID string) (bool, error) {
	n, err := s.client.Del(ctx, Key(verificationID)).Result()
	if err != nil {
		return false, fmt.Errorf("cache delete: %w", err)
	}
	return n > 0, nil
}

// Exists reports whether the entry is present.
func (s *Store) Exists(ctx context.Context, verificationID string) (bool, error) {
	n, err := s.client.Exists(ctx, Key(verificationID)).Result()
	if err != nil {
		return false, fmt.Errorf("cache exists: %w", err)
	}
	return n == 1, nil
}

// TTL returns the entry's remaining time to live. Redis conventions pass
// through: a negative duration means the key is absent (or has no expiry).
func (s *Store) TTL(ctx context.Context, verificationID string) (time.Duration, error) {
	d, err := s.client.TTL(ctx, Key(verificationID)).Result()
	if err != nil {
		return 0, fmt.Errorf("cache ttl: %w", err)
	}
	return d, nil
}

package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dumu-tech/digibill/internal/core"
	"github.com/redis/go-redis/v9"
)

const (
	otpKeyPrefix = "otp:"
	otpTTL       = 5 * time.Minute
)

// OTPStore keeps one pending verification code per phone number in Redis.
// Writing again for the same phone overwrites the previous code and resets
// the expiry, so the latest requested code is always the one that counts.
type OTPStore struct {
	client *redis.Client
}

// NewOTPStore creates an OTP store backed by the given Redis URL
func NewOTPStore(redisURL, password string) (*OTPStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}
	if password != "" {
		opts.Password = password
	}
	return &OTPStore{client: redis.NewClient(opts)}, nil
}

// NewOTPStoreWithClient wraps an existing client (used by tests)
func NewOTPStoreWithClient(client *redis.Client) *OTPStore {
	return &OTPStore{client: client}
}

// Ping verifies connectivity at startup
func (s *OTPStore) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to ping redis: %w", err)
	}
	return nil
}

type otpRecord struct {
	Code      string    `json:"code"`
	CreatedAt time.Time `json:"created_at"`
}

// Put stores the code for a phone, replacing any pending code
func (s *OTPStore) Put(ctx context.Context, phone, code string) error {
	record := otpRecord{Code: code, CreatedAt: time.Now()}
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal otp record: %w", err)
	}
	if err := s.client.Set(ctx, otpKeyPrefix+phone, data, otpTTL).Err(); err != nil {
		return fmt.Errorf("failed to store otp: %w", err)
	}
	return nil
}

// Get retrieves the pending code for a phone; a missing or expired key
// maps to core.ErrNotFound
func (s *OTPStore) Get(ctx context.Context, phone string) (string, error) {
	data, err := s.client.Get(ctx, otpKeyPrefix+phone).Bytes()
	if errors.Is(err, redis.Nil) {
		return "", fmt.Errorf("no pending otp for %s: %w", phone, core.ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("failed to get otp: %w", err)
	}

	var record otpRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return "", fmt.Errorf("failed to unmarshal otp record: %w", err)
	}
	return record.Code, nil
}

// Delete removes the pending code after a successful verification
func (s *OTPStore) Delete(ctx context.Context, phone string) error {
	if err := s.client.Del(ctx, otpKeyPrefix+phone).Err(); err != nil {
		return fmt.Errorf("failed to delete otp: %w", err)
	}
	return nil
}

// ABOUTME: API key issuance and verification in the bk_<keyid>.<secret> format
// ABOUTME: Only the bcrypt hash of the secret part is ever stored

package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/bootgate/bootgate/internal/store"
)

const apiKeyPrefix = "bk_"

var (
	ErrMalformedAPIKey = errors.New("malformed api key")
	ErrInvalidAPIKey   = errors.New("invalid api key")
	ErrExpiredAPIKey   = errors.New("api key expired")
)

// KeyStore is the persistence surface for API key verification.
type KeyStore interface {
	CreateAPIKey(ctx context.Context, k *store.APIKey) error
	GetAPIKeyByKeyID(ctx context.Context, keyID string) (*store.APIKey, error)
	TouchAPIKey(ctx context.Context, id string, usedAt time.Time) error
}

// IssueAPIKey mints a new key for a principal and returns the plaintext,
// which is shown exactly once. expiresAt may be nil for a non-expiring key.
func IssueAPIKey(ctx context.Context, ks KeyStore, tenantKey, principalID, name string, expiresAt *time.Time) (plaintext string, record *store.APIKey, err error) {
	keyID, err := randomHex(8)
	if err != nil {
		return "", nil, err
	}
	secret, err := randomHex(24)
	if err != nil {
		return "", nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return "", nil, fmt.Errorf("hashing api key secret: %w", err)
	}

	record = &store.APIKey{
		ID:          uuid.NewString(),
		TenantKey:   tenantKey,
		KeyID:       keyID,
		SecretHash:  string(hash),
		PrincipalID: principalID,
		Name:        name,
		Status:      store.StatusActive,
		ExpiresAt:   expiresAt,
		CreatedAt:   time.Now().UTC(),
	}
	if err := ks.CreateAPIKey(ctx, record); err != nil {
		return "", nil, err
	}

	return fmt.Sprintf("%s%s.%s", apiKeyPrefix, keyID, secret), record, nil
}

// VerifyAPIKey checks a presented key against the stored hash and returns the
// matching record. Verification failures are deliberately indistinct:
// everything but expiry maps to ErrInvalidAPIKey.
func VerifyAPIKey(ctx context.Context, ks KeyStore, presented string) (*store.APIKey, error) {
	keyID, secret, err := splitAPIKey(presented)
	if err != nil {
		return nil, err
	}

	record, err := ks.GetAPIKeyByKeyID(ctx, keyID)
	if errors.Is(err, store.ErrAPIKeyNotFound) {
		return nil, ErrInvalidAPIKey
	}
	if err != nil {
		return nil, err
	}

	if record.Status != store.StatusActive {
		return nil, ErrInvalidAPIKey
	}
	if record.ExpiresAt != nil && time.Now().After(*record.ExpiresAt) {
		return nil, ErrExpiredAPIKey
	}

	if err := bcrypt.CompareHashAndPassword([]byte(record.SecretHash), []byte(secret)); err != nil {
		return nil, ErrInvalidAPIKey
	}

	// Last-used tracking is best effort.
	_ = ks.TouchAPIKey(ctx, record.ID, time.Now().UTC())

	return record, nil
}

func splitAPIKey(presented string) (keyID, secret string, err error) {
	if !strings.HasPrefix(presented, apiKeyPrefix) {
		return "", "", ErrMalformedAPIKey
	}
	rest := strings.TrimPrefix(presented, apiKeyPrefix)
	keyID, secret, found := strings.Cut(rest, ".")
	if !found || keyID == "" || secret == "" {
		return "", "", ErrMalformedAPIKey
	}
	return keyID, secret, nil
}

func randomHex(nBytes int) (string, error) {
	buf := make([]byte, nBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating random bytes: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

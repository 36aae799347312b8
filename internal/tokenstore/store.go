// Package tokenstore persists the refresh tokens that are still honorable.
// A token is live iff a record keyed by its hash exists.
package tokenstore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"
)

var (
	ErrNotFound    = errors.New("tokenstore: record not found")
	ErrUnavailable = errors.New("tokenstore: store unavailable")
)

type Record struct {
	TokenHash string
	UserID    string
	ExpiresAt time.Time
	CreatedAt time.Time
}

type Store interface {
	Save(ctx context.Context, userID, token string, expiresAt time.Time) error
	// FindByToken returns ErrNotFound for unknown or past-expiry tokens.
	FindByToken(ctx context.Context, token string) (*Record, error)
	// DeleteByToken reports whether a record was removed.
	DeleteByToken(ctx context.Context, token string) (bool, error)
	DeleteAllForUser(ctx context.Context, userID string) error
	// Rotate removes oldToken and saves newToken as one step. It returns
	// false, inserting nothing, when oldToken is no longer stored for userID.
	Rotate(ctx context.Context, oldToken, userID, newToken string, expiresAt time.Time) (bool, error)
}

// Purger is implemented by backends that do not expire records natively.
type Purger interface {
	PurgeExpired(ctx context.Context, now time.Time) (int64, error)
}

// HashToken is the lookup key for a raw token. Raw tokens are never stored.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrUnavailable, op, err)
}

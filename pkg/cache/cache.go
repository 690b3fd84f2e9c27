// Package cache defines the result store shared by the feature orchestrators.
package cache

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/pario-ai/sous/pkg/models"
)

// MaxIdentifierLength is the maximum allowed length for an identifier.
const MaxIdentifierLength = 512

// Sentinel errors for cache operations.
var (
	// ErrUnavailable wraps any failure of the backing store. Callers treat it
	// as a miss on read and drop the write on put.
	ErrUnavailable = errors.New("cache: store unavailable")

	ErrInvalidKey = errors.New("cache: identifier is invalid")
)

// Store maps (feature, identifier) to a payload with an absolute expiry.
//
// Contract:
//   - Concurrency: implementations must be safe for concurrent use.
//   - Get returns (nil, false, nil) on a miss. An entry whose expiry has passed
//     is a miss regardless of whether it was swept.
//   - Put replaces any previous entry for the key wholesale; a ttl <= 0 stores nothing.
//   - Errors: failures of the backing store wrap ErrUnavailable.
type Store interface {
	Get(ctx context.Context, feature models.Feature, identifier string) ([]byte, bool, error)
	Put(ctx context.Context, feature models.Feature, identifier string, payload []byte, ttl time.Duration) error
}

// ValidateIdentifier checks if an identifier may be used as a cache key.
func ValidateIdentifier(id string) error {
	if strings.TrimSpace(id) == "" || strings.ContainsAny(id, "\n\r") {
		return ErrInvalidKey
	}
	if len(id) > MaxIdentifierLength {
		return ErrInvalidKey
	}
	return nil
}

// Key flattens a (feature, identifier) pair into a single string key.
func Key(feature models.Feature, identifier string) string {
	return string(feature) + "\x00" + identifier
}

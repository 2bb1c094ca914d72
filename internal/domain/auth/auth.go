// Package auth authenticates staff API keys for administrative endpoints.
package auth

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"slices"

	"github.com/go-faster/errors"
)

// ScopeOrdersWrite permits manual order status changes.
const ScopeOrdersWrite = "orders:write"

var (
	// ErrNotFound is returned by Repository when no active key has the hash.
	ErrNotFound = errors.New("api key not found")
	// ErrUnauthorized means the presented key is missing or unknown.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrForbidden means the key is valid but lacks the required scope.
	ErrForbidden = errors.New("forbidden")
)

// APIKey is a stored staff key. Only the HMAC of the key is persisted.
type APIKey struct {
	ID      string
	KeyHash string
	Name    string
	Scopes  []string
}

// HasScope reports whether the key grants scope.
func (k *APIKey) HasScope(scope string) bool {
	return slices.Contains(k.Scopes, scope)
}

// Repository provides lookup and provisioning of API keys.
type Repository interface {
	FindByHash(ctx context.Context, hash string) (*APIKey, error)
	Upsert(ctx context.Context, k *APIKey) error
}

// Hash returns the hex-encoded HMAC-SHA256 of key under pepper.
func Hash(pepper []byte, key string) string {
	mac := hmac.New(sha256.New, pepper)
	mac.Write([]byte(key))
	return hex.EncodeToString(mac.Sum(nil))
}

// Authenticator validates raw API keys against the Repository.
type Authenticator struct {
	keys   Repository
	pepper []byte
}

// NewAuthenticator creates an Authenticator.
func NewAuthenticator(keys Repository, pepper []byte) *Authenticator {
	return &Authenticator{keys: keys, pepper: pepper}
}

// Authenticate resolves key and checks that it grants scope.
func (a *Authenticator) Authenticate(ctx context.Context, key, scope string) (*APIKey, error) {
	if key == "" {
		return nil, ErrUnauthorized
	}
	hash := Hash(a.pepper, key)

	info, err := a.keys.FindByHash(ctx, hash)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrUnauthorized
		}
		return nil, errors.Wrap(err, "find api key")
	}

	// The lookup is by hash, but the stored row is compared again in
	// constant time.
	if subtle.ConstantTimeCompare([]byte(hash), []byte(info.KeyHash)) != 1 {
		return nil, ErrUnauthorized
	}
	if !info.HasScope(scope) {
		return nil, ErrForbidden
	}
	return info, nil
}

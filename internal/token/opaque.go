package token

import (
	"encoding/hex"
	"strings"
	"time"

	"github.com/go-grantgate/grantgate/internal/models"
	"github.com/go-grantgate/grantgate/internal/util"

	"github.com/google/uuid"
)

// MaxGenerateAttempts bounds the collision retry loop around token creation.
// The store's unique index on the token hash is the authoritative collision
// detector; callers re-mint and retry on a duplicate-key error, then give up
// with ErrGeneration.
const MaxGenerateAttempts = 3

// Mint builds an unpersisted token record with a fresh opaque wire value
// (256 bits of entropy). RawToken carries the wire value; only the SHA-256
// hash is ever persisted.
func Mint(
	tokenType models.TokenType,
	grantID, clientID, userID, scopes string,
	ttl time.Duration,
) (*models.Token, error) {
	raw, err := NewOpaqueValue()
	if err != nil {
		return nil, err
	}

	now := time.Now()
	return &models.Token{
		ID:        uuid.New().String(),
		TokenHash: util.SHA256Hex(raw),
		RawToken:  raw,
		TokenType: tokenType,
		GrantID:   grantID,
		ClientID:  clientID,
		UserID:    userID,
		Scopes:    scopes,
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
	}, nil
}

// NewOpaqueValue returns a 64-char hex string carrying 256 bits of entropy.
func NewOpaqueValue() (string, error) {
	raw, err := util.CryptoRandomBytes(32)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(raw), nil
}

// ScopeSet parses a space-separated scope string into a boolean lookup map.
func ScopeSet(scopes string) map[string]bool {
	set := make(map[string]bool)
	for _, s := range strings.Fields(scopes) {
		set[s] = true
	}
	return set
}

// ScopesSubset reports whether every scope in requested appears in original.
// An empty request inherits the original scope set.
func ScopesSubset(original, requested string) bool {
	if requested == "" {
		return true
	}
	set := ScopeSet(original)
	for _, s := range strings.Fields(requested) {
		if !set[s] {
			return false
		}
	}
	return true
}

package token

import (
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// IDTokenParams holds all data needed to generate an OIDC ID Token (OIDC Core 1.0 §2).
type IDTokenParams struct {
	Issuer   string
	Subject  string
	Audience string
	AuthTime time.Time
	Nonce    string
	AtHash   string
	Acr      string
	Amr      string
	Expiry   time.Duration
}

// SignIDToken creates a signed HS256 JWT ID Token for the given params.
// ID tokens are short-lived and non-revocable; the stored record exists only
// so the owning grant can report it at introspection time.
func SignIDToken(secret string, params IDTokenParams) (string, error) {
	now := time.Now()

	claims := jwt.MapClaims{
		"iss":       params.Issuer,
		"sub":       params.Subject,
		"aud":       params.Audience,
		"exp":       now.Add(params.Expiry).Unix(),
		"iat":       now.Unix(),
		"auth_time": params.AuthTime.Unix(),
		"jti":       uuid.New().String(),
	}

	if params.Nonce != "" {
		claims["nonce"] = params.Nonce
	}
	if params.AtHash != "" {
		claims["at_hash"] = params.AtHash
	}
	if params.Acr != "" {
		claims["acr"] = params.Acr
	}
	if params.Amr != "" {
		claims["amr"] = params.Amr
	}

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrTokenGeneration, err)
	}
	return signed, nil
}

// ComputeAtHash computes the at_hash claim value per OIDC Core 1.0 §3.3.2.11.
// at_hash = base64url( left-most 128 bits of SHA-256( ASCII(access_token) ) )
func ComputeAtHash(accessToken string) string {
	sum := sha256.Sum256([]byte(accessToken))
	return base64.RawURLEncoding.EncodeToString(sum[:16])
}

// Copyright (c) 2025 BVK Chaitanya

package steam

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/square/go-jose.v2/jwt"
)

// TokenClaims holds the fields of interest from Steam issued access and
// refresh tokens.
type TokenClaims struct {
	SteamID   uint64
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// ParseToken decodes the claims of a Steam issued JWT. Signature is not
// verified; the token is only forwarded back to the issuer.
func ParseToken(raw string) (*TokenClaims, error) {
	tok, err := jwt.ParseSigned(raw)
	if err != nil {
		return nil, fmt.Errorf("could not parse token: %w", os.ErrInvalid)
	}
	var claims jwt.Claims
	if err := tok.UnsafeClaimsWithoutVerification(&claims); err != nil {
		return nil, fmt.Errorf("could not decode token claims: %w", os.ErrInvalid)
	}
	steamID, err := ParseSteamID(claims.Subject)
	if err != nil {
		return nil, fmt.Errorf("token subject is not a steam id: %w", err)
	}
	tc := &TokenClaims{
		SteamID: steamID,
	}
	if claims.IssuedAt != nil {
		tc.IssuedAt = claims.IssuedAt.Time()
	}
	if claims.Expiry != nil {
		tc.ExpiresAt = claims.Expiry.Time()
	}
	return tc, nil
}

// Expired returns true if the token is expired at the given time.
func (tc *TokenClaims) Expired(at time.Time) bool {
	return !tc.ExpiresAt.IsZero() && !at.Before(tc.ExpiresAt)
}

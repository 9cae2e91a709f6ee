// Package token decodes webtask tokens without verifying them.
//
// Webtask tokens are JWTs issued by the cluster. The client holds no key
// material, so decoding here is claim extraction only: it never tells you
// whether a token is authentic, only what it claims.
package token

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claim names used by the webtask platform.
const (
	ClaimTokenID   = "jti"
	ClaimIssuer    = "iss"
	ClaimSubject   = "sub"
	ClaimContainer = "ten"
	ClaimName      = "jtn"
	ClaimCodeURL   = "url"
	ClaimCode      = "code"
	ClaimParams    = "pctx"
	ClaimSecrets   = "ectx"
	ClaimMergeBody = "mb"
	ClaimParseBody = "pb"
	ClaimExpiry    = "exp"
	ClaimNotBefore = "nbf"
)

// DecodeError is returned when a token string is not a well-formed token.
type DecodeError struct {
	Reason string
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("token decode error: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("token decode error: %s", e.Reason)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Claims is the decoded payload of a token.
type Claims map[string]any

var parser = jwt.NewParser()

// Decode extracts the claims from a token. The signature is not checked.
func Decode(raw string) (Claims, error) {
	mc := jwt.MapClaims{}
	_, parts, err := parser.ParseUnverified(raw, mc)
	if err != nil {
		// An unknown or missing "alg" only means the token cannot be
		// verified, which we never do anyway. The payload is already decoded.
		if !errors.Is(err, jwt.ErrTokenUnverifiable) {
			return nil, &DecodeError{Reason: "malformed token", Err: err}
		}
	}

	// json.Unmarshal accepts "null" for a map without complaint.
	payload, err := parser.DecodeSegment(parts[1])
	if err != nil {
		return nil, &DecodeError{Reason: "malformed payload", Err: err}
	}
	if bytes.Equal(bytes.TrimSpace(payload), []byte("null")) {
		return nil, &DecodeError{Reason: "payload is not a JSON object"}
	}

	return Claims(mc), nil
}

// String returns a string claim, or "" when it is absent or not a string.
func (c Claims) String(name string) string {
	s, _ := c[name].(string)
	return s
}

func (c Claims) TokenID() string   { return c.String(ClaimTokenID) }
func (c Claims) Issuer() string    { return c.String(ClaimIssuer) }
func (c Claims) Subject() string   { return c.String(ClaimSubject) }
func (c Claims) Container() string { return c.String(ClaimContainer) }
func (c Claims) Name() string      { return c.String(ClaimName) }
func (c Claims) CodeURL() string   { return c.String(ClaimCodeURL) }

// HasCode reports whether the token embeds inline source code.
func (c Claims) HasCode() bool {
	_, ok := c[ClaimCode]
	return ok
}

// Expiry returns the exp claim. ok is false when the token never expires or
// the claim is unreadable.
func (c Claims) Expiry() (t time.Time, ok bool) {
	exp, err := jwt.MapClaims(c).GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}

// Expired reports whether the token's exp claim is before now.
func (c Claims) Expired(now time.Time) bool {
	exp, ok := c.Expiry()
	return ok && now.After(exp)
}

// ID returns a stable identifier for an anonymous task built from its token.
// It is the jti claim when the platform set one, otherwise a short digest of
// the token. The raw token never appears in the result.
func ID(raw string, c Claims) string {
	if jti := c.TokenID(); jti != "" {
		return jti
	}
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:8])
}

package token

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sign(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("cluster-secret"))
	require.NoError(t, err)
	return raw
}

func segment(v string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(v))
}

func TestDecode_MatchesPayload(t *testing.T) {
	raw := sign(t, jwt.MapClaims{
		"jti":  "6f1e2d",
		"ten":  "tenant-1",
		"jtn":  "pinggoogle",
		"url":  "https://cdn.example.com/task.js",
		"pctx": map[string]any{"region": "eu"},
		"ca":   []any{"admin"},
	})

	claims, err := Decode(raw)
	require.NoError(t, err)

	payload, err := base64.RawURLEncoding.DecodeString(strings.Split(raw, ".")[1])
	require.NoError(t, err)
	var want map[string]any
	require.NoError(t, json.Unmarshal(payload, &want))

	assert.Equal(t, want, map[string]any(claims))
	assert.Equal(t, "6f1e2d", claims.TokenID())
	assert.Equal(t, "tenant-1", claims.Container())
	assert.Equal(t, "pinggoogle", claims.Name())
	assert.Equal(t, "https://cdn.example.com/task.js", claims.CodeURL())
	assert.False(t, claims.HasCode())
}

func TestDecode_Idempotent(t *testing.T) {
	raw := sign(t, jwt.MapClaims{"ten": "tenant-1", "code": "module.exports = 1"})

	first, err := Decode(raw)
	require.NoError(t, err)
	second, err := Decode(raw)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.True(t, first.HasCode())
}

func TestDecode_UnverifiableAlgorithmStillDecodes(t *testing.T) {
	raw := segment(`{"typ":"JWT"}`) + "." + segment(`{"ten":"t","extra":true}`) + ".c2ln"

	claims, err := Decode(raw)
	require.NoError(t, err)
	assert.Equal(t, "t", claims.Container())
	assert.Equal(t, true, claims["extra"])
}

func TestDecode_Malformed(t *testing.T) {
	header := segment(`{"alg":"HS256","typ":"JWT"}`)

	tests := []struct {
		name string
		raw  string
	}{
		{name: "empty", raw: ""},
		{name: "one segment", raw: "abc"},
		{name: "two segments", raw: header + "." + segment(`{}`)},
		{name: "four segments", raw: header + "." + segment(`{}`) + ".sig.extra"},
		{name: "bad header encoding", raw: "!!!." + segment(`{}`) + ".sig"},
		{name: "bad payload encoding", raw: header + ".%%%.sig"},
		{name: "payload not json", raw: header + "." + segment(`not json`) + ".sig"},
		{name: "payload array", raw: header + "." + segment(`[1,2]`) + ".sig"},
		{name: "payload string", raw: header + "." + segment(`"claims"`) + ".sig"},
		{name: "payload null", raw: header + "." + segment(`null`) + ".sig"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims, err := Decode(tt.raw)
			assert.Nil(t, claims)

			var decodeErr *DecodeError
			require.True(t, errors.As(err, &decodeErr), "expected DecodeError, got %v", err)
		})
	}
}

func TestExpiry(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	claims, err := Decode(sign(t, jwt.MapClaims{"exp": exp.Unix()}))
	require.NoError(t, err)

	got, ok := claims.Expiry()
	require.True(t, ok)
	assert.True(t, got.Equal(exp))
	assert.False(t, claims.Expired(time.Now()))
	assert.True(t, claims.Expired(exp.Add(time.Minute)))

	_, ok = Claims{}.Expiry()
	assert.False(t, ok)
}

func TestID(t *testing.T) {
	withJTI := sign(t, jwt.MapClaims{"jti": "abc123"})
	claims, err := Decode(withJTI)
	require.NoError(t, err)
	assert.Equal(t, "abc123", ID(withJTI, claims))

	anon := sign(t, jwt.MapClaims{"ten": "tenant-1"})
	claims, err = Decode(anon)
	require.NoError(t, err)

	id := ID(anon, claims)
	assert.NotEmpty(t, id)
	assert.Len(t, id, 16)
	assert.NotContains(t, id, anon)
	assert.Equal(t, id, ID(anon, claims))
}

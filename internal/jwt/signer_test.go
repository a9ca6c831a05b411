package jwt

import (
	"encoding/base64"
	"strings"
	"testing"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testKey = []byte("0123456789abcdef0123456789abcdef")

func newTestSigner(t *testing.T) *Signer {
	t.Helper()
	s, err := NewSigner(testKey, "para", time.Hour)
	require.NoError(t, err)
	return s
}

func TestIssueVerify_RoundTrip(t *testing.T) {
	s := newTestSigner(t)

	for _, sub := range []string{"alice", "b0b", "user-with-dashes", "ñandú"} {
		tok, err := s.Issue(sub, Extra{Role: "USER", Email: sub + "@x.com"})
		require.NoError(t, err)
		assert.Equal(t, sub, tok.Subject)
		assert.True(t, tok.ExpiresAt.After(tok.IssuedAt))
		assert.Equal(t, time.Hour, tok.ExpiresAt.Sub(tok.IssuedAt))

		c, err := s.Verify(tok.Raw)
		require.NoError(t, err, sub)
		assert.Equal(t, sub, c.Subject)
		assert.Equal(t, "USER", c.Role)
		assert.Equal(t, sub+"@x.com", c.Email)
		assert.Equal(t, "para", c.Issuer)
		assert.NotEmpty(t, c.ID)
	}
}

func TestIssue_EmptySubject(t *testing.T) {
	s := newTestSigner(t)
	_, err := s.Issue("  ", Extra{})
	require.Error(t, err)
}

func TestNewSigner_DefaultTTL(t *testing.T) {
	s, err := NewSigner(testKey, "para", 0)
	require.NoError(t, err)
	assert.Equal(t, DefaultTTL, s.TTL())

	_, err = NewSigner(nil, "para", time.Hour)
	require.Error(t, err)
}

func TestVerify_Expired(t *testing.T) {
	past := time.Now().Add(-48 * time.Hour)
	old := newTestSigner(t).WithClock(func() time.Time { return past })

	tok, err := old.Issue("alice", Extra{})
	require.NoError(t, err)
	require.True(t, tok.ExpiresAt.Before(time.Now()))

	_, err = newTestSigner(t).Verify(tok.Raw)
	require.ErrorIs(t, err, ErrExpiredToken)
	assert.Equal(t, "expired", Kind(err))
}

func TestVerify_FlippedSignatureByte(t *testing.T) {
	s := newTestSigner(t)
	tok, err := s.Issue("alice", Extra{})
	require.NoError(t, err)

	parts := strings.Split(tok.Raw, ".")
	require.Len(t, parts, 3)
	sig, err := base64.RawURLEncoding.DecodeString(parts[2])
	require.NoError(t, err)

	for _, idx := range []int{0, len(sig) / 2, len(sig) - 1} {
		mut := append([]byte(nil), sig...)
		mut[idx] ^= 0x01
		raw := parts[0] + "." + parts[1] + "." + base64.RawURLEncoding.EncodeToString(mut)

		_, err = s.Verify(raw)
		require.ErrorIs(t, err, ErrInvalidSignature, "byte %d", idx)
	}
}

func TestVerify_TamperedExpiredReportsSignature(t *testing.T) {
	past := time.Now().Add(-48 * time.Hour)
	tok, err := newTestSigner(t).WithClock(func() time.Time { return past }).Issue("alice", Extra{})
	require.NoError(t, err)

	parts := strings.Split(tok.Raw, ".")
	sig, _ := base64.RawURLEncoding.DecodeString(parts[2])
	sig[0] ^= 0xff
	raw := parts[0] + "." + parts[1] + "." + base64.RawURLEncoding.EncodeToString(sig)

	_, err = newTestSigner(t).Verify(raw)
	require.ErrorIs(t, err, ErrInvalidSignature)
}

func TestVerify_WrongKey(t *testing.T) {
	other, err := NewSigner([]byte("ffffffffffffffffffffffffffffffff"), "para", time.Hour)
	require.NoError(t, err)
	tok, err := other.Issue("alice", Extra{})
	require.NoError(t, err)

	_, err = newTestSigner(t).Verify(tok.Raw)
	require.ErrorIs(t, err, ErrInvalidSignature)
}

func TestVerify_WrongIssuer(t *testing.T) {
	other, err := NewSigner(testKey, "someone-else", time.Hour)
	require.NoError(t, err)
	tok, err := other.Issue("alice", Extra{})
	require.NoError(t, err)

	_, err = newTestSigner(t).Verify(tok.Raw)
	require.ErrorIs(t, err, ErrInvalidSignature)
}

func TestVerify_AlgNoneRejected(t *testing.T) {
	claims := jwtv5.MapClaims{
		"sub": "alice",
		"iss": "para",
		"exp": time.Now().Add(time.Hour).Unix(),
	}
	raw, err := jwtv5.NewWithClaims(jwtv5.SigningMethodNone, claims).SignedString(jwtv5.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = newTestSigner(t).Verify(raw)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestVerify_Malformed(t *testing.T) {
	s := newTestSigner(t)
	cases := []string{
		"",
		"   ",
		"not-a-token",
		"a.b",
		"a.b.c",
		"!!!.###.$$$",
	}
	for _, raw := range cases {
		_, err := s.Verify(raw)
		require.ErrorIs(t, err, ErrMalformedToken, "input %q", raw)
		assert.Equal(t, "malformed", Kind(err))
	}
}

func TestVerify_MissingExpiry(t *testing.T) {
	claims := jwtv5.MapClaims{"sub": "alice", "iss": "para"}
	raw, err := jwtv5.NewWithClaims(jwtv5.SigningMethodHS256, claims).SignedString(testKey)
	require.NoError(t, err)

	_, err = newTestSigner(t).Verify(raw)
	require.ErrorIs(t, err, ErrMalformedToken)
}

func TestVerify_MissingSubject(t *testing.T) {
	claims := jwtv5.MapClaims{"iss": "para", "exp": time.Now().Add(time.Hour).Unix()}
	raw, err := jwtv5.NewWithClaims(jwtv5.SigningMethodHS256, claims).SignedString(testKey)
	require.NoError(t, err)

	_, err = newTestSigner(t).Verify(raw)
	require.ErrorIs(t, err, ErrMalformedToken)
}

func TestKind(t *testing.T) {
	assert.Equal(t, "ok", Kind(nil))
	assert.Equal(t, "invalid_signature", Kind(ErrInvalidSignature))
	assert.Equal(t, "expired", Kind(ErrExpiredToken))
	assert.Equal(t, "malformed", Kind(ErrMalformedToken))
}

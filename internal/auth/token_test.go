package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newIssuer(t *testing.T, secret, alg string) *TokenIssuer {
	t.Helper()
	ti, err := NewTokenIssuer(secret, alg, time.Hour)
	require.NoError(t, err)
	return ti
}

func TestTokenIssuer_RoundTrip(t *testing.T) {
	t.Parallel()

	for _, alg := range []string{"HS256", "HS384", "HS512"} {
		ti := newIssuer(t, "super-secret", alg)
		before := time.Now()
		tok, exp, err := ti.Issue("user-123", 0)
		require.NoError(t, err, alg)
		assert.WithinDuration(t, before.Add(time.Hour), exp, 2*time.Second)

		sub, err := ti.Verify(tok)
		require.NoError(t, err, alg)
		assert.Equal(t, "user-123", sub)
	}
}

func TestTokenIssuer_Expired(t *testing.T) {
	t.Parallel()

	ti := newIssuer(t, "secret", "HS256")
	issued := time.Now().Add(-2 * time.Hour)
	ti.now = func() time.Time { return issued }
	tok, _, err := ti.Issue("u1", time.Hour)
	require.NoError(t, err)

	ti.now = func() time.Time { return issued.Add(30 * time.Minute) }
	sub, err := ti.Verify(tok)
	require.NoError(t, err)
	assert.Equal(t, "u1", sub)

	ti.now = time.Now
	_, err = ti.Verify(tok)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestTokenIssuer_WrongSecret(t *testing.T) {
	t.Parallel()

	tok, _, err := newIssuer(t, "right-secret", "HS256").Issue("u2", 0)
	require.NoError(t, err)

	_, err = newIssuer(t, "wrong-secret", "HS256").Verify(tok)
	assert.ErrorIs(t, err, ErrTokenSignatureInvalid)
}

func TestTokenIssuer_OtherAlgorithmRejected(t *testing.T) {
	t.Parallel()

	tok, _, err := newIssuer(t, "secret", "HS512").Issue("u3", 0)
	require.NoError(t, err)

	_, err = newIssuer(t, "secret", "HS256").Verify(tok)
	assert.ErrorIs(t, err, ErrTokenSignatureInvalid)
}

func TestTokenIssuer_Malformed(t *testing.T) {
	t.Parallel()

	ti := newIssuer(t, "k", "HS256")
	for _, tok := range []string{"", "not.a.jwt", "abc"} {
		_, err := ti.Verify(tok)
		assert.ErrorIs(t, err, ErrTokenMalformed, tok)
	}
}

func TestTokenIssuer_MissingSubject(t *testing.T) {
	t.Parallel()

	ti := newIssuer(t, "k", "HS256")
	tok, _, err := ti.Issue("", 0)
	require.NoError(t, err)

	_, err = ti.Verify(tok)
	assert.ErrorIs(t, err, ErrTokenMissingSubject)
}

func TestNewTokenIssuer_Rejects(t *testing.T) {
	t.Parallel()

	_, err := NewTokenIssuer("", "HS256", time.Hour)
	assert.Error(t, err)
	_, err = NewTokenIssuer("k", "RS256", time.Hour)
	assert.Error(t, err)
	_, err = NewTokenIssuer("k", "none", time.Hour)
	assert.Error(t, err)
}

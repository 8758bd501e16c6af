package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerifyRoundTrip(t *testing.T) {
	verifier := NewVerifier("test-secret")

	token, err := verifier.Sign("user-1", time.Minute)
	require.NoError(t, err)

	identity, err := verifier.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", identity.UserID)
}

func TestVerifyHeader(t *testing.T) {
	verifier := NewVerifier("test-secret")

	token, err := verifier.Sign("user-1", time.Minute)
	require.NoError(t, err)

	identity, err := verifier.VerifyHeader("Bearer " + token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", identity.UserID)
}

func TestVerifyHeaderMissing(t *testing.T) {
	verifier := NewVerifier("test-secret")

	_, err := verifier.VerifyHeader("")
	assert.ErrorIs(t, err, ErrMissingToken)

	_, err = verifier.VerifyHeader("Basic abc")
	assert.ErrorIs(t, err, ErrMissingToken)
}

func TestVerifyWrongSecret(t *testing.T) {
	token, err := NewVerifier("right-secret").Sign("user-1", time.Minute)
	require.NoError(t, err)

	_, err = NewVerifier("wrong-secret").Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyExpiredToken(t *testing.T) {
	verifier := NewVerifier("test-secret")

	token, err := verifier.Sign("user-1", -time.Minute)
	require.NoError(t, err)

	_, err = verifier.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyGarbage(t *testing.T) {
	_, err := NewVerifier("test-secret").Verify("not.a.jwt")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

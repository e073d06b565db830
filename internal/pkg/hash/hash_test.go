package hash

import (
	"errors"
	"testing"

	"github.com/contactbook-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSecret_EmptyInput(t *testing.T) {
	_, err := Secret("")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrBadRequest))
}

func TestSecret_RoundTrip(t *testing.T) {
	h, err := Secret("correct horse battery staple")
	require.NoError(t, err)
	assert.NotEqual(t, "correct horse battery staple", h)
	assert.True(t, Verify("correct horse battery staple", h))
}

func TestVerify_MutatedSecret(t *testing.T) {
	h, err := Secret("123456")
	require.NoError(t, err)

	assert.False(t, Verify("123457", h))
	assert.False(t, Verify("12345", h))
	assert.False(t, Verify("", h))
}

func TestVerify_MalformedHash(t *testing.T) {
	assert.False(t, Verify("123456", "not-a-bcrypt-hash"))
}

func TestSecret_IndependentSalts(t *testing.T) {
	h1, err := Secret("654321")
	require.NoError(t, err)
	h2, err := Secret("654321")
	require.NoError(t, err)

	// Same plaintext, independent salts.
	assert.NotEqual(t, h1, h2)
	assert.True(t, Verify("654321", h1))
	assert.True(t, Verify("654321", h2))
}

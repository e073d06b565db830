package jwtinfra

import (
	"testing"
	"time"

	"github.com/contactbook-api/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testProvider(expiry time.Duration) *Provider {
	return NewProvider(&config.Config{JWTSecret: "test-secret", JWTExpiry: expiry})
}

func TestIssueAndVerify(t *testing.T) {
	p := testProvider(time.Hour)

	token, err := p.Issue("u1")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := p.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
}

func TestVerify_WrongSecret(t *testing.T) {
	token, err := testProvider(time.Hour).Issue("u1")
	require.NoError(t, err)

	other := NewProvider(&config.Config{JWTSecret: "different", JWTExpiry: time.Hour})
	_, err = other.Verify(token)
	require.Error(t, err)
}

func TestVerify_Expired(t *testing.T) {
	p := testProvider(-time.Minute)

	token, err := p.Issue("u1")
	require.NoError(t, err)

	_, err = p.Verify(token)
	require.Error(t, err)
}

func TestVerify_Garbage(t *testing.T) {
	_, err := testProvider(time.Hour).Verify("not.a.token")
	require.Error(t, err)
}

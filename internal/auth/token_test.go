package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/civicseva/civic-complaints/internal/domain"
)

func TestTokenRoundTrip(t *testing.T) {
	tv := NewTokenVerifier("secret", "")
	token, expiresAt, err := tv.GenerateToken(domain.Identity{ID: "user-1", Email: "u@example.org"}, time.Hour)
	require.NoError(t, err)

	claims, err := tv.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, domain.Identity{ID: "user-1", Email: "u@example.org"}, claims.Identity())
	assert.WithinDuration(t, expiresAt, claims.ExpiresAtTime(), time.Second)
}

func TestParseTokenRejects(t *testing.T) {
	tv := NewTokenVerifier("secret", "https://id.example.org")

	expired, _, err := tv.GenerateToken(domain.Identity{ID: "u"}, -time.Minute)
	require.NoError(t, err)
	_, err = tv.ParseToken(expired)
	assert.Error(t, err, "expired")

	other, _, err := NewTokenVerifier("other", "https://id.example.org").GenerateToken(domain.Identity{ID: "u"}, time.Hour)
	require.NoError(t, err)
	_, err = tv.ParseToken(other)
	assert.Error(t, err, "wrong secret")

	wrongIssuer, _, err := NewTokenVerifier("secret", "https://elsewhere").GenerateToken(domain.Identity{ID: "u"}, time.Hour)
	require.NoError(t, err)
	_, err = tv.ParseToken(wrongIssuer)
	assert.Error(t, err, "wrong issuer")

	noSubject, _, err := tv.GenerateToken(domain.Identity{}, time.Hour)
	require.NoError(t, err)
	_, err = tv.ParseToken(noSubject)
	assert.Error(t, err, "no subject")

	_, err = tv.ParseToken("garbage")
	assert.Error(t, err)
}

func TestHashSecret(t *testing.T) {
	hashed, err := HashSecret("1234-5678-9012", 4)
	require.NoError(t, err)
	assert.NotContains(t, hashed, "1234")
	assert.NoError(t, CompareSecret(hashed, "1234-5678-9012"))
	assert.Error(t, CompareSecret(hashed, "0000-0000-0000"))
}

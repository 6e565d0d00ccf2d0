package dnsverify

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "ctn/pkg/domain"
)

func TestNewToken(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	orgID := id.NewOrgID()

	token, err := NewToken(orgID, "example.com", now, 24*time.Hour)
	require.NoError(t, err)

	assert.Equal(t, orgID, token.OrgID)
	assert.Equal(t, "_ctn-verify.example.com", token.RecordName)
	assert.Equal(t, StatusPending, token.Status)
	assert.Equal(t, now.Add(24*time.Hour), token.ExpiresAt)
	assert.NotEmpty(t, token.Token)

	// Secrets must be unique per token.
	other, err := NewToken(orgID, "example.com", now, 24*time.Hour)
	require.NoError(t, err)
	assert.NotEqual(t, token.Token, other.Token)
}

func TestStatusTerminal(t *testing.T) {
	assert.False(t, StatusPending.Terminal())
	assert.True(t, StatusVerified.Terminal())
	assert.True(t, StatusExpired.Terminal())
	assert.True(t, StatusFailed.Terminal())
}

func TestTokenExpired(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	token := &Token{ExpiresAt: now.Add(time.Hour)}

	assert.False(t, token.Expired(now))
	assert.True(t, token.Expired(now.Add(time.Hour)), "expiry boundary is inclusive")
	assert.True(t, token.Expired(now.Add(2*time.Hour)))
}

func TestDomainPermitted(t *testing.T) {
	assert.True(t, domainPermitted("example.com", "example.com"))
	assert.True(t, domainPermitted("example.com", "portal.example.com"))
	assert.False(t, domainPermitted("example.com", "a.b.example.com"), "only direct subdomains are permitted")
	assert.False(t, domainPermitted("example.com", "evil-example.com"))
	assert.False(t, domainPermitted("example.com", "example.com.evil.net"))
	assert.False(t, domainPermitted("", "example.com"))
}

package dnsverify

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	id "ctn/pkg/domain"
)

// RecordPrefix is prepended to the domain to form the TXT record name the
// operator must publish.
const RecordPrefix = "_ctn-verify."

// Status is the state of a domain verification token.
//
// pending → verified   proof found in DNS
// pending → expired    TTL elapsed without proof
// pending → failed     resolver errors persisted across attempts
//
// All three non-pending states are terminal and immutable; a new
// verification cycle issues a fresh token instead of resurrecting one.
type Status string

const (
	StatusPending  Status = "pending"
	StatusVerified Status = "verified"
	StatusExpired  Status = "expired"
	StatusFailed   Status = "failed"
)

// Terminal reports whether the status can no longer change.
func (s Status) Terminal() bool {
	return s == StatusVerified || s == StatusExpired || s == StatusFailed
}

// Token is a single DNS ownership-proof challenge.
//
// Invariant: at most one token with Status=pending exists per
// (organization, domain) pair; the store enforces it.
type Token struct {
	ID         id.TokenID `json:"token_id"`
	OrgID      id.OrgID   `json:"organization_id"`
	Domain     string     `json:"domain"`
	Token      string     `json:"token"`
	RecordName string     `json:"record_name"`
	Status     Status     `json:"status"`

	// VerificationAttempts counts every lookup attempt; ResolverFailures
	// counts consecutive resolver-level errors and resets on any lookup
	// that completes, even when the record is absent.
	VerificationAttempts    int        `json:"verification_attempts"`
	ResolverFailures        int        `json:"resolver_failures"`
	LastVerificationAttempt *time.Time `json:"last_verification_attempt,omitempty"`

	CreatedAt  time.Time  `json:"created_at"`
	ExpiresAt  time.Time  `json:"expires_at"`
	VerifiedAt *time.Time `json:"verified_at,omitempty"`
}

// NewToken issues a pending token for the given (organization, domain) pair.
// The secret is bounded in time so a stale challenge can never be satisfied
// after a domain changes hands.
func NewToken(orgID id.OrgID, domain string, now time.Time, ttl time.Duration) (*Token, error) {
	secret, err := newSecret()
	if err != nil {
		return nil, fmt.Errorf("generate verification token: %w", err)
	}
	return &Token{
		ID:         id.NewTokenID(),
		OrgID:      orgID,
		Domain:     domain,
		Token:      secret,
		RecordName: RecordPrefix + domain,
		Status:     StatusPending,
		CreatedAt:  now,
		ExpiresAt:  now.Add(ttl),
	}, nil
}

// Expired reports whether the token's TTL has elapsed at the given instant.
func (t *Token) Expired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}

func newSecret() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return "ctn-verify-" + hex.EncodeToString(buf), nil
}

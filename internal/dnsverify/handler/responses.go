package handler

import (
	"time"

	"ctn/internal/dnsverify"
)

// TokenResponse is the wire form of a verification token. The secret value
// is included: the operator must publish it as the TXT record.
type TokenResponse struct {
	TokenID                 string     `json:"token_id"`
	OrganizationID          string     `json:"organization_id"`
	Domain                  string     `json:"domain"`
	Token                   string     `json:"token"`
	RecordName              string     `json:"record_name"`
	Status                  string     `json:"status"`
	VerificationAttempts    int        `json:"verification_attempts"`
	LastVerificationAttempt *time.Time `json:"last_verification_attempt,omitempty"`
	CreatedAt               time.Time  `json:"created_at"`
	ExpiresAt               time.Time  `json:"expires_at"`
	VerifiedAt              *time.Time `json:"verified_at,omitempty"`
}

// FromToken maps a domain token onto the wire form.
func FromToken(t *dnsverify.Token) TokenResponse {
	return TokenResponse{
		TokenID:                 t.ID.String(),
		OrganizationID:          t.OrgID.String(),
		Domain:                  t.Domain,
		Token:                   t.Token,
		RecordName:              t.RecordName,
		Status:                  string(t.Status),
		VerificationAttempts:    t.VerificationAttempts,
		LastVerificationAttempt: t.LastVerificationAttempt,
		CreatedAt:               t.CreatedAt,
		ExpiresAt:               t.ExpiresAt,
		VerifiedAt:              t.VerifiedAt,
	}
}

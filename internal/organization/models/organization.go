package models

import (
	"time"

	id "ctn/pkg/domain"
)

// AuthMethod names the strongest identity proof currently backing an
// organization's tier.
type AuthMethod string

const (
	MethodSSO               AuthMethod = "sso"
	MethodDNS               AuthMethod = "dns"
	MethodEmailVerification AuthMethod = "email_verification"
)

// VerificationStatus is the outcome of identifier verification.
type VerificationStatus string

const (
	VerificationPending  VerificationStatus = "pending"
	VerificationVerified VerificationStatus = "verified"
	VerificationFlagged  VerificationStatus = "flagged"
	VerificationFailed   VerificationStatus = "failed"
)

// Organization is the aggregate root for a registered legal entity.
//
// Invariants:
//   - Tier is always the highest trust tier supported by currently-valid
//     evidence (lower numeral = higher trust). It is recomputed through
//     Recompute, never hand-set; DVSM and IVE mutate evidence fields and
//     call the organization service, which recomputes through this one
//     choke point.
//   - Terminal identifier-verification statuses (verified, failed) are never
//     mutated back to pending; a new document upload starts a fresh cycle.
//   - Organizations are never deleted, only superseded.
type Organization struct {
	ID     id.OrgID           `json:"id"`
	Name   string             `json:"name"`
	Domain string             `json:"domain"`
	Tier   int                `json:"authentication_tier"`
	Method AuthMethod         `json:"authentication_method"`

	// DNS ownership proof evidence, owned by the domain verification engine.
	DNSVerifiedDomain          string     `json:"dns_verified_domain,omitempty"`
	DNSVerificationInitiatedAt *time.Time `json:"dns_verification_initiated_at,omitempty"`
	DNSVerifiedAt              *time.Time `json:"dns_verified_at,omitempty"`
	DNSReverificationDue       *time.Time `json:"dns_reverification_due,omitempty"`

	// SSOAsserted is maintained by the external single-sign-on integration.
	// The recompute treats it as evidence; this engine never sets it.
	SSOAsserted bool `json:"sso_asserted"`

	// Identifier verification evidence, owned by the identifier
	// verification engine.
	EnteredCompanyName      string             `json:"entered_company_name,omitempty"`
	EnteredRegistryNumber   string             `json:"entered_registry_number,omitempty"`
	DocumentUploadedAt      *time.Time         `json:"document_uploaded_at,omitempty"`
	ExtractedCompanyName    string             `json:"extracted_company_name,omitempty"`
	ExtractedRegistryNumber string             `json:"extracted_registry_number,omitempty"`
	VerificationStatus      VerificationStatus `json:"verification_status"`
	MismatchFlags           []string           `json:"mismatch_flags,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewOrganization creates an organization at the tier-3 baseline.
func NewOrganization(orgID id.OrgID, name, domain string, now time.Time) *Organization {
	return &Organization{
		ID:                 orgID,
		Name:               name,
		Domain:             domain,
		Tier:               TierBaseline,
		Method:             MethodEmailVerification,
		VerificationStatus: VerificationPending,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
}

package handler

import (
	"time"

	orgmodels "ctn/internal/organization/models"
)

// OrganizationResponse is the wire form of an organization.
type OrganizationResponse struct {
	ID                   string     `json:"id"`
	Name                 string     `json:"name"`
	Domain               string     `json:"domain"`
	AuthenticationTier   int        `json:"authentication_tier"`
	AuthenticationMethod string     `json:"authentication_method"`
	DNSVerifiedDomain    string     `json:"dns_verified_domain,omitempty"`
	DNSVerifiedAt        *time.Time `json:"dns_verified_at,omitempty"`
	DNSReverificationDue *time.Time `json:"dns_reverification_due,omitempty"`
	VerificationStatus   string     `json:"verification_status"`
	MismatchFlags        []string   `json:"mismatch_flags,omitempty"`
	CreatedAt            time.Time  `json:"created_at"`
}

// FromOrganization maps an organization onto the wire form.
func FromOrganization(org *orgmodels.Organization) OrganizationResponse {
	return OrganizationResponse{
		ID:                   org.ID.String(),
		Name:                 org.Name,
		Domain:               org.Domain,
		AuthenticationTier:   org.Tier,
		AuthenticationMethod: string(org.Method),
		DNSVerifiedDomain:    org.DNSVerifiedDomain,
		DNSVerifiedAt:        org.DNSVerifiedAt,
		DNSReverificationDue: org.DNSReverificationDue,
		VerificationStatus:   string(org.VerificationStatus),
		MismatchFlags:        org.MismatchFlags,
		CreatedAt:            org.CreatedAt,
	}
}

// VerificationResponse is the read-only verification view for the UI.
type VerificationResponse struct {
	OrganizationID             string     `json:"organization_id"`
	AuthenticationTier         int        `json:"authentication_tier"`
	AuthenticationMethod       string     `json:"authentication_method"`
	DNSVerifiedDomain          string     `json:"dns_verified_domain,omitempty"`
	DNSVerificationInitiatedAt *time.Time `json:"dns_verification_initiated_at,omitempty"`
	DNSVerifiedAt              *time.Time `json:"dns_verified_at,omitempty"`
	DNSReverificationDue       *time.Time `json:"dns_reverification_due,omitempty"`
	VerificationStatus         string     `json:"verification_status"`
	MismatchFlags              []string   `json:"mismatch_flags,omitempty"`
	DocumentUploadedAt         *time.Time `json:"document_uploaded_at,omitempty"`
}

// VerificationFromOrganization maps the verification slice onto the wire
// form.
func VerificationFromOrganization(org *orgmodels.Organization) VerificationResponse {
	return VerificationResponse{
		OrganizationID:             org.ID.String(),
		AuthenticationTier:         org.Tier,
		AuthenticationMethod:       string(org.Method),
		DNSVerifiedDomain:          org.DNSVerifiedDomain,
		DNSVerificationInitiatedAt: org.DNSVerificationInitiatedAt,
		DNSVerifiedAt:              org.DNSVerifiedAt,
		DNSReverificationDue:       org.DNSReverificationDue,
		VerificationStatus:         string(org.VerificationStatus),
		MismatchFlags:              org.MismatchFlags,
		DocumentUploadedAt:         org.DocumentUploadedAt,
	}
}

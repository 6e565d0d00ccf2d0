package handler

import (
	"time"

	orgmodels "ctn/internal/organization/models"
)

// VerificationResponse is the wire form of an organization's identifier
// verification state.
type VerificationResponse struct {
	OrganizationID          string     `json:"organization_id"`
	VerificationStatus      string     `json:"verification_status"`
	MismatchFlags           []string   `json:"mismatch_flags,omitempty"`
	EnteredCompanyName      string     `json:"entered_company_name,omitempty"`
	EnteredRegistryNumber   string     `json:"entered_registry_number,omitempty"`
	ExtractedCompanyName    string     `json:"extracted_company_name,omitempty"`
	ExtractedRegistryNumber string     `json:"extracted_registry_number,omitempty"`
	DocumentUploadedAt      *time.Time `json:"document_uploaded_at,omitempty"`
	AuthenticationTier      int        `json:"authentication_tier"`
}

// FromOrganization maps the verification slice of an organization onto the
// wire form.
func FromOrganization(org *orgmodels.Organization) VerificationResponse {
	return VerificationResponse{
		OrganizationID:          org.ID.String(),
		VerificationStatus:      string(org.VerificationStatus),
		MismatchFlags:           org.MismatchFlags,
		EnteredCompanyName:      org.EnteredCompanyName,
		EnteredRegistryNumber:   org.EnteredRegistryNumber,
		ExtractedCompanyName:    org.ExtractedCompanyName,
		ExtractedRegistryNumber: org.ExtractedRegistryNumber,
		DocumentUploadedAt:      org.DocumentUploadedAt,
		AuthenticationTier:      org.Tier,
	}
}

package handler

import (
	"strings"

	dErrors "ctn/pkg/domain-errors"
)

// CreateOrganizationRequest is the body of POST /organizations.
type CreateOrganizationRequest struct {
	Name   string `json:"name"`
	Domain string `json:"domain"`
}

// Validate enforces presence of the onboarding fields.
func (r CreateOrganizationRequest) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return dErrors.New(dErrors.CodeValidation, "name is required")
	}
	if strings.TrimSpace(r.Domain) == "" {
		return dErrors.New(dErrors.CodeValidation, "domain is required")
	}
	return nil
}

// SubmitIdentityRequest is the body of PUT /organizations/{orgID}/identity.
type SubmitIdentityRequest struct {
	CompanyName    string `json:"company_name"`
	RegistryNumber string `json:"registry_number"`
}

// Validate enforces presence; the service trims and stores.
func (r SubmitIdentityRequest) Validate() error {
	if strings.TrimSpace(r.CompanyName) == "" || strings.TrimSpace(r.RegistryNumber) == "" {
		return dErrors.New(dErrors.CodeValidation, "company name and registry number are required")
	}
	return nil
}

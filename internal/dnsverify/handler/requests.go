package handler

import (
	"strings"

	dErrors "ctn/pkg/domain-errors"
)

// RequestVerificationRequest is the body of POST
// /organizations/{orgID}/domain-verification.
type RequestVerificationRequest struct {
	Domain string `json:"domain"`
}

// Validate enforces presence; syntactic domain validation belongs to the
// service.
func (r RequestVerificationRequest) Validate() error {
	if strings.TrimSpace(r.Domain) == "" {
		return dErrors.New(dErrors.CodeValidation, "domain is required")
	}
	return nil
}

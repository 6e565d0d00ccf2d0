package handler

import (
	"strings"

	"ctn/internal/identverify"
	dErrors "ctn/pkg/domain-errors"
)

// DocumentResultRequest is the body of POST
// /organizations/{orgID}/identifier-verification, delivered by the document
// extraction collaborator once processing completes.
type DocumentResultRequest struct {
	ExtractedCompanyName    string `json:"extracted_company_name"`
	ExtractedRegistryNumber string `json:"extracted_registry_number"`
	ExtractionFailed        bool   `json:"extraction_failed"`
}

// Validate enforces that a successful extraction carries a registry number.
// An explicit failure signal needs nothing else.
func (r DocumentResultRequest) Validate() error {
	if r.ExtractionFailed {
		return nil
	}
	if strings.TrimSpace(r.ExtractedRegistryNumber) == "" && strings.TrimSpace(r.ExtractedCompanyName) == "" {
		return dErrors.New(dErrors.CodeValidation, "extraction result is empty; set extraction_failed to report a failure")
	}
	return nil
}

// Extraction maps the wire form onto the engine's input.
func (r DocumentResultRequest) Extraction() identverify.ExtractionResult {
	return identverify.ExtractionResult{
		CompanyName:    strings.TrimSpace(r.ExtractedCompanyName),
		RegistryNumber: strings.TrimSpace(r.ExtractedRegistryNumber),
		Failed:         r.ExtractionFailed,
	}
}

package identverify

import "strings"

// Mismatch flag names accumulated during identifier verification. The
// entered_* flags mark discrepancies between applicant-entered data and the
// uploaded document; the remaining flags originate from the external business
// registry and are stored verbatim.
const (
	FlagExtractionFailed      = "extraction_failed"
	FlagEnteredNumberMismatch = "entered_number_mismatch"
	FlagEnteredNameMismatch   = "entered_name_mismatch"
)

// ExtractionResult is what the document extraction collaborator delivers
// after processing an uploaded proof document. Extraction is performed out of
// process; this engine only consumes its output.
type ExtractionResult struct {
	CompanyName    string `json:"company_name"`
	RegistryNumber string `json:"registry_number"`
	// Failed marks an explicit extraction-failure signal from the
	// collaborator.
	Failed bool `json:"failed"`
}

// Unusable reports whether the extraction recovered no registry number at
// all, which short-circuits the comparison pipeline.
func (r ExtractionResult) Unusable() bool {
	return r.Failed || strings.TrimSpace(r.RegistryNumber) == ""
}

// ValidationResult is the external business registry's verdict for a
// registry number.
type ValidationResult struct {
	IsValid       bool     `json:"is_valid"`
	Flags         []string `json:"flags,omitempty"`
	CanonicalName string   `json:"canonical_name,omitempty"`
}

// Entered is the applicant-entered identity data captured at registration.
type Entered struct {
	CompanyName    string
	RegistryNumber string
}

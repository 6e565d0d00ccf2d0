package identverify

import (
	"slices"
	"strings"
	"unicode"

	"ctn/internal/organization/models"
)

// Outcome is the terminal result of one identifier verification cycle.
type Outcome struct {
	Status models.VerificationStatus
	Flags  []string
}

// Evaluate runs the comparison pipeline and derives the verification status.
// Pure: the registry validation has already happened (or not, when the
// collaborator was unreachable, in which case validation is nil).
//
// Registry numbers compare by exact, case-sensitive equality; names compare
// by bidirectional containment after normalization. Flags from the external
// registry are unioned in verbatim.
func Evaluate(entered Entered, extraction ExtractionResult, validation *ValidationResult) Outcome {
	if extraction.Unusable() {
		return Outcome{
			Status: models.VerificationFailed,
			Flags:  []string{FlagExtractionFailed},
		}
	}

	var flags []string
	if entered.RegistryNumber != "" && extraction.RegistryNumber != "" &&
		entered.RegistryNumber != extraction.RegistryNumber {
		flags = append(flags, FlagEnteredNumberMismatch)
	}
	if entered.CompanyName != "" && extraction.CompanyName != "" &&
		!namesMatch(entered.CompanyName, extraction.CompanyName) {
		flags = append(flags, FlagEnteredNameMismatch)
	}
	if validation != nil {
		for _, flag := range validation.Flags {
			if !slices.Contains(flags, flag) {
				flags = append(flags, flag)
			}
		}
	}

	return Outcome{Status: deriveStatus(flags, validation), Flags: flags}
}

// deriveStatus applies the priority chain, first match wins. An entered-data
// mismatch always flags the record: the applicant supplied data that
// contradicts its own document, which a passing external validation of the
// extracted number must never clear.
func deriveStatus(flags []string, validation *ValidationResult) models.VerificationStatus {
	if len(flags) == 0 {
		return models.VerificationVerified
	}
	if slices.Contains(flags, FlagEnteredNumberMismatch) || slices.Contains(flags, FlagEnteredNameMismatch) {
		return models.VerificationFlagged
	}
	if validation != nil && validation.IsValid {
		return models.VerificationVerified
	}
	return models.VerificationFlagged
}

// namesMatch reports whether either normalized name contains the other.
// Containment, not edit distance: a registered name is routinely a prefix of
// the registry's long-form name with legal suffixes appended.
func namesMatch(a, b string) bool {
	na, nb := normalizeName(a), normalizeName(b)
	if na == "" || nb == "" {
		return false
	}
	return strings.Contains(na, nb) || strings.Contains(nb, na)
}

// normalizeName lowercases, drops punctuation and collapses runs of
// whitespace, so "Acme B.V." and "acme bv" normalize identically.
func normalizeName(name string) string {
	var b strings.Builder
	pendingSpace := false
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			if pendingSpace && b.Len() > 0 {
				b.WriteByte(' ')
			}
			pendingSpace = false
			b.WriteRune(r)
		case unicode.IsSpace(r):
			pendingSpace = true
		}
	}
	return b.String()
}

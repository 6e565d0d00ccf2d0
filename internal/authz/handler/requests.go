package handler

import (
	"strings"

	dErrors "ctn/pkg/domain-errors"
)

// AuthorizeRequest is the body of POST /authorize.
type AuthorizeRequest struct {
	Resource string `json:"resource"`
	Action   string `json:"action"`
}

// Validate enforces presence of the pair.
func (r AuthorizeRequest) Validate() error {
	if strings.TrimSpace(r.Resource) == "" || strings.TrimSpace(r.Action) == "" {
		return dErrors.New(dErrors.CodeValidation, "resource and action are required")
	}
	return nil
}

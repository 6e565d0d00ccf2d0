// Package domain holds typed identifiers shared across modules. Wrapping
// uuid.UUID in distinct types makes cross-entity ID assignment a compile
// error rather than a runtime bug.
package domain

import (
	"github.com/google/uuid"

	dErrors "ctn/pkg/domain-errors"
)

// OrgID identifies an organization (legal entity).
type OrgID uuid.UUID

// TokenID identifies a domain verification token.
type TokenID uuid.UUID

func (id OrgID) String() string   { return uuid.UUID(id).String() }
func (id OrgID) IsNil() bool      { return uuid.UUID(id) == uuid.Nil }
func (id TokenID) String() string { return uuid.UUID(id).String() }
func (id TokenID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }

// NewOrgID returns a fresh random organization ID.
func NewOrgID() OrgID { return OrgID(uuid.New()) }

// NewTokenID returns a fresh random token ID.
func NewTokenID() TokenID { return TokenID(uuid.New()) }

// ParseOrgID parses and validates an organization ID from its string form.
func ParseOrgID(s string) (OrgID, error) {
	u, err := parseUUID(s)
	if err != nil {
		return OrgID{}, err
	}
	return OrgID(u), nil
}

// ParseTokenID parses and validates a token ID from its string form.
func ParseTokenID(s string) (TokenID, error) {
	u, err := parseUUID(s)
	if err != nil {
		return TokenID{}, err
	}
	return TokenID(u), nil
}

// parseUUID enforces the shared ID invariant: valid, non-empty, non-nil.
func parseUUID(s string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id must not be empty")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id must be a valid UUID")
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id must not be the nil UUID")
	}
	return u, nil
}

package authz

import (
	"fmt"

	dErrors "ctn/pkg/domain-errors"
)

// Policy maps each protected (resource, action) pair to the minimum trust
// tier required to perform it. Lower numeral means deeper verification, so
// "minimum" here is the largest numeral the engine still grants.
type Policy struct {
	rules map[ruleKey]int
}

type ruleKey struct {
	resource string
	action   string
}

// NewPolicy builds an empty policy table.
func NewPolicy() *Policy {
	return &Policy{rules: make(map[ruleKey]int)}
}

// Require registers the tier required for a (resource, action) pair.
// Re-registering a pair overwrites the earlier entry.
func (p *Policy) Require(resource, action string, tier int) *Policy {
	p.rules[ruleKey{resource: resource, action: action}] = tier
	return p
}

// RequiredTier resolves the tier required for a pair. Unknown pairs are an
// error: the engine fails closed instead of assuming a baseline.
func (p *Policy) RequiredTier(resource, action string) (int, error) {
	tier, ok := p.rules[ruleKey{resource: resource, action: action}]
	if !ok {
		return 0, dErrors.New(dErrors.CodeForbidden,
			fmt.Sprintf("no policy for %s/%s", resource, action))
	}
	return tier, nil
}

// DefaultPolicy is the static production table.
func DefaultPolicy() *Policy {
	return NewPolicy().
		Require("organization", "read", 3).
		Require("organization", "update", 2).
		Require("members", "read", 3).
		Require("members", "export", 2).
		Require("contracts", "read", 2).
		Require("contracts", "sign", 1).
		Require("billing", "read", 2).
		Require("billing", "update", 1)
}

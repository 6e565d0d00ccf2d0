package dnsverify

import (
	"context"
	"time"

	id "ctn/pkg/domain"
)

// AttemptOutcome is applied to a token after a DNS lookup completes. The
// store only applies it while the token is still pending, which gives
// concurrent attempts last-writer-loses semantics without locks.
type AttemptOutcome struct {
	Status           Status
	ResolverFailures int
	VerifiedAt       *time.Time
}

// Store persists domain verification tokens.
//
// Implementations return sentinel.ErrConflict from CreateIfNoneActive when a
// pending token already exists for the (organization, domain) pair, and
// sentinel.ErrTerminal from ApplyAttemptOutcome when another attempt already
// transitioned the token.
type Store interface {
	CreateIfNoneActive(ctx context.Context, token *Token) error
	FindByID(ctx context.Context, tokenID id.TokenID) (*Token, error)
	FindActive(ctx context.Context, orgID id.OrgID, domain string) (*Token, error)

	// RecordAttempt increments the attempt counter and stamps the attempt
	// time. It runs in its own short transaction before the DNS lookup so
	// no transaction is held across the network wait.
	RecordAttempt(ctx context.Context, tokenID id.TokenID, at time.Time) error

	// ApplyAttemptOutcome applies the lookup result, guarded by a
	// status=pending predicate (the optimistic check from the attempt
	// protocol). Returns the updated token.
	ApplyAttemptOutcome(ctx context.Context, tokenID id.TokenID, outcome AttemptOutcome) (*Token, error)

	// DeleteTerminalBefore prunes terminal tokens created before the
	// cutoff and reports how many were removed.
	DeleteTerminalBefore(ctx context.Context, cutoff time.Time) (int, error)
}

package dnsverify

import (
	"context"
	"strings"
	"sync"
	"time"

	id "ctn/pkg/domain"
	"ctn/pkg/platform/sentinel"
)

// InMemory is a map-backed Store for tests and single-node development.
// The pending-uniqueness invariant is enforced under the store mutex, the
// same guarantee the partial unique index gives the Postgres store.
type InMemory struct {
	mu     sync.Mutex
	tokens map[id.TokenID]*Token
}

// NewInMemory constructs an empty in-memory token store.
func NewInMemory() *InMemory {
	return &InMemory{tokens: make(map[id.TokenID]*Token)}
}

func (s *InMemory) CreateIfNoneActive(_ context.Context, token *Token) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.tokens {
		if existing.OrgID == token.OrgID &&
			strings.EqualFold(existing.Domain, token.Domain) &&
			existing.Status == StatusPending {
			return sentinel.ErrConflict
		}
	}
	s.tokens[token.ID] = cloneToken(token)
	return nil
}

func (s *InMemory) FindByID(_ context.Context, tokenID id.TokenID) (*Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	token, ok := s.tokens[tokenID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return cloneToken(token), nil
}

func (s *InMemory) FindActive(_ context.Context, orgID id.OrgID, domain string) (*Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, token := range s.tokens {
		if token.OrgID == orgID && strings.EqualFold(token.Domain, domain) && token.Status == StatusPending {
			return cloneToken(token), nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemory) RecordAttempt(_ context.Context, tokenID id.TokenID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	token, ok := s.tokens[tokenID]
	if !ok {
		return sentinel.ErrNotFound
	}
	token.VerificationAttempts++
	attemptAt := at
	token.LastVerificationAttempt = &attemptAt
	return nil
}

func (s *InMemory) ApplyAttemptOutcome(_ context.Context, tokenID id.TokenID, outcome AttemptOutcome) (*Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	token, ok := s.tokens[tokenID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if token.Status != StatusPending {
		return cloneToken(token), sentinel.ErrTerminal
	}
	token.Status = outcome.Status
	token.ResolverFailures = outcome.ResolverFailures
	if outcome.VerifiedAt != nil {
		verifiedAt := *outcome.VerifiedAt
		token.VerifiedAt = &verifiedAt
	}
	return cloneToken(token), nil
}

func (s *InMemory) DeleteTerminalBefore(_ context.Context, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for tokenID, token := range s.tokens {
		if token.Status.Terminal() && token.CreatedAt.Before(cutoff) {
			delete(s.tokens, tokenID)
			removed++
		}
	}
	return removed, nil
}

func cloneToken(token *Token) *Token {
	c := *token
	if token.LastVerificationAttempt != nil {
		at := *token.LastVerificationAttempt
		c.LastVerificationAttempt = &at
	}
	if token.VerifiedAt != nil {
		at := *token.VerifiedAt
		c.VerifiedAt = &at
	}
	return &c
}

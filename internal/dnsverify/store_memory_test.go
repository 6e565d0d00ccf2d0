package dnsverify

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	id "ctn/pkg/domain"
	"ctn/pkg/platform/sentinel"
)

type TokenStoreSuite struct {
	suite.Suite
	store *InMemory
	now   time.Time
}

func (s *TokenStoreSuite) SetupTest() {
	s.store = NewInMemory()
	s.now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
}

func TestTokenStoreSuite(t *testing.T) {
	suite.Run(t, new(TokenStoreSuite))
}

func (s *TokenStoreSuite) newToken(orgID id.OrgID, domain string) *Token {
	token, err := NewToken(orgID, domain, s.now, 24*time.Hour)
	s.Require().NoError(err)
	return token
}

// TestPendingUniqueness tests the one-active-token-per-domain invariant.
func (s *TokenStoreSuite) TestPendingUniqueness() {
	orgID := id.NewOrgID()

	s.Run("rejects a second pending token for the same pair", func() {
		s.Require().NoError(s.store.CreateIfNoneActive(context.Background(), s.newToken(orgID, "example.com")))

		err := s.store.CreateIfNoneActive(context.Background(), s.newToken(orgID, "example.com"))
		s.Require().ErrorIs(err, sentinel.ErrConflict)
	})

	s.Run("domain comparison is case-insensitive", func() {
		err := s.store.CreateIfNoneActive(context.Background(), s.newToken(orgID, "EXAMPLE.com"))
		s.Require().ErrorIs(err, sentinel.ErrConflict)
	})

	s.Run("a different domain for the same organization is fine", func() {
		s.NoError(s.store.CreateIfNoneActive(context.Background(), s.newToken(orgID, "portal.example.com")))
	})

	s.Run("the same domain for a different organization is fine", func() {
		s.NoError(s.store.CreateIfNoneActive(context.Background(), s.newToken(id.NewOrgID(), "example.com")))
	})

	s.Run("a terminal token does not block a fresh cycle", func() {
		store := NewInMemory()
		first := s.newToken(orgID, "example.com")
		s.Require().NoError(store.CreateIfNoneActive(context.Background(), first))
		_, err := store.ApplyAttemptOutcome(context.Background(), first.ID, AttemptOutcome{Status: StatusExpired})
		s.Require().NoError(err)

		s.NoError(store.CreateIfNoneActive(context.Background(), s.newToken(orgID, "example.com")))
	})
}

// TestFindActive tests pending-token lookup by (organization, domain).
func (s *TokenStoreSuite) TestFindActive() {
	orgID := id.NewOrgID()
	token := s.newToken(orgID, "example.com")
	s.Require().NoError(s.store.CreateIfNoneActive(context.Background(), token))

	s.Run("returns the pending token", func() {
		found, err := s.store.FindActive(context.Background(), orgID, "example.com")
		s.Require().NoError(err)
		s.Equal(token.ID, found.ID)
	})

	s.Run("returns ErrNotFound for a domain without one", func() {
		_, err := s.store.FindActive(context.Background(), orgID, "other.example.com")
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})
}

// TestRecordAttempt tests attempt bookkeeping.
func (s *TokenStoreSuite) TestRecordAttempt() {
	token := s.newToken(id.NewOrgID(), "example.com")
	s.Require().NoError(s.store.CreateIfNoneActive(context.Background(), token))

	at := s.now.Add(time.Minute)
	s.Require().NoError(s.store.RecordAttempt(context.Background(), token.ID, at))
	s.Require().NoError(s.store.RecordAttempt(context.Background(), token.ID, at.Add(time.Minute)))

	found, err := s.store.FindByID(context.Background(), token.ID)
	s.Require().NoError(err)
	s.Equal(2, found.VerificationAttempts)
	s.Require().NotNil(found.LastVerificationAttempt)
	s.Equal(at.Add(time.Minute), *found.LastVerificationAttempt)
}

// TestApplyAttemptOutcome tests the optimistic pending-only transition.
func (s *TokenStoreSuite) TestApplyAttemptOutcome() {
	s.Run("applies the outcome to a pending token", func() {
		token := s.newToken(id.NewOrgID(), "example.com")
		s.Require().NoError(s.store.CreateIfNoneActive(context.Background(), token))

		verifiedAt := s.now.Add(time.Hour)
		applied, err := s.store.ApplyAttemptOutcome(context.Background(), token.ID, AttemptOutcome{
			Status:     StatusVerified,
			VerifiedAt: &verifiedAt,
		})
		s.Require().NoError(err)
		s.Equal(StatusVerified, applied.Status)
		s.Require().NotNil(applied.VerifiedAt)
		s.Equal(verifiedAt, *applied.VerifiedAt)
	})

	s.Run("a terminal token returns ErrTerminal with the current row", func() {
		store := NewInMemory()
		token := s.newToken(id.NewOrgID(), "example.com")
		s.Require().NoError(store.CreateIfNoneActive(context.Background(), token))
		_, err := store.ApplyAttemptOutcome(context.Background(), token.ID, AttemptOutcome{Status: StatusFailed, ResolverFailures: 3})
		s.Require().NoError(err)

		current, err := store.ApplyAttemptOutcome(context.Background(), token.ID, AttemptOutcome{Status: StatusExpired})
		s.Require().ErrorIs(err, sentinel.ErrTerminal)
		s.Require().NotNil(current)
		s.Equal(StatusFailed, current.Status)
	})

	s.Run("unknown token returns ErrNotFound", func() {
		_, err := s.store.ApplyAttemptOutcome(context.Background(), id.NewTokenID(), AttemptOutcome{Status: StatusExpired})
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})
}

// TestDeleteTerminalBefore tests retention pruning.
func (s *TokenStoreSuite) TestDeleteTerminalBefore() {
	old := s.newToken(id.NewOrgID(), "old.example.com")
	s.Require().NoError(s.store.CreateIfNoneActive(context.Background(), old))
	_, err := s.store.ApplyAttemptOutcome(context.Background(), old.ID, AttemptOutcome{Status: StatusExpired})
	s.Require().NoError(err)

	pending := s.newToken(id.NewOrgID(), "pending.example.com")
	s.Require().NoError(s.store.CreateIfNoneActive(context.Background(), pending))

	removed, err := s.store.DeleteTerminalBefore(context.Background(), s.now.Add(time.Hour))
	s.Require().NoError(err)
	s.Equal(1, removed)

	_, err = s.store.FindByID(context.Background(), old.ID)
	s.Require().ErrorIs(err, sentinel.ErrNotFound)

	// Pending tokens are never pruned regardless of age.
	_, err = s.store.FindByID(context.Background(), pending.ID)
	s.NoError(err)
}

func (s *TokenStoreSuite) TestClonesAreIsolated() {
	token := s.newToken(id.NewOrgID(), "example.com")
	s.Require().NoError(s.store.CreateIfNoneActive(context.Background(), token))

	found, err := s.store.FindByID(context.Background(), token.ID)
	s.Require().NoError(err)
	found.Status = StatusFailed

	again, err := s.store.FindByID(context.Background(), token.ID)
	s.Require().NoError(err)
	s.Equal(StatusPending, again.Status)
}

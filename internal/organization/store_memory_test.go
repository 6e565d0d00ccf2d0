package organization_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"ctn/internal/organization"
	"ctn/internal/organization/models"
	id "ctn/pkg/domain"
	"ctn/pkg/platform/sentinel"
)

type InMemoryStoreSuite struct {
	suite.Suite
	store *organization.InMemory
	now   time.Time
}

func TestInMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(InMemoryStoreSuite))
}

func (s *InMemoryStoreSuite) SetupTest() {
	s.store = organization.NewInMemory()
	s.now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
}

func (s *InMemoryStoreSuite) newOrg(name, domain string) *models.Organization {
	return models.NewOrganization(id.NewOrgID(), name, domain, s.now)
}

func (s *InMemoryStoreSuite) TestCreateRejectsDuplicateID() {
	org := s.newOrg("Acme BV", "example.com")
	s.Require().NoError(s.store.Create(context.Background(), org))

	err := s.store.Create(context.Background(), org)
	s.Require().ErrorIs(err, sentinel.ErrConflict)
}

func (s *InMemoryStoreSuite) TestFindUnknownReturnsNotFound() {
	_, err := s.store.FindByID(context.Background(), id.NewOrgID())
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}

func (s *InMemoryStoreSuite) TestUpdateUnknownReturnsNotFound() {
	err := s.store.Update(context.Background(), s.newOrg("Ghost", "ghost.example"))
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}

func (s *InMemoryStoreSuite) TestStoredStateIsIsolated() {
	org := s.newOrg("Acme BV", "example.com")
	org.MismatchFlags = []string{"not_active"}
	uploadedAt := s.now.Add(time.Minute)
	org.DocumentUploadedAt = &uploadedAt
	s.Require().NoError(s.store.Create(context.Background(), org))

	// Mutating the caller's copy must not leak into the store.
	// Snapshot the expected timestamp first: org.DocumentUploadedAt aliases
	// uploadedAt, so the write below would otherwise corrupt the expectation.
	want := uploadedAt
	org.Name = "Evil BV"
	org.MismatchFlags[0] = "tampered"
	*org.DocumentUploadedAt = s.now.Add(time.Hour)

	found, err := s.store.FindByID(context.Background(), org.ID)
	s.Require().NoError(err)
	s.Equal("Acme BV", found.Name)
	s.Equal([]string{"not_active"}, found.MismatchFlags)
	s.True(found.DocumentUploadedAt.Equal(want))

	// And neither must mutating a returned copy.
	found.Name = "Other BV"
	again, err := s.store.FindByID(context.Background(), org.ID)
	s.Require().NoError(err)
	s.Equal("Acme BV", again.Name)
}

func (s *InMemoryStoreSuite) TestListReverificationDuePredicate() {
	ctx := context.Background()

	overdue := s.newOrg("Overdue BV", "overdue.example")
	overdueAt := s.now.Add(-time.Hour)
	overdue.Tier = models.TierDNS
	overdue.DNSReverificationDue = &overdueAt
	s.Require().NoError(s.store.Create(ctx, overdue))

	exactlyDue := s.newOrg("Exact BV", "exact.example")
	exactAt := s.now
	exactlyDue.Tier = models.TierDNS
	exactlyDue.DNSReverificationDue = &exactAt
	s.Require().NoError(s.store.Create(ctx, exactlyDue))

	fresh := s.newOrg("Fresh BV", "fresh.example")
	freshAt := s.now.Add(time.Hour)
	fresh.Tier = models.TierDNS
	fresh.DNSReverificationDue = &freshAt
	s.Require().NoError(s.store.Create(ctx, fresh))

	// Tier-1 organizations are outside the sweep even with a stale deadline.
	sso := s.newOrg("SSO BV", "sso.example")
	sso.Tier = models.TierSSO
	sso.DNSReverificationDue = &overdueAt
	s.Require().NoError(s.store.Create(ctx, sso))

	due, err := s.store.ListReverificationDue(ctx, s.now)
	s.Require().NoError(err)
	s.Require().Len(due, 2)

	ids := map[id.OrgID]bool{due[0].ID: true, due[1].ID: true}
	s.True(ids[overdue.ID])
	s.True(ids[exactlyDue.ID])
}

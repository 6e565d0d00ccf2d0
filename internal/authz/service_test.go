package authz

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"ctn/internal/organization"
	orgmodels "ctn/internal/organization/models"
	id "ctn/pkg/domain"
	dErrors "ctn/pkg/domain-errors"
	"ctn/pkg/requestcontext"
)

// failingStore wraps a Store and fails Append after a set number of calls.
type failingStore struct {
	*InMemory
	failAfter int
	appends   int
}

func (s *failingStore) Append(ctx context.Context, record *DecisionRecord) error {
	s.appends++
	if s.appends > s.failAfter {
		return errors.New("connection refused")
	}
	return s.InMemory.Append(ctx, record)
}

type ServiceSuite struct {
	suite.Suite
	orgs    *organization.Service
	store   *InMemory
	service *Service
	org     *orgmodels.Organization
	ctx     context.Context
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	ctx := requestcontext.WithTime(context.Background(), now)
	ctx = requestcontext.WithUserIdentifier(ctx, "user@example.com")
	ctx = requestcontext.WithClientMetadata(ctx, "203.0.113.7",
		"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36")
	ctx = requestcontext.WithRequestPath(ctx, "/members/export")
	s.ctx = ctx

	s.orgs = organization.New(organization.NewInMemory())
	s.store = NewInMemory()
	s.service = New(DefaultPolicy(), s.orgs, s.store)

	var err error
	s.org, err = s.orgs.Create(ctx, "Acme BV", "example.com")
	s.Require().NoError(err)
}

func (s *ServiceSuite) records() []*DecisionRecord {
	records, err := s.store.ListByOrganization(context.Background(), s.org.ID, 0)
	s.Require().NoError(err)
	return records
}

func (s *ServiceSuite) TestAuthorize_TierComparison() {
	s.Run("baseline organization satisfies a tier-3 requirement", func() {
		decision, err := s.service.Authorize(s.ctx, "members", "read", &s.org.ID)
		s.Require().NoError(err)
		s.True(decision.Granted())
		s.Equal(3, decision.RequiredTier)
		s.Require().NotNil(decision.UserTier)
		s.Equal(orgmodels.TierBaseline, *decision.UserTier)
	})

	s.Run("baseline organization is denied a tier-2 requirement", func() {
		decision, err := s.service.Authorize(s.ctx, "members", "export", &s.org.ID)
		s.Require().NoError(err)
		s.False(decision.Granted())
		s.Equal("Insufficient tier: requires 2, has 3", decision.DenialReason)
	})

	s.Run("a DNS-verified organization satisfies tier 2 but not tier 1", func() {
		_, err := s.orgs.ApplyDNSProof(s.ctx, s.org.ID, "example.com", 90*24*time.Hour)
		s.Require().NoError(err)

		decision, err := s.service.Authorize(s.ctx, "members", "export", &s.org.ID)
		s.Require().NoError(err)
		s.True(decision.Granted())

		decision, err = s.service.Authorize(s.ctx, "contracts", "sign", &s.org.ID)
		s.Require().NoError(err)
		s.False(decision.Granted())
		s.Equal("Insufficient tier: requires 1, has 2", decision.DenialReason)
	})
}

func (s *ServiceSuite) TestAuthorize_AlwaysWritesOneRecord() {
	decision, err := s.service.Authorize(s.ctx, "members", "export", &s.org.ID)
	s.Require().NoError(err)
	s.False(decision.Granted())

	records := s.records()
	s.Require().Len(records, 1)

	record := records[0]
	s.Equal(decision.LogID, record.LogID)
	s.Equal(ResultDenied, record.Result)
	s.Equal("members", record.RequestedResource)
	s.Equal("export", record.RequestedAction)
	s.Equal(2, record.RequiredTier)
	s.Require().NotNil(record.UserTier)
	s.Equal(3, *record.UserTier)
	s.Equal("user@example.com", record.UserIdentifier)
	s.Equal("203.0.113.7", record.ClientIP)
	s.Equal("/members/export", record.RequestPath)
	s.NotEmpty(record.UserAgentSummary)
	s.Equal(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC), record.CreatedAt)
}

func (s *ServiceSuite) TestAuthorize_GrantedAlsoAudited() {
	decision, err := s.service.Authorize(s.ctx, "organization", "read", &s.org.ID)
	s.Require().NoError(err)
	s.True(decision.Granted())

	records := s.records()
	s.Require().Len(records, 1)
	s.Equal(ResultGranted, records[0].Result)
	s.Empty(records[0].DenialReason)
}

func (s *ServiceSuite) TestAuthorize_UnknownOrganizationDenies() {
	unknown := id.NewOrgID()
	decision, err := s.service.Authorize(s.ctx, "members", "read", &unknown)
	s.Require().NoError(err)
	s.False(decision.Granted())
	s.Equal("organization lookup failed", decision.DenialReason)
	s.Nil(decision.UserTier)
}

func (s *ServiceSuite) TestAuthorize_NoOrganizationDenies() {
	decision, err := s.service.Authorize(s.ctx, "members", "read", nil)
	s.Require().NoError(err)
	s.False(decision.Granted())
	s.Equal("no organization resolved for caller", decision.DenialReason)
}

func (s *ServiceSuite) TestAuthorize_UnknownPolicyPairDenies() {
	decision, err := s.service.Authorize(s.ctx, "members", "delete", &s.org.ID)
	s.Require().NoError(err)
	s.False(decision.Granted())
	s.Equal("no policy for requested resource and action", decision.DenialReason)

	records := s.records()
	s.Require().Len(records, 1)
	s.Zero(records[0].RequiredTier)
}

func (s *ServiceSuite) TestAuthorize_FailsClosedOnAuditWriteFailure() {
	store := &failingStore{InMemory: NewInMemory(), failAfter: 0}
	service := New(DefaultPolicy(), s.orgs, store)

	// The tier comparison would grant, but the audit write fails.
	decision, err := service.Authorize(s.ctx, "members", "read", &s.org.ID)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeInternal))
	s.False(decision.Granted())
	s.Equal("authorization audit unavailable", decision.DenialReason)
	s.Equal(1, store.appends, "exactly one append per call even on failure")
}

func (s *ServiceSuite) TestDecisionIDsAreSortable() {
	for _, action := range []string{"read", "export", "read"} {
		_, err := s.service.Authorize(s.ctx, "members", action, &s.org.ID)
		s.Require().NoError(err)
	}

	records := s.records()
	s.Require().Len(records, 3)
	// ListByOrganization returns newest first; ulids sort by insertion.
	s.True(records[0].LogID > records[1].LogID)
	s.True(records[1].LogID > records[2].LogID)
}

package dnsverify

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

// fakeResolver serves TXT records from a map and can simulate
// resolver-level failures.
type fakeResolver struct {
	records map[string][]string
	err     error
	calls   int
}

func (r *fakeResolver) LookupTXT(_ context.Context, recordName string) ([]string, error) {
	r.calls++
	if r.err != nil {
		return nil, r.err
	}
	return r.records[recordName], nil
}

type ServiceSuite struct {
	suite.Suite
	tokens   *InMemory
	orgs     *organization.Service
	resolver *fakeResolver
	service  *Service
	org      *orgmodels.Organization
	start    time.Time
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.start = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s.tokens = NewInMemory()
	s.orgs = organization.New(organization.NewInMemory())
	s.resolver = &fakeResolver{records: map[string][]string{}}
	s.service = New(s.tokens, s.orgs, s.resolver)

	var err error
	s.org, err = s.orgs.Create(s.ctxAt(s.start), "Acme BV", "example.com")
	s.Require().NoError(err)
}

// ctxAt pins the request clock so expiry is simulated, not slept through.
func (s *ServiceSuite) ctxAt(t time.Time) context.Context {
	return requestcontext.WithTime(context.Background(), t)
}

func (s *ServiceSuite) publish(token *Token) {
	s.resolver.records[token.RecordName] = []string{"some-other-record", token.Token}
}

func (s *ServiceSuite) TestRequestVerification() {
	s.Run("issues a pending token and stamps the organization", func() {
		ctx := s.ctxAt(s.start)
		token, err := s.service.RequestVerification(ctx, s.org.ID, "example.com")
		s.Require().NoError(err)

		s.Equal(StatusPending, token.Status)
		s.Equal("_ctn-verify.example.com", token.RecordName)
		s.Equal(s.start.Add(24*time.Hour), token.ExpiresAt)

		org, err := s.orgs.Get(ctx, s.org.ID)
		s.Require().NoError(err)
		s.Require().NotNil(org.DNSVerificationInitiatedAt)
		s.Equal(s.start, *org.DNSVerificationInitiatedAt)
	})

	s.Run("rejects a second request while one is pending", func() {
		ctx := s.ctxAt(s.start)
		_, err := s.service.RequestVerification(ctx, s.org.ID, "example.com")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("permits a direct subdomain of the registered domain", func() {
		_, err := s.service.RequestVerification(s.ctxAt(s.start), s.org.ID, "portal.example.com")
		s.NoError(err)
	})

	s.Run("rejects a domain outside the registered domain", func() {
		_, err := s.service.RequestVerification(s.ctxAt(s.start), s.org.ID, "other.net")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("rejects a syntactically invalid domain", func() {
		_, err := s.service.RequestVerification(s.ctxAt(s.start), s.org.ID, "not a domain")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

func (s *ServiceSuite) TestAttemptVerification_Success() {
	ctx := s.ctxAt(s.start)
	token, err := s.service.RequestVerification(ctx, s.org.ID, "example.com")
	s.Require().NoError(err)
	s.publish(token)

	attemptAt := s.start.Add(time.Hour)
	result, err := s.service.AttemptVerification(s.ctxAt(attemptAt), token.ID)
	s.Require().NoError(err)

	s.Equal(StatusVerified, result.Status)
	s.Require().NotNil(result.VerifiedAt)
	s.Equal(attemptAt, *result.VerifiedAt)

	org, err := s.orgs.Get(ctx, s.org.ID)
	s.Require().NoError(err)
	s.Equal(orgmodels.TierDNS, org.Tier)
	s.Equal(orgmodels.MethodDNS, org.Method)
	s.Equal("example.com", org.DNSVerifiedDomain)
	s.Require().NotNil(org.DNSReverificationDue)
	s.Equal(attemptAt.Add(90*24*time.Hour), *org.DNSReverificationDue)
}

func (s *ServiceSuite) TestAttemptVerification_RecordAbsent() {
	ctx := s.ctxAt(s.start)
	token, err := s.service.RequestVerification(ctx, s.org.ID, "example.com")
	s.Require().NoError(err)

	s.Run("stays pending before expiry and counts the attempt", func() {
		result, err := s.service.AttemptVerification(s.ctxAt(s.start.Add(time.Hour)), token.ID)
		s.Require().NoError(err)
		s.Equal(StatusPending, result.Status)

		stored, err := s.tokens.FindByID(context.Background(), token.ID)
		s.Require().NoError(err)
		s.Equal(1, stored.VerificationAttempts)
		s.Require().NotNil(stored.LastVerificationAttempt)
	})

	s.Run("transitions to expired once the TTL elapses", func() {
		result, err := s.service.AttemptVerification(s.ctxAt(s.start.Add(25*time.Hour)), token.ID)
		s.Require().NoError(err)
		s.Equal(StatusExpired, result.Status)

		// The organization never saw a proof; its tier is untouched.
		org, err := s.orgs.Get(ctx, s.org.ID)
		s.Require().NoError(err)
		s.Equal(orgmodels.TierBaseline, org.Tier)
	})
}

func (s *ServiceSuite) TestAttemptVerification_ResolverErrors() {
	ctx := s.ctxAt(s.start)
	token, err := s.service.RequestVerification(ctx, s.org.ID, "example.com")
	s.Require().NoError(err)

	s.resolver.err = errors.New("dial udp: i/o timeout")

	s.Run("first two resolver errors keep the token pending", func() {
		for i := 0; i < 2; i++ {
			result, err := s.service.AttemptVerification(s.ctxAt(s.start.Add(time.Minute)), token.ID)
			s.Require().NoError(err)
			s.Equal(StatusPending, result.Status)
			s.Equal(i+1, result.ResolverFailures)
		}
	})

	s.Run("third consecutive resolver error fails the token", func() {
		result, err := s.service.AttemptVerification(s.ctxAt(s.start.Add(2*time.Minute)), token.ID)
		s.Require().NoError(err)
		s.Equal(StatusFailed, result.Status)
		s.Equal(3, result.ResolverFailures)
	})
}

func (s *ServiceSuite) TestAttemptVerification_FailureCountResets() {
	ctx := s.ctxAt(s.start)
	token, err := s.service.RequestVerification(ctx, s.org.ID, "example.com")
	s.Require().NoError(err)

	s.resolver.err = errors.New("SERVFAIL")
	result, err := s.service.AttemptVerification(s.ctxAt(s.start.Add(time.Minute)), token.ID)
	s.Require().NoError(err)
	s.Equal(1, result.ResolverFailures)

	// A clean answer with the record absent resets the consecutive count.
	s.resolver.err = nil
	result, err = s.service.AttemptVerification(s.ctxAt(s.start.Add(2*time.Minute)), token.ID)
	s.Require().NoError(err)
	s.Equal(StatusPending, result.Status)
	s.Equal(0, result.ResolverFailures)
}

func (s *ServiceSuite) TestAttemptVerification_IdempotentOnTerminal() {
	ctx := s.ctxAt(s.start)
	token, err := s.service.RequestVerification(ctx, s.org.ID, "example.com")
	s.Require().NoError(err)
	s.publish(token)

	first, err := s.service.AttemptVerification(s.ctxAt(s.start.Add(time.Hour)), token.ID)
	s.Require().NoError(err)
	s.Equal(StatusVerified, first.Status)

	second, err := s.service.AttemptVerification(s.ctxAt(s.start.Add(2*time.Hour)), token.ID)
	s.Require().NoError(err)
	s.Equal(StatusVerified, second.Status)
	s.Equal(first.VerifiedAt, second.VerifiedAt)
	s.Equal(first.VerificationAttempts, second.VerificationAttempts, "terminal attempts do not count further")
}

// flakyOrgs fails ApplyDNSProof a set number of times before delegating,
// simulating the promotion write dying after the token turned verified.
type flakyOrgs struct {
	*organization.Service
	failures int
	calls    int
}

func (f *flakyOrgs) ApplyDNSProof(ctx context.Context, orgID id.OrgID, domain string, reverifyAfter time.Duration) (*orgmodels.Organization, error) {
	f.calls++
	if f.failures > 0 {
		f.failures--
		return nil, errors.New("connection reset")
	}
	return f.Service.ApplyDNSProof(ctx, orgID, domain, reverifyAfter)
}

func (s *ServiceSuite) TestAttemptVerification_PromotionRetriedAfterFailure() {
	flaky := &flakyOrgs{Service: s.orgs, failures: 1}
	service := New(s.tokens, flaky, s.resolver)

	token, err := service.RequestVerification(s.ctxAt(s.start), s.org.ID, "example.com")
	s.Require().NoError(err)
	s.publish(token)

	verifyAt := s.start.Add(time.Hour)
	_, err = service.AttemptVerification(s.ctxAt(verifyAt), token.ID)
	s.Require().Error(err, "the failed promotion surfaces")

	stored, err := s.tokens.FindByID(context.Background(), token.ID)
	s.Require().NoError(err)
	s.Equal(StatusVerified, stored.Status, "the token transition already committed")

	org, err := s.orgs.Get(s.ctxAt(verifyAt), s.org.ID)
	s.Require().NoError(err)
	s.Equal(orgmodels.TierBaseline, org.Tier)

	// A later attempt on the now-terminal token closes the gap, keeping the
	// deadline anchored to the original verification time.
	retryAt := s.start.Add(3 * time.Hour)
	retried, err := service.AttemptVerification(s.ctxAt(retryAt), token.ID)
	s.Require().NoError(err)
	s.Equal(StatusVerified, retried.Status)

	org, err = s.orgs.Get(s.ctxAt(retryAt), s.org.ID)
	s.Require().NoError(err)
	s.Equal(orgmodels.TierDNS, org.Tier)
	s.Equal("example.com", org.DNSVerifiedDomain)
	s.Require().NotNil(org.DNSReverificationDue)
	s.True(org.DNSReverificationDue.Equal(verifyAt.Add(90*24*time.Hour)), "deadline unchanged by the retry")

	// Once the evidence is in place, further attempts leave it alone.
	_, err = service.AttemptVerification(s.ctxAt(retryAt.Add(time.Hour)), token.ID)
	s.Require().NoError(err)
	s.Equal(2, flaky.calls)
}

func (s *ServiceSuite) TestAttemptVerification_UnknownToken() {
	_, err := s.service.AttemptVerification(s.ctxAt(s.start), id.NewTokenID())
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *ServiceSuite) TestCheckReverificationDue() {
	ctx := s.ctxAt(s.start)
	token, err := s.service.RequestVerification(ctx, s.org.ID, "example.com")
	s.Require().NoError(err)
	s.publish(token)
	_, err = s.service.AttemptVerification(s.ctxAt(s.start), token.ID)
	s.Require().NoError(err)

	s.Run("before the deadline the sweep is a no-op", func() {
		downgraded, err := s.service.CheckReverificationDue(s.ctxAt(s.start.Add(89 * 24 * time.Hour)))
		s.Require().NoError(err)
		s.Zero(downgraded)
	})

	s.Run("past the deadline the organization is downgraded exactly once", func() {
		after := s.ctxAt(s.start.Add(91 * 24 * time.Hour))

		downgraded, err := s.service.CheckReverificationDue(after)
		s.Require().NoError(err)
		s.Equal(1, downgraded)

		org, err := s.orgs.Get(after, s.org.ID)
		s.Require().NoError(err)
		s.Equal(orgmodels.TierBaseline, org.Tier)
		s.Empty(org.DNSVerifiedDomain)

		// Repeated sweeps before a fresh proof are no-ops.
		downgraded, err = s.service.CheckReverificationDue(after)
		s.Require().NoError(err)
		s.Zero(downgraded)
	})

	s.Run("the historical token record survives the downgrade", func() {
		stored, err := s.tokens.FindByID(context.Background(), token.ID)
		s.Require().NoError(err)
		s.Equal(StatusVerified, stored.Status)
	})
}

func (s *ServiceSuite) TestCleanupExpiredTokens() {
	ctx := s.ctxAt(s.start)
	token, err := s.service.RequestVerification(ctx, s.org.ID, "example.com")
	s.Require().NoError(err)

	// Let the token expire, then age it past the retention window.
	_, err = s.service.AttemptVerification(s.ctxAt(s.start.Add(25*time.Hour)), token.ID)
	s.Require().NoError(err)

	removed, err := s.service.CleanupExpiredTokens(s.ctxAt(s.start.Add(24 * time.Hour)))
	s.Require().NoError(err)
	s.Zero(removed, "tokens inside the retention window are kept")

	removed, err = s.service.CleanupExpiredTokens(s.ctxAt(s.start.Add(31 * 24 * time.Hour)))
	s.Require().NoError(err)
	s.Equal(1, removed)

	_, err = s.tokens.FindByID(context.Background(), token.ID)
	s.Error(err)
}

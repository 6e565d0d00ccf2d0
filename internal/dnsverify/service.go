package dnsverify

import (
	"context"
	"errors"
	"log/slog"
	"regexp"
	"slices"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"ctn/internal/dnsverify/metrics"
	orgmodels "ctn/internal/organization/models"
	id "ctn/pkg/domain"
	dErrors "ctn/pkg/domain-errors"
	"ctn/pkg/platform/sentinel"
	"ctn/pkg/requestcontext"
)

// Policy carries the time and retry bounds of the verification state machine.
type Policy struct {
	TokenTTL               time.Duration
	ReverificationInterval time.Duration
	TokenRetention         time.Duration
	MaxResolverFailures    int
}

// DefaultPolicy returns the production policy: 24h challenges, 90-day
// re-proof, 30-day terminal-token retention, failed after 3 consecutive
// resolver errors.
func DefaultPolicy() Policy {
	return Policy{
		TokenTTL:               24 * time.Hour,
		ReverificationInterval: 90 * 24 * time.Hour,
		TokenRetention:         30 * 24 * time.Hour,
		MaxResolverFailures:    3,
	}
}

// Organizations is the slice of the organization service the state machine
// needs: evidence writes go through it so the tier recompute stays in one
// place.
type Organizations interface {
	Get(ctx context.Context, orgID id.OrgID) (*orgmodels.Organization, error)
	MarkDNSInitiated(ctx context.Context, orgID id.OrgID) error
	ApplyDNSProof(ctx context.Context, orgID id.OrgID, verifiedDomain string, reverifyAfter time.Duration) (*orgmodels.Organization, error)
	RevokeDNSProof(ctx context.Context, orgID id.OrgID) error
	ListReverificationDue(ctx context.Context, now time.Time) ([]*orgmodels.Organization, error)
}

// Service is the domain verification state machine.
type Service struct {
	tokens   Store
	orgs     Organizations
	resolver Resolver
	policy   Policy
	logger   *slog.Logger
	metrics  *metrics.Metrics
	tracer   trace.Tracer
}

// Option configures a Service.
type Option func(*Service)

// WithLogger attaches a structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithMetrics attaches module metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithPolicy overrides the default policy.
func WithPolicy(p Policy) Option {
	return func(s *Service) { s.policy = p }
}

// New constructs the state machine service.
func New(tokens Store, orgs Organizations, resolver Resolver, opts ...Option) *Service {
	s := &Service{
		tokens:   tokens,
		orgs:     orgs,
		resolver: resolver,
		policy:   DefaultPolicy(),
		tracer:   otel.Tracer("ctn/dnsverify"),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// domainPattern accepts syntactically valid DNS names: dot-separated labels
// of letters, digits and hyphens, not hyphen-led or hyphen-terminated.
var domainPattern = regexp.MustCompile(`^([a-zA-Z0-9]([a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?\.)+[a-zA-Z]{2,}$`)

// RequestVerification issues a fresh challenge token for the organization's
// domain. The caller must publish the returned secret as a TXT record named
// RecordName before attempting verification.
func (s *Service) RequestVerification(ctx context.Context, orgID id.OrgID, domain string) (*Token, error) {
	domain = strings.ToLower(strings.TrimSpace(domain))
	if !domainPattern.MatchString(domain) {
		return nil, dErrors.New(dErrors.CodeValidation, "domain is not syntactically valid")
	}

	org, err := s.orgs.Get(ctx, orgID)
	if err != nil {
		return nil, err
	}
	if !domainPermitted(org.Domain, domain) {
		return nil, dErrors.New(dErrors.CodeValidation, "domain does not match the organization's registered domain")
	}

	token, err := NewToken(orgID, domain, requestcontext.Now(ctx), s.policy.TokenTTL)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "issue verification token")
	}

	if err := s.tokens.CreateIfNoneActive(ctx, token); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, "a verification is already pending for this domain")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "store verification token")
	}

	if err := s.orgs.MarkDNSInitiated(ctx, orgID); err != nil {
		return nil, err
	}

	s.metrics.IncRequested()
	s.logger.InfoContext(ctx, "dns verification requested",
		"org_id", orgID,
		"domain", domain,
		"record_name", token.RecordName,
		"expires_at", token.ExpiresAt,
	)
	return token, nil
}

// AttemptVerification runs one proof attempt against DNS.
//
// The attempt protocol deliberately spans two short store writes with the
// network lookup in between: attempt counters first, lookup without any
// transaction held, then the outcome guarded by a still-pending check. A
// concurrent attempt that loses the race observes the terminal state and
// returns it unchanged.
func (s *Service) AttemptVerification(ctx context.Context, tokenID id.TokenID) (*Token, error) {
	token, err := s.tokens.FindByID(ctx, tokenID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "verification token not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "load verification token")
	}
	if token.Status.Terminal() {
		if err := s.reconcileProof(ctx, token); err != nil {
			return nil, err
		}
		return token, nil
	}

	now := requestcontext.Now(ctx)
	if err := s.tokens.RecordAttempt(ctx, tokenID, now); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "record verification attempt")
	}

	txts, lookupErr := s.lookup(ctx, token.RecordName)
	outcome := s.decide(token, txts, lookupErr, now)

	applied, err := s.tokens.ApplyAttemptOutcome(ctx, tokenID, outcome)
	if err != nil {
		if errors.Is(err, sentinel.ErrTerminal) {
			// Another attempt transitioned the token first; its result stands.
			if rerr := s.reconcileProof(ctx, applied); rerr != nil {
				return nil, rerr
			}
			return applied, nil
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "apply attempt outcome")
	}

	s.metrics.IncAttempt(string(applied.Status))
	s.logger.InfoContext(ctx, "dns verification attempt",
		"token_id", tokenID,
		"org_id", token.OrgID,
		"domain", token.Domain,
		"status", applied.Status,
		"attempts", token.VerificationAttempts+1,
		"resolver_failures", applied.ResolverFailures,
	)

	if err := s.reconcileProof(ctx, applied); err != nil {
		return nil, err
	}
	return applied, nil
}

// reconcileProof applies the DNS proof of a verified token to its
// organization when the evidence is missing there. Covers both the fresh
// transition and the crash window between the token write and the promotion:
// a later attempt on the same token finds the gap and closes it. The
// reverification deadline stays anchored to the original verification time,
// and a proof whose deadline has already lapsed is left alone for the sweep's
// bookkeeping.
func (s *Service) reconcileProof(ctx context.Context, token *Token) error {
	if token.Status != StatusVerified || token.VerifiedAt == nil {
		return nil
	}
	now := requestcontext.Now(ctx)
	due := token.VerifiedAt.Add(s.policy.ReverificationInterval)
	if !now.Before(due) {
		return nil
	}

	org, err := s.orgs.Get(ctx, token.OrgID)
	if err != nil {
		return err
	}
	if org.DNSVerifiedDomain == token.Domain && org.DNSVerifiedAt != nil {
		return nil
	}

	if _, err := s.orgs.ApplyDNSProof(ctx, token.OrgID, token.Domain, due.Sub(now)); err != nil {
		return err
	}
	if !token.VerifiedAt.Equal(now) {
		s.logger.WarnContext(ctx, "re-applied dns proof missing from organization",
			"org_id", token.OrgID,
			"domain", token.Domain,
			"verified_at", token.VerifiedAt,
		)
	}
	return nil
}

// CheckReverificationDue downgrades every tier-2 organization whose re-proof
// deadline has passed. Idempotent: downgraded organizations drop out of the
// due predicate, so concurrent or repeated sweeps are no-ops.
func (s *Service) CheckReverificationDue(ctx context.Context) (int, error) {
	now := requestcontext.Now(ctx)
	due, err := s.orgs.ListReverificationDue(ctx, now)
	if err != nil {
		return 0, err
	}

	downgraded := 0
	for _, org := range due {
		if err := s.orgs.RevokeDNSProof(ctx, org.ID); err != nil {
			s.logger.ErrorContext(ctx, "reverification downgrade failed",
				"org_id", org.ID,
				"error", err,
			)
			continue
		}
		downgraded++
	}
	s.metrics.AddDowngraded(downgraded)
	return downgraded, nil
}

// CleanupExpiredTokens prunes terminal tokens older than the retention
// window.
func (s *Service) CleanupExpiredTokens(ctx context.Context) (int, error) {
	cutoff := requestcontext.Now(ctx).Add(-s.policy.TokenRetention)
	removed, err := s.tokens.DeleteTerminalBefore(ctx, cutoff)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "prune verification tokens")
	}
	s.metrics.AddPruned(removed)
	return removed, nil
}

// GetToken loads a token for display.
func (s *Service) GetToken(ctx context.Context, tokenID id.TokenID) (*Token, error) {
	token, err := s.tokens.FindByID(ctx, tokenID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "verification token not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "load verification token")
	}
	return token, nil
}

func (s *Service) lookup(ctx context.Context, recordName string) ([]string, error) {
	ctx, span := s.tracer.Start(ctx, "dnsverify.LookupTXT",
		trace.WithAttributes(attribute.String("dns.record_name", recordName)))
	defer span.End()

	start := time.Now()
	txts, err := s.resolver.LookupTXT(ctx, recordName)
	s.metrics.ObserveLookup(start)
	if err != nil {
		span.RecordError(err)
	}
	return txts, err
}

// decide maps a lookup result onto the state machine transition table.
func (s *Service) decide(token *Token, txts []string, lookupErr error, now time.Time) AttemptOutcome {
	if lookupErr != nil {
		failures := token.ResolverFailures + 1
		if failures >= s.policy.MaxResolverFailures {
			return AttemptOutcome{Status: StatusFailed, ResolverFailures: failures}
		}
		return AttemptOutcome{Status: StatusPending, ResolverFailures: failures}
	}
	if slices.Contains(txts, token.Token) {
		verifiedAt := now
		return AttemptOutcome{Status: StatusVerified, VerifiedAt: &verifiedAt}
	}
	if token.Expired(now) {
		return AttemptOutcome{Status: StatusExpired}
	}
	// Record absent but the window is still open: stay pending and reset the
	// consecutive resolver-failure count, since the resolver itself answered.
	return AttemptOutcome{Status: StatusPending, ResolverFailures: 0}
}

// domainPermitted implements the domain ownership policy: the requested
// domain must equal the registered domain or be a direct subdomain of it.
func domainPermitted(registered, requested string) bool {
	registered = strings.ToLower(strings.TrimSpace(registered))
	if registered == "" {
		return false
	}
	if requested == registered {
		return true
	}
	if !strings.HasSuffix(requested, "."+registered) {
		return false
	}
	prefix := strings.TrimSuffix(requested, "."+registered)
	return prefix != "" && !strings.Contains(prefix, ".")
}

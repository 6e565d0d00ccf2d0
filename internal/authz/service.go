package authz

import (
	"context"
	"fmt"
	"log/slog"

	"ctn/internal/authz/metrics"
	orgmodels "ctn/internal/organization/models"
	id "ctn/pkg/domain"
	dErrors "ctn/pkg/domain-errors"
	"ctn/pkg/requestcontext"
)

// Organizations is the read-only slice of the organization service the
// engine needs. Authorization reads the current tier, it never mutates it.
type Organizations interface {
	Get(ctx context.Context, orgID id.OrgID) (*orgmodels.Organization, error)
}

// Decision is the rendered outcome of one authorization check.
type Decision struct {
	Result       Result
	RequiredTier int
	UserTier     *int
	DenialReason string
	LogID        string
}

// Granted reports whether the check passed.
func (d Decision) Granted() bool {
	return d.Result == ResultGranted
}

// Service renders tier authorization decisions and appends the audit record.
type Service struct {
	policy  *Policy
	orgs    Organizations
	store   Store
	logger  *slog.Logger
	metrics *metrics.Metrics
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

// New constructs the authorization engine.
func New(policy *Policy, orgs Organizations, store Store, opts ...Option) *Service {
	s := &Service{policy: policy, orgs: orgs, store: store}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// Authorize renders grant/deny for a (resource, action) pair against the
// organization's current tier and appends exactly one decision record,
// whatever the outcome. The record write is synchronous: if it fails, the
// decision is denied rather than granted unaudited.
//
// A nil orgID (unauthenticated or tenant-less caller) denies with the tier
// unresolved; the record still captures the attempt.
func (s *Service) Authorize(ctx context.Context, resource, action string, orgID *id.OrgID) (Decision, error) {
	requiredTier, err := s.policy.RequiredTier(resource, action)
	if err != nil {
		// Unknown pair: deny and record with required_tier 0 so the audit
		// trail shows the unmapped access attempt.
		return s.conclude(ctx, resource, action, orgID, Decision{
			Result:       ResultDenied,
			DenialReason: "no policy for requested resource and action",
		})
	}

	decision := Decision{RequiredTier: requiredTier}
	if orgID == nil {
		decision.Result = ResultDenied
		decision.DenialReason = "no organization resolved for caller"
		return s.conclude(ctx, resource, action, nil, decision)
	}

	org, err := s.orgs.Get(ctx, *orgID)
	if err != nil {
		decision.Result = ResultDenied
		decision.DenialReason = "organization lookup failed"
		return s.conclude(ctx, resource, action, orgID, decision)
	}

	userTier := org.Tier
	decision.UserTier = &userTier
	if userTier <= requiredTier {
		decision.Result = ResultGranted
	} else {
		decision.Result = ResultDenied
		decision.DenialReason = fmt.Sprintf("Insufficient tier: requires %d, has %d", requiredTier, userTier)
	}
	return s.conclude(ctx, resource, action, orgID, decision)
}

// ListDecisions returns the newest decision records for an organization, for
// the per-tenant audit export.
func (s *Service) ListDecisions(ctx context.Context, orgID id.OrgID, limit int) ([]*DecisionRecord, error) {
	records, err := s.store.ListByOrganization(ctx, orgID, limit)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "list decision records")
	}
	return records, nil
}

// conclude appends the audit record and finalizes the decision. An append
// failure flips any grant to a closed denial.
func (s *Service) conclude(ctx context.Context, resource, action string, orgID *id.OrgID, decision Decision) (Decision, error) {
	now := requestcontext.Now(ctx)
	userAgent := requestcontext.UserAgent(ctx)
	record := &DecisionRecord{
		LogID:             newDecisionID(now),
		OrganizationID:    orgID,
		UserIdentifier:    requestcontext.UserIdentifier(ctx),
		RequestedResource: resource,
		RequestedAction:   action,
		RequiredTier:      decision.RequiredTier,
		UserTier:          decision.UserTier,
		Result:            decision.Result,
		DenialReason:      decision.DenialReason,
		ClientIP:          requestcontext.ClientIP(ctx),
		UserAgent:         userAgent,
		UserAgentSummary:  summarizeUserAgent(userAgent),
		RequestPath:       requestcontext.RequestPath(ctx),
		CreatedAt:         now,
	}

	if err := s.store.Append(ctx, record); err != nil {
		s.metrics.IncAuditWriteFailure()
		s.logger.ErrorContext(ctx, "decision record write failed, denying",
			"resource", resource,
			"action", action,
			"error", err,
		)
		decision.Result = ResultDenied
		decision.DenialReason = "authorization audit unavailable"
		return decision, dErrors.Wrap(err, dErrors.CodeInternal, "append decision record")
	}

	decision.LogID = record.LogID
	s.metrics.IncDecision(string(decision.Result))
	if decision.Result == ResultDenied {
		s.logger.InfoContext(ctx, "authorization denied",
			"resource", resource,
			"action", action,
			"required_tier", decision.RequiredTier,
			"reason", decision.DenialReason,
		)
	}
	return decision, nil
}

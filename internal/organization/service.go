package organization

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"ctn/internal/organization/models"
	id "ctn/pkg/domain"
	dErrors "ctn/pkg/domain-errors"
	"ctn/pkg/platform/sentinel"
	"ctn/pkg/requestcontext"
)

// IdentifierOutcome is the result the identifier verification engine applies
// to an organization after processing a document upload.
type IdentifierOutcome struct {
	Status                  models.VerificationStatus
	Flags                   []string
	ExtractedCompanyName    string
	ExtractedRegistryNumber string
	DocumentUploadedAt      time.Time
}

// Service is the single write path for organization trust state. The DNS and
// identifier verification engines mutate evidence through it so the tier is
// always recomputed at one choke point.
type Service struct {
	orgs   Store
	logger *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithLogger attaches a structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// New constructs a Service.
func New(orgs Store, opts ...Option) *Service {
	s := &Service{orgs: orgs}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// Create registers a new organization at the tier-3 baseline.
func (s *Service) Create(ctx context.Context, name, domain string) (*models.Organization, error) {
	org := models.NewOrganization(id.NewOrgID(), name, domain, requestcontext.Now(ctx))
	if err := s.orgs.Create(ctx, org); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "create organization")
	}
	return org, nil
}

// Get loads an organization by ID.
func (s *Service) Get(ctx context.Context, orgID id.OrgID) (*models.Organization, error) {
	org, err := s.orgs.FindByID(ctx, orgID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "organization not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "load organization")
	}
	return org, nil
}

// SubmitIdentity records the applicant-entered identity data and opens a fresh
// identifier verification cycle. Previous flags are cleared; the terminal
// status of the previous cycle is preserved in the audit trail only through
// logs, the record itself starts over at pending.
func (s *Service) SubmitIdentity(ctx context.Context, orgID id.OrgID, companyName, registryNumber string) (*models.Organization, error) {
	companyName = strings.TrimSpace(companyName)
	registryNumber = strings.TrimSpace(registryNumber)
	if companyName == "" || registryNumber == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "company name and registry number are required")
	}

	org, err := s.Get(ctx, orgID)
	if err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	org.EnteredCompanyName = companyName
	org.EnteredRegistryNumber = registryNumber
	org.VerificationStatus = models.VerificationPending
	org.MismatchFlags = nil
	org.ExtractedCompanyName = ""
	org.ExtractedRegistryNumber = ""
	org.UpdatedAt = now

	if err := s.update(ctx, org); err != nil {
		return nil, err
	}
	return org, nil
}

// MarkDNSInitiated stamps the moment a DNS verification cycle was requested.
func (s *Service) MarkDNSInitiated(ctx context.Context, orgID id.OrgID) error {
	org, err := s.Get(ctx, orgID)
	if err != nil {
		return err
	}
	now := requestcontext.Now(ctx)
	org.DNSVerificationInitiatedAt = &now
	org.UpdatedAt = now
	return s.update(ctx, org)
}

// ApplyDNSProof records a successful DNS ownership proof and recomputes the
// tier, promoting the organization to tier 2 with a reverification deadline.
func (s *Service) ApplyDNSProof(ctx context.Context, orgID id.OrgID, verifiedDomain string, reverifyAfter time.Duration) (*models.Organization, error) {
	org, err := s.Get(ctx, orgID)
	if err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	due := now.Add(reverifyAfter)
	org.DNSVerifiedDomain = verifiedDomain
	org.DNSVerifiedAt = &now
	org.DNSReverificationDue = &due
	org.Recompute(now)

	if err := s.update(ctx, org); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "organization promoted by DNS proof",
		"org_id", orgID,
		"domain", verifiedDomain,
		"tier", org.Tier,
		"reverification_due", due,
	)
	return org, nil
}

// RevokeDNSProof clears expired DNS evidence and recomputes the tier. Used by
// the reverification sweep; the historical token record stays untouched.
func (s *Service) RevokeDNSProof(ctx context.Context, orgID id.OrgID) error {
	org, err := s.Get(ctx, orgID)
	if err != nil {
		return err
	}

	now := requestcontext.Now(ctx)
	org.DNSVerifiedDomain = ""
	org.DNSReverificationDue = nil
	org.Recompute(now)

	if err := s.update(ctx, org); err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "organization downgraded, DNS reverification overdue",
		"org_id", orgID,
		"tier", org.Tier,
	)
	return nil
}

// ApplyIdentifierOutcome records the identifier verification result and
// recomputes the tier.
func (s *Service) ApplyIdentifierOutcome(ctx context.Context, orgID id.OrgID, outcome IdentifierOutcome) (*models.Organization, error) {
	org, err := s.Get(ctx, orgID)
	if err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	org.VerificationStatus = outcome.Status
	org.MismatchFlags = outcome.Flags
	org.ExtractedCompanyName = outcome.ExtractedCompanyName
	org.ExtractedRegistryNumber = outcome.ExtractedRegistryNumber
	if !outcome.DocumentUploadedAt.IsZero() {
		org.DocumentUploadedAt = &outcome.DocumentUploadedAt
	}
	org.Recompute(now)

	if err := s.update(ctx, org); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "identifier verification applied",
		"org_id", orgID,
		"status", outcome.Status,
		"flags", outcome.Flags,
	)
	return org, nil
}

// ListReverificationDue surfaces tier-2 organizations past their
// reverification deadline for the sweep.
func (s *Service) ListReverificationDue(ctx context.Context, now time.Time) ([]*models.Organization, error) {
	orgs, err := s.orgs.ListReverificationDue(ctx, now)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "list organizations due for reverification")
	}
	return orgs, nil
}

func (s *Service) update(ctx context.Context, org *models.Organization) error {
	if err := s.orgs.Update(ctx, org); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "update organization")
	}
	return nil
}

package identverify

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"ctn/internal/identverify/metrics"
	"ctn/internal/organization"
	orgmodels "ctn/internal/organization/models"
	id "ctn/pkg/domain"
	"ctn/pkg/requestcontext"
)

// Organizations is the slice of the organization service the engine needs.
// The outcome is applied through it so the tier recompute stays in one place.
type Organizations interface {
	Get(ctx context.Context, orgID id.OrgID) (*orgmodels.Organization, error)
	ApplyIdentifierOutcome(ctx context.Context, orgID id.OrgID, outcome organization.IdentifierOutcome) (*orgmodels.Organization, error)
}

// Service reconciles applicant-entered identity data against the uploaded
// document and the external business registry.
type Service struct {
	orgs            Organizations
	registry        Registry
	cache           ValidationCache
	registryTimeout time.Duration
	logger          *slog.Logger
	metrics         *metrics.Metrics
	tracer          trace.Tracer
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

// WithValidationCache attaches a registry verdict cache.
func WithValidationCache(cache ValidationCache) Option {
	return func(s *Service) { s.cache = cache }
}

// WithRegistryTimeout bounds the external registry call.
func WithRegistryTimeout(timeout time.Duration) Option {
	return func(s *Service) { s.registryTimeout = timeout }
}

// New constructs the identifier verification engine.
func New(orgs Organizations, registry Registry, opts ...Option) *Service {
	s := &Service{
		orgs:            orgs,
		registry:        registry,
		registryTimeout: 5 * time.Second,
		tracer:          otel.Tracer("ctn/identverify"),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// ProcessDocumentResult runs one identifier verification cycle from the
// extraction collaborator's output. The cycle always terminates in a status;
// a registry timeout degrades to validation-absent rather than leaving the
// record pending or failing the request.
func (s *Service) ProcessDocumentResult(ctx context.Context, orgID id.OrgID, extraction ExtractionResult) (*orgmodels.Organization, error) {
	org, err := s.orgs.Get(ctx, orgID)
	if err != nil {
		return nil, err
	}

	var validation *ValidationResult
	if !extraction.Unusable() {
		validation = s.validate(ctx, extraction.RegistryNumber)
	}

	entered := Entered{
		CompanyName:    org.EnteredCompanyName,
		RegistryNumber: org.EnteredRegistryNumber,
	}
	result := Evaluate(entered, extraction, validation)

	updated, err := s.orgs.ApplyIdentifierOutcome(ctx, orgID, organization.IdentifierOutcome{
		Status:                  result.Status,
		Flags:                   result.Flags,
		ExtractedCompanyName:    extraction.CompanyName,
		ExtractedRegistryNumber: extraction.RegistryNumber,
		DocumentUploadedAt:      requestcontext.Now(ctx),
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncOutcome(string(result.Status))
	s.logger.InfoContext(ctx, "identifier verification completed",
		"org_id", orgID,
		"status", result.Status,
		"flags", result.Flags,
		"registry_consulted", validation != nil,
	)
	return updated, nil
}

// validate fetches the registry verdict, preferring the cache. Any error on
// the live call is absorbed: the comparison pipeline proceeds without
// external validation and the flags already found carry the decision.
func (s *Service) validate(ctx context.Context, registryNumber string) *ValidationResult {
	if s.cache != nil {
		if cached, err := s.cache.Find(ctx, registryNumber); err == nil {
			s.metrics.IncCacheHit()
			return cached
		}
	}

	ctx, cancel := context.WithTimeout(ctx, s.registryTimeout)
	defer cancel()
	ctx, span := s.tracer.Start(ctx, "identverify.RegistryValidate",
		trace.WithAttributes(attribute.String("registry.number", registryNumber)))
	defer span.End()

	start := time.Now()
	result, err := s.registry.Validate(ctx, registryNumber)
	s.metrics.ObserveRegistryLookup(start)
	if err != nil {
		span.RecordError(err)
		s.metrics.IncRegistryFailure()
		s.logger.WarnContext(ctx, "registry validation unavailable",
			"registry_number", registryNumber,
			"error", err,
		)
		return nil
	}

	if s.cache != nil {
		if err := s.cache.Save(ctx, registryNumber, result); err != nil {
			s.logger.WarnContext(ctx, "caching registry verdict failed", "error", err)
		}
	}
	return result
}

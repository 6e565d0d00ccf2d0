package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	orgmodels "ctn/internal/organization/models"
	id "ctn/pkg/domain"
	"ctn/pkg/platform/httputil"
	"ctn/pkg/requestcontext"
)

// Service defines the organization operations the handler exposes.
type Service interface {
	Create(ctx context.Context, name, domain string) (*orgmodels.Organization, error)
	Get(ctx context.Context, orgID id.OrgID) (*orgmodels.Organization, error)
	SubmitIdentity(ctx context.Context, orgID id.OrgID, companyName, registryNumber string) (*orgmodels.Organization, error)
}

// Handler wires organization endpoints to the service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs an organization handler.
func New(service Service, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{service: service, logger: logger}
}

// Register mounts organization endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/organizations", h.HandleCreate)
	r.Get("/organizations/{orgID}", h.HandleGet)
	r.Put("/organizations/{orgID}/identity", h.HandleSubmitIdentity)
	r.Get("/organizations/{orgID}/verification", h.HandleGetVerification)
}

// HandleCreate onboards an organization at the tier-3 baseline.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[CreateOrganizationRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	org, err := h.service.Create(ctx, req.Name, req.Domain)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "organization created",
		"request_id", requestID,
		"org_id", org.ID,
		"domain", org.Domain,
	)
	httputil.WriteJSON(w, http.StatusCreated, FromOrganization(org))
}

// HandleGet returns an organization.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	orgID, err := id.ParseOrgID(chi.URLParam(r, "orgID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	org, err := h.service.Get(r.Context(), orgID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromOrganization(org))
}

// HandleSubmitIdentity records applicant-entered identity data and opens a
// fresh identifier verification cycle.
func (h *Handler) HandleSubmitIdentity(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	orgID, err := id.ParseOrgID(chi.URLParam(r, "orgID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	req, ok := httputil.DecodeAndPrepare[SubmitIdentityRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	org, err := h.service.SubmitIdentity(ctx, orgID, req.CompanyName, req.RegistryNumber)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromOrganization(org))
}

// HandleGetVerification returns the read-only verification view consumed by
// the UI layer.
func (h *Handler) HandleGetVerification(w http.ResponseWriter, r *http.Request) {
	orgID, err := id.ParseOrgID(chi.URLParam(r, "orgID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	org, err := h.service.Get(r.Context(), orgID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, VerificationFromOrganization(org))
}

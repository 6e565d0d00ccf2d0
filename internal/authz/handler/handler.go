package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"ctn/internal/authz"
	id "ctn/pkg/domain"
	"ctn/pkg/platform/httputil"
	"ctn/pkg/requestcontext"
)

// Service defines the authorization operations the handler exposes.
type Service interface {
	Authorize(ctx context.Context, resource, action string, orgID *id.OrgID) (authz.Decision, error)
	ListDecisions(ctx context.Context, orgID id.OrgID, limit int) ([]*authz.DecisionRecord, error)
}

// Handler wires authorization endpoints to the engine.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs an authorization handler.
func New(service Service, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{service: service, logger: logger}
}

// Register mounts authorization endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/authorize", h.HandleAuthorize)
	r.Get("/organizations/{orgID}/authorization-decisions", h.HandleListDecisions)
}

// HandleAuthorize runs an explicit authorization check for the caller. Used
// by collaborating services that enforce the decision themselves.
func (h *Handler) HandleAuthorize(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[AuthorizeRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	var orgID *id.OrgID
	if parsed, err := id.ParseOrgID(requestcontext.OrgID(ctx)); err == nil {
		orgID = &parsed
	}

	decision, err := h.service.Authorize(ctx, req.Resource, req.Action, orgID)
	if err != nil {
		h.logger.ErrorContext(ctx, "authorization check errored",
			"request_id", requestID,
			"resource", req.Resource,
			"action", req.Action,
			"error", err,
		)
	}
	httputil.WriteJSON(w, http.StatusOK, FromDecision(decision))
}

// HandleListDecisions returns the newest decision records for an
// organization, for the per-tenant audit export.
func (h *Handler) HandleListDecisions(w http.ResponseWriter, r *http.Request) {
	orgID, err := id.ParseOrgID(chi.URLParam(r, "orgID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, _ = strconv.Atoi(raw)
	}

	records, err := h.service.ListDecisions(r.Context(), orgID, limit)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromRecords(records))
}

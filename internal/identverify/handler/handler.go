package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"ctn/internal/identverify"
	orgmodels "ctn/internal/organization/models"
	id "ctn/pkg/domain"
	"ctn/pkg/platform/httputil"
	"ctn/pkg/requestcontext"
)

// Service defines the identifier verification operations the handler exposes.
type Service interface {
	ProcessDocumentResult(ctx context.Context, orgID id.OrgID, extraction identverify.ExtractionResult) (*orgmodels.Organization, error)
}

// Handler wires the document extraction callback to the engine.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs an identifier verification handler.
func New(service Service, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{service: service, logger: logger}
}

// Register mounts identifier verification endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/organizations/{orgID}/identifier-verification", h.HandleDocumentResult)
}

// HandleDocumentResult receives the extraction collaborator's output and runs
// one verification cycle.
func (h *Handler) HandleDocumentResult(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	orgID, err := id.ParseOrgID(chi.URLParam(r, "orgID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	req, ok := httputil.DecodeAndPrepare[DocumentResultRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	org, err := h.service.ProcessDocumentResult(ctx, orgID, req.Extraction())
	if err != nil {
		h.logger.ErrorContext(ctx, "identifier verification failed",
			"request_id", requestID,
			"org_id", orgID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "identifier verification handled",
		"request_id", requestID,
		"org_id", orgID,
		"status", org.VerificationStatus,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusOK, FromOrganization(org))
}

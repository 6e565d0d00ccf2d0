package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"ctn/internal/dnsverify"
	id "ctn/pkg/domain"
	"ctn/pkg/platform/httputil"
	"ctn/pkg/requestcontext"
)

// Service defines the verification operations the handler exposes.
type Service interface {
	RequestVerification(ctx context.Context, orgID id.OrgID, domain string) (*dnsverify.Token, error)
	AttemptVerification(ctx context.Context, tokenID id.TokenID) (*dnsverify.Token, error)
	GetToken(ctx context.Context, tokenID id.TokenID) (*dnsverify.Token, error)
}

// Handler wires domain verification endpoints to the service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs a domain verification handler.
func New(service Service, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{service: service, logger: logger}
}

// Register mounts domain verification endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/organizations/{orgID}/domain-verification", h.HandleRequestVerification)
	r.Post("/domain-verification/{tokenID}/attempt", h.HandleAttemptVerification)
	r.Get("/domain-verification/{tokenID}", h.HandleGetToken)
}

// HandleRequestVerification issues a new challenge token.
func (h *Handler) HandleRequestVerification(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	orgID, err := id.ParseOrgID(chi.URLParam(r, "orgID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	req, ok := httputil.DecodeAndPrepare[RequestVerificationRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	token, err := h.service.RequestVerification(ctx, orgID, req.Domain)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, FromToken(token))
}

// HandleAttemptVerification runs one proof attempt against DNS.
func (h *Handler) HandleAttemptVerification(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	tokenID, err := id.ParseTokenID(chi.URLParam(r, "tokenID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	token, err := h.service.AttemptVerification(ctx, tokenID)
	if err != nil {
		h.logger.ErrorContext(ctx, "verification attempt failed",
			"request_id", requestID,
			"token_id", tokenID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "verification attempt handled",
		"request_id", requestID,
		"token_id", tokenID,
		"status", token.Status,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusOK, FromToken(token))
}

// HandleGetToken returns the token state for display.
func (h *Handler) HandleGetToken(w http.ResponseWriter, r *http.Request) {
	tokenID, err := id.ParseTokenID(chi.URLParam(r, "tokenID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	token, err := h.service.GetToken(r.Context(), tokenID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromToken(token))
}

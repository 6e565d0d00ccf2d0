package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"ctn/internal/authz"
	"ctn/internal/jwttoken"
	id "ctn/pkg/domain"
	dErrors "ctn/pkg/domain-errors"
	"ctn/pkg/platform/httputil"
	"ctn/pkg/requestcontext"
)

// TokenValidator validates bearer tokens.
type TokenValidator interface {
	ValidateToken(tokenString string) (*jwttoken.Claims, error)
}

// Authorizer renders tier authorization decisions.
type Authorizer interface {
	Authorize(ctx context.Context, resource, action string, orgID *id.OrgID) (authz.Decision, error)
}

// RequireAuth validates the bearer token and stores the caller identity in
// the context.
func RequireAuth(validator TokenValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok {
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "missing or invalid Authorization header"))
				return
			}

			claims, err := validator.ValidateToken(token)
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access, invalid token",
					"request_id", requestcontext.RequestID(ctx),
					"error", err,
				)
				httputil.WriteError(w, err)
				return
			}

			ctx = requestcontext.WithUserIdentifier(ctx, claims.Subject)
			ctx = requestcontext.WithOrgID(ctx, claims.OrganizationID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireTier guards a route with an authorization check for the given
// (resource, action) pair. Every pass through this middleware appends one
// decision record, granted or denied.
func RequireTier(authorizer Authorizer, resource, action string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			var orgID *id.OrgID
			if parsed, err := id.ParseOrgID(requestcontext.OrgID(ctx)); err == nil {
				orgID = &parsed
			}

			decision, err := authorizer.Authorize(ctx, resource, action, orgID)
			if err != nil {
				// Fail closed: the decision is already denied, the error only
				// explains why.
				logger.ErrorContext(ctx, "authorization check errored",
					"request_id", requestcontext.RequestID(ctx),
					"resource", resource,
					"action", action,
					"error", err,
				)
			}
			if !decision.Granted() {
				reason := decision.DenialReason
				if reason == "" {
					reason = "access denied"
				}
				httputil.WriteError(w, dErrors.New(dErrors.CodeForbidden, reason))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

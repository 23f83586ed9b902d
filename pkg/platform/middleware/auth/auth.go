package auth

import (
	"log/slog"
	"net/http"
	"strings"

	"amlguard/pkg/domain"
	"amlguard/pkg/platform/httputil"
	request "amlguard/pkg/platform/middleware/request"
	"amlguard/pkg/requestcontext"
)

// ActorValidator resolves a bearer token into the acting identity.
type ActorValidator interface {
	ValidateActor(tokenString string) (domain.Actor, error)
}

// writeJSONError writes the shared error body with the given status.
func writeJSONError(w http.ResponseWriter, status int, errCode, errDesc string) {
	httputil.WriteJSON(w, status, httputil.ErrorResponse{Error: errCode, ErrorDescription: errDesc})
}

// RequireAuth rejects requests without a valid bearer token and stores the
// resolved actor in the request context.
func RequireAuth(validator ActorValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || token == "" {
				logger.WarnContext(ctx, "unauthorized access - missing token",
					"request_id", request.GetRequestID(ctx),
				)
				writeJSONError(w, http.StatusUnauthorized, "unauthorized", "Missing or invalid Authorization header")
				return
			}

			actor, err := validator.ValidateActor(token)
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access - invalid token",
					"error", err,
					"request_id", request.GetRequestID(ctx),
				)
				writeJSONError(w, http.StatusUnauthorized, "unauthorized", "Invalid or expired token")
				return
			}

			ctx = requestcontext.WithActor(ctx, actor)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole allows the request through only when the authenticated actor
// holds at least the given role. It must run after RequireAuth.
func RequireRole(required domain.Role, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			actor := requestcontext.Actor(ctx)
			if actor.IsZero() {
				writeJSONError(w, http.StatusUnauthorized, "unauthorized", "Authentication required")
				return
			}
			if !actor.Role.AtLeast(required) {
				logger.WarnContext(ctx, "forbidden - insufficient role",
					"actor_id", actor.ID,
					"role", string(actor.Role),
					"required", string(required),
					"request_id", request.GetRequestID(ctx),
				)
				writeJSONError(w, http.StatusForbidden, "forbidden", "Insufficient role")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

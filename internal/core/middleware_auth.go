package core

import (
	"errors"
	"net/http"
	"strings"

	"fleetcare/internal/types"
)

// RequireSession authenticates the bearer token through s.Authenticator and
// stores the resolved Actor on the context. Every failure is a 401.
func (s *Server) RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.Authenticator == nil {
			s.Logger.ErrorContext(r.Context(), "session route mounted without an authenticator")
			writeAuthError(w, r, types.ErrCodeAuthTokenInvalid, "Authentication unavailable")
			return
		}

		token := extractBearerToken(r.Header.Get("Authorization"))
		if token == "" {
			writeAuthError(w, r, types.ErrCodeAuthTokenMissing, "Bearer token is required")
			return
		}

		actor, err := s.Authenticator.ResolveToken(r.Context(), token)
		if err != nil {
			code := types.ErrCodeAuthTokenInvalid
			message := "Invalid authentication token"
			var appErr *types.AppError
			if errors.As(err, &appErr) && appErr.Code == types.ErrCodeAuthTokenExpired {
				code, message = types.ErrCodeAuthTokenExpired, "Authentication token has expired"
			}
			s.Logger.WarnContext(r.Context(), "authentication failed",
				"path", r.URL.Path,
				"error_code", string(code),
			)
			writeAuthError(w, r, code, message)
			return
		}
		if actor == nil || actor.ID == "" {
			writeAuthError(w, r, types.ErrCodeAuthTokenInvalid, "Invalid authentication token")
			return
		}

		next.ServeHTTP(w, r.WithContext(types.WithActor(r.Context(), *actor)))
	})
}

// RequireCronSecret admits requests whose bearer token matches secret in
// constant time. Accepted requests carry a system Actor.
func RequireCronSecret(secret types.SecretString) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !secret.Matches(extractBearerToken(r.Header.Get("Authorization"))) {
				writeAuthError(w, r, types.ErrCodeAuthCronSecretInvalid, "Unauthorized")
				return
			}
			actor := types.Actor{ID: "cron", Type: types.ActorTypeSystem}
			next.ServeHTTP(w, r.WithContext(types.WithActor(r.Context(), actor)))
		})
	}
}

// extractBearerToken returns the token of a "Bearer <token>" header, with a
// case-insensitive scheme, or "".
func extractBearerToken(header string) string {
	const prefix = "Bearer "
	if len(header) < len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}

func writeAuthError(w http.ResponseWriter, r *http.Request, code types.ErrorCode, message string) {
	Error(w, r, types.NewAppError(code, message, nil))
}

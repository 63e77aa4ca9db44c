package middleware

import (
	"context"
	"net/http"
	"strings"

	"citizen-kiosk/internal/usecase"
	"citizen-kiosk/pkg/utils"

	"go.uber.org/zap"
)

// Authenticator resolves a raw credential to the caller's identity.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (utils.Identity, error)
}

// AuthSession reads the credential from the access-token cookie, falling back
// to an Authorization: Bearer header, and requires an active session.
func AuthSession(auth Authenticator, cookieName string, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// 1. Extract credential
			token := TokenFromRequest(r, cookieName)
			if token == "" {
				utils.ResponseUnauthorized(w, "Authentication required")
				return
			}

			// 2. Verify signature and session
			identity, err := auth.Authenticate(r.Context(), token)
			if err != nil {
				if utils.IsKind(err, utils.KindAuthentication) {
					logger.Debug("Rejected session", zap.Error(err), zap.String("path", r.URL.Path))
				} else {
					logger.Error("Failed to validate session", zap.Error(err))
				}
				utils.ResponseError(w, err)
				return
			}

			// 3. Identity and token for downstream handlers
			ctx := utils.SetIdentityContext(r.Context(), identity)
			ctx = utils.SetTokenContext(ctx, token)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequirePermission rejects callers whose role lacks capability. It must run
// after AuthSession.
func RequirePermission(capability usecase.Capability, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role, ok := utils.GetRoleFromContext(r.Context())
			if !ok {
				utils.ResponseUnauthorized(w, "Authentication required")
				return
			}

			if !usecase.HasPermission(role, capability) {
				logger.Warn("Permission denied",
					zap.String("role", role),
					zap.String("capability", string(capability)),
					zap.String("path", r.URL.Path))
				utils.ResponseForbidden(w, "You do not have permission to perform this action")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func TokenFromRequest(r *http.Request, cookieName string) string {
	if cookie, err := r.Cookie(cookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}

	authHeader := r.Header.Get("Authorization")
	if token, ok := strings.CutPrefix(authHeader, "Bearer "); ok {
		return strings.TrimSpace(token)
	}

	return ""
}

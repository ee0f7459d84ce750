package middleware

import (
	"context"
	"log/slog"
	"net/http"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	apierrors "github.com/narvanalabs/persistent-params/internal/api/errors"
	"github.com/narvanalabs/persistent-params/internal/auth"
	"github.com/narvanalabs/persistent-params/pkg/logger"
)

type contextKey string

// RoleKey is the context key for the authenticated user's role.
const RoleKey contextKey = "role"

// GetUserID extracts the user ID from the request context.
func GetUserID(ctx context.Context) string {
	return logger.UserIDFromContext(ctx)
}

// GetRole extracts the authenticated role from the request context.
func GetRole(ctx context.Context) auth.Role {
	if v, ok := ctx.Value(RoleKey).(auth.Role); ok {
		return v
	}
	return ""
}

// AuthMiddleware handles JWT authentication.
type AuthMiddleware struct {
	authService *auth.Service
	logger      *slog.Logger
}

// NewAuthMiddleware creates a new authentication middleware.
func NewAuthMiddleware(authService *auth.Service, logger *slog.Logger) *AuthMiddleware {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthMiddleware{
		authService: authService,
		logger:      logger,
	}
}

// Authenticate is a middleware that validates bearer JWT tokens.
func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := chimiddleware.GetReqID(r.Context())

		token := auth.ExtractBearerToken(r.Header.Get("Authorization"))
		if token == "" {
			apierrors.WriteErrorWithRequestID(w, apierrors.NewUnauthorizedError("missing authentication"), requestID)
			return
		}

		claims, err := m.authService.ValidateToken(token)
		if err != nil {
			m.logger.Debug("JWT validation failed", "error", err, "request_id", requestID)
			message := "invalid token"
			if err == auth.ErrExpiredToken {
				message = "token has expired"
			}
			apierrors.WriteErrorWithRequestID(w, apierrors.NewUnauthorizedError(message), requestID)
			return
		}

		ctx := logger.ContextWithUserID(r.Context(), claims.UserID)
		ctx = context.WithValue(ctx, RoleKey, claims.Role)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequirePermission returns a middleware that rejects callers whose role lacks permission.
func RequirePermission(permission auth.Permission, log *slog.Logger) func(http.Handler) http.Handler {
	if log == nil {
		log = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role := GetRole(r.Context())
			if err := auth.CheckPermission(role, permission); err != nil {
				log.Debug("permission check failed",
					"user_id", GetUserID(r.Context()),
					"role", role,
					"permission", permission,
				)
				apierrors.WriteErrorWithRequestID(w, apierrors.FromError(err), chimiddleware.GetReqID(r.Context()))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

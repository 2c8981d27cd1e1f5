package middleware

import (
	"context"
	stderrors "errors"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"portfolio-be/internal/domain"
	"portfolio-be/internal/service"
	"portfolio-be/pkg/errors"
	"portfolio-be/pkg/logger"
)

// ContextKey represents keys used in request context
type ContextKey string

const (
	// AdminContextKey is the key for the verified admin in context
	AdminContextKey ContextKey = "admin"
	// RequestIDContextKey is the key for request ID in context
	RequestIDContextKey ContextKey = "request_id"
)

// RequestIDHeader carries the request id in both directions
const RequestIDHeader = "X-Request-ID"

// maxRequestIDLen bounds client-supplied ids before they reach logs
const maxRequestIDLen = 64

// AdminAuth rejects requests without a valid admin bearer token
func AdminAuth(authService service.AuthService, logger *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Extract token from Authorization header
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				writeErrorResponse(w, r, errors.NewAuthenticationError("Authorization header is required"), logger)
				return
			}

			if !strings.HasPrefix(authHeader, "Bearer ") {
				writeErrorResponse(w, r, errors.NewAuthenticationError("Invalid authorization header format"), logger)
				return
			}

			token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
			if token == "" {
				writeErrorResponse(w, r, errors.NewAuthenticationError("Token is required"), logger)
				return
			}

			ctx := r.Context()
			admin, err := authService.ValidateAdminToken(ctx, token)
			if err != nil {
				var appErr *errors.AppError
				if !stderrors.As(err, &appErr) {
					appErr = errors.NewAuthenticationError("Invalid or expired token")
				}
				writeErrorResponse(w, r, appErr, logger)
				return
			}

			ctx = context.WithValue(ctx, AdminContextKey, admin)
			logger.WithField("admin", admin.Subject).Debug("Admin authenticated")

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// AdminFromContext returns the admin stored by AdminAuth
func AdminFromContext(ctx context.Context) (*domain.AdminIdentity, bool) {
	admin, ok := ctx.Value(AdminContextKey).(*domain.AdminIdentity)
	return admin, ok
}

// RequestID tags every request with an id, reusing a sane incoming X-Request-ID
func RequestID(logger *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := r.Header.Get(RequestIDHeader)
			if requestID == "" || len(requestID) > maxRequestIDLen || strings.ContainsAny(requestID, "\r\n") {
				requestID = uuid.NewString()
			}

			ctx := context.WithValue(r.Context(), RequestIDContextKey, requestID)
			w.Header().Set(RequestIDHeader, requestID)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequestIDFromContext returns the id set by RequestID, or ""
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(RequestIDContextKey).(string)
	return id
}

// writeErrorResponse writes an error response to the client
func writeErrorResponse(w http.ResponseWriter, r *http.Request, appErr *errors.AppError, logger *logger.Logger) {
	logger.WithFields(map[string]interface{}{
		"request_id": RequestIDFromContext(r.Context()),
		"path":       r.URL.Path,
		"status":     appErr.StatusCode,
	}).WithError(appErr).Warn("Request rejected")

	if err := errors.WriteJSON(w, appErr); err != nil {
		logger.WithError(err).Error("Failed to write error response")
	}
}

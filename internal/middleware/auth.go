package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"pemilihan-be/internal/domain"
	"pemilihan-be/internal/service"
	"pemilihan-be/pkg/errors"
	"pemilihan-be/pkg/logger"
)

// ContextKey represents keys used in request context
type ContextKey string

const (
	// UserContextKey is the key for user information in context
	UserContextKey ContextKey = "user"
	// RequestIDContextKey is the key for request ID in context
	RequestIDContextKey ContextKey = "request_id"
)

// Auth creates an authentication middleware
func Auth(authService service.AuthService, logger *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Extract token from Authorization header
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				WriteError(w, r, errors.NewAuthenticationError("Authorization header is required"), logger)
				return
			}

			if !strings.HasPrefix(authHeader, "Bearer ") {
				WriteError(w, r, errors.NewAuthenticationError("Invalid authorization header format"), logger)
				return
			}

			token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
			if token == "" {
				WriteError(w, r, errors.NewAuthenticationError("Token is required"), logger)
				return
			}

			ctx := r.Context()
			userProfile, err := authService.ValidateToken(ctx, token)
			if err != nil {
				WriteError(w, r, errors.NewAuthenticationError("Invalid or expired token"), logger)
				return
			}

			ctx = context.WithValue(ctx, UserContextKey, userProfile)
			r = r.WithContext(ctx)

			logger.WithField("user_id", userProfile.Sub).Debug("User authenticated successfully")

			next.ServeHTTP(w, r)
		})
	}
}

// RequireRole rejects authenticated users whose role is not listed. It must
// run after Auth.
func RequireRole(logger *logger.Logger, roles ...domain.Role) func(http.Handler) http.Handler {
	allowed := make(map[domain.Role]bool, len(roles))
	for _, role := range roles {
		allowed[role] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := UserFromContext(r.Context())
			if user == nil {
				WriteError(w, r, errors.NewAuthenticationError("Authentication required"), logger)
				return
			}

			if !allowed[user.Role] {
				logger.WithFields(map[string]interface{}{
					"user_id": user.Sub,
					"role":    user.Role,
					"path":    r.URL.Path,
				}).Warn("Access denied")
				WriteError(w, r, errors.NewAuthorizationError("Insufficient permissions"), logger)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// UserFromContext returns the authenticated user, or nil
func UserFromContext(ctx context.Context) *domain.UserProfile {
	user, _ := ctx.Value(UserContextKey).(*domain.UserProfile)
	return user
}

// WriteError writes an AppError as the JSON error envelope. Server-side
// failures are logged at error level, client errors at debug.
func WriteError(w http.ResponseWriter, r *http.Request, err error, logger *logger.Logger) {
	appErr := errors.AsAppError(err)
	requestID := RequestIDFromContext(r.Context())

	entry := logger.WithFields(map[string]interface{}{
		"request_id": requestID,
		"path":       r.URL.Path,
		"status":     appErr.StatusCode,
	}).WithError(appErr)
	if appErr.StatusCode >= http.StatusInternalServerError {
		entry.Error("Request failed")
	} else {
		entry.Debug("Request rejected")
	}

	response := &errors.ErrorResponse{}
	response.Error.Type = appErr.Type
	response.Error.Message = appErr.Message
	response.Error.Details = appErr.Details
	response.Error.RequestID = requestID
	response.Error.Timestamp = time.Now().UTC().Format(time.RFC3339)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(appErr.StatusCode)
	_ = json.NewEncoder(w).Encode(response)
}

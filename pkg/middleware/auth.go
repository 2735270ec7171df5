package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"otp-auth/internal/data/entity"
	"otp-auth/internal/data/repository"
	"otp-auth/pkg/utils"

	"go.uber.org/zap"
)

const WebhookSecretHeader = "X-Webhook-Secret"

// TokenVerifier resolves an access token to the email it was issued for.
type TokenVerifier interface {
	Verify(token string) (string, error)
}

// Auth validates the Bearer access token and loads its owner into the context.
func Auth(verifier TokenVerifier, userRepo repository.UserRepository, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// 1. Extract token
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				utils.ResponseUnauthorized(w, "Missing authorization token")
				return
			}

			scheme, token, ok := strings.Cut(authHeader, " ")
			if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
				utils.ResponseUnauthorized(w, "Invalid token format. Use: Bearer <token>")
				return
			}

			// 2. Verify signature and expiry
			email, err := verifier.Verify(strings.TrimSpace(token))
			if err != nil {
				logger.Warn("Rejected access token", zap.Error(err), zap.String("path", r.URL.Path))
				utils.ResponseUnauthorized(w, "Invalid or expired token")
				return
			}

			// 3. Resolve the user
			user, err := userRepo.FindByEmail(r.Context(), entity.Email(email))
			if err != nil {
				logger.Error("Failed to load token owner", zap.Error(err), zap.String("email", email))
				utils.ResponseInternalError(w, "Internal server error")
				return
			}
			if user == nil {
				logger.Warn("Token owner not found", zap.String("email", email))
				utils.ResponseUnauthorized(w, "Invalid or expired token")
				return
			}

			ctx := utils.SetUserContext(r.Context(), user.ID, user.Email.String(), string(user.Role))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Admin requires the role stored by Auth to be admin.
func Admin(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, ok := utils.GetUserIDFromContext(r.Context())
			if !ok {
				utils.ResponseUnauthorized(w, "Authentication required")
				return
			}

			role, _ := utils.GetRoleFromContext(r.Context())
			if role != string(entity.RoleAdmin) {
				logger.Warn("Admin check: non-admin access attempt",
					zap.String("user_id", userID.String()),
					zap.String("path", r.URL.Path))
				utils.ResponseForbidden(w, "Admin access required")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// WebhookSecret guards machine-to-machine endpoints with a shared secret.
func WebhookSecret(secret string, logger *zap.Logger) func(http.Handler) http.Handler {
	expected := []byte(secret)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			provided := r.Header.Get(WebhookSecretHeader)
			if provided == "" {
				utils.ResponseUnauthorized(w, "Webhook secret required")
				return
			}

			if len(expected) == 0 || subtle.ConstantTimeCompare([]byte(provided), expected) != 1 {
				logger.Warn("Invalid webhook secret", zap.String("ip", r.RemoteAddr))
				utils.ResponseUnauthorized(w, "Invalid webhook secret")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

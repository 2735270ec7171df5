package adaptor

import (
	"net/http"

	"otp-auth/internal/usecase"
	"otp-auth/pkg/apperr"
	"otp-auth/pkg/utils"

	"go.uber.org/zap"
)

type Handler struct {
	Auth    *AuthHandler
	User    *UserHandler
	Admin   *AdminHandler
	Webhook *WebhookHandler
	Health  *HealthHandler
}

func NewHandler(service *usecase.Service, log *zap.Logger) *Handler {
	return &Handler{
		Auth:    NewAuthHandler(service.Auth, log),
		User:    NewUserHandler(service.User, log),
		Admin:   NewAdminHandler(service.User, log),
		Webhook: NewWebhookHandler(service.User, log),
		Health:  NewHealthHandler(service.Health, log),
	}
}

// writeServiceError maps an error kind onto the response envelope.
// Unexpected errors are logged in full and hidden from the client.
func writeServiceError(w http.ResponseWriter, log *zap.Logger, err error, operation string) {
	switch apperr.KindOf(err) {
	case apperr.KindNotFound:
		log.Warn(operation+" failed - not found", zap.Error(err))
		utils.ResponseNotFound(w, apperr.MessageOf(err))

	case apperr.KindValidation:
		log.Warn(operation+" failed - validation", zap.Error(err))
		utils.ResponseUnprocessable(w, apperr.MessageOf(err))

	default:
		log.Error(operation+" failed", zap.Error(err))
		utils.ResponseInternalError(w, "Internal server error")
	}
}

// decodeAndValidate reads a JSON body into dst and runs its validate tags.
// It writes a 400 and returns false when either step fails.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := utils.DecodeJSON(r, dst); err != nil {
		utils.ResponseBadRequest(w, "Invalid request body", nil)
		return false
	}

	if validationErrors := utils.ValidateStruct(dst); len(validationErrors) > 0 {
		utils.ResponseBadRequest(w, "Validation failed", validationErrors)
		return false
	}
	return true
}

package adaptor

import (
	"net/http"

	"otp-auth/internal/dto/request"
	"otp-auth/internal/usecase"
	"otp-auth/pkg/utils"

	"go.uber.org/zap"
)

type WebhookHandler struct {
	service usecase.UserService
	log     *zap.Logger
}

func NewWebhookHandler(service usecase.UserService, log *zap.Logger) *WebhookHandler {
	return &WebhookHandler{
		service: service,
		log:     log.With(zap.String("handler", "webhook")),
	}
}

// UpsertUser handles POST /api/webhooks/users. Existing users come back unchanged.
func (h *WebhookHandler) UpsertUser(w http.ResponseWriter, r *http.Request) {
	var req request.WebhookUserRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	user, created, err := h.service.GetOrCreateUser(r.Context(), &req)
	if err != nil {
		writeServiceError(w, h.log, err, "webhook user")
		return
	}

	if created {
		utils.ResponseCreated(w, "User created", user)
		return
	}
	utils.ResponseSuccess(w, "User already exists", user)
}

package adaptor

import (
	"net/http"

	"otp-auth/internal/dto/response"
	"otp-auth/internal/usecase"
	"otp-auth/pkg/utils"

	"go.uber.org/zap"
)

type HealthHandler struct {
	service usecase.HealthService
	log     *zap.Logger
}

func NewHealthHandler(service usecase.HealthService, log *zap.Logger) *HealthHandler {
	return &HealthHandler{
		service: service,
		log:     log.With(zap.String("handler", "health")),
	}
}

// Check handles GET /health
func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	health, err := h.service.Check(r.Context())
	if err != nil {
		writeServiceError(w, h.log, err, "health check")
		return
	}

	if health.Status != response.HealthStatusOK {
		utils.ResponseJSON(w, http.StatusServiceUnavailable, false, "Service degraded", health, nil)
		return
	}
	utils.ResponseSuccess(w, "Service healthy", health)
}

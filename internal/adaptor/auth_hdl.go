package adaptor

import (
	"net/http"

	"otp-auth/internal/dto/request"
	"otp-auth/internal/usecase"
	"otp-auth/pkg/utils"

	"go.uber.org/zap"
)

type AuthHandler struct {
	service usecase.AuthService
	log     *zap.Logger
}

func NewAuthHandler(service usecase.AuthService, log *zap.Logger) *AuthHandler {
	return &AuthHandler{
		service: service,
		log:     log.With(zap.String("handler", "auth")),
	}
}

// Register handles POST /api/auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req request.RegisterRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	user, err := h.service.Register(r.Context(), &req)
	if err != nil {
		h.handleServiceError(w, err, "register")
		return
	}

	utils.ResponseCreated(w, "User registered", user)
}

// Login handles POST /api/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req request.LoginRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	if err := h.service.RequestLogin(r.Context(), &req); err != nil {
		h.handleServiceError(w, err, "request login")
		return
	}

	utils.ResponseSuccess(w, "OTP sent to email", nil)
}

// Verify handles POST /api/auth/verify
func (h *AuthHandler) Verify(w http.ResponseWriter, r *http.Request) {
	var req request.VerifyOTPRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	resp, err := h.service.VerifyOTP(r.Context(), &req)
	if err != nil {
		h.handleServiceError(w, err, "verify otp")
		return
	}

	utils.ResponseSuccess(w, "Login successful", resp)
}

// Refresh handles POST /api/auth/refresh
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req request.RefreshTokenRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	resp, err := h.service.RefreshToken(r.Context(), &req)
	if err != nil {
		h.handleServiceError(w, err, "refresh token")
		return
	}

	utils.ResponseSuccess(w, "Token refreshed", resp)
}

// Logout handles POST /api/auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	userID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		utils.ResponseUnauthorized(w, "Authentication required")
		return
	}

	if err := h.service.Logout(r.Context(), userID); err != nil {
		h.handleServiceError(w, err, "logout")
		return
	}

	email, _ := utils.GetEmailFromContext(r.Context())
	h.log.Info("User logged out", zap.String("email", email))

	utils.ResponseSuccess(w, "Logged out successfully", nil)
}

func (h *AuthHandler) handleServiceError(w http.ResponseWriter, err error, operation string) {
	writeServiceError(w, h.log, err, operation)
}

package wire

import (
	"net/http"

	"otp-auth/internal/adaptor"
	"otp-auth/pkg/middleware"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

func wireUser(r chi.Router, userHandler *adaptor.UserHandler, auth func(http.Handler) http.Handler) {
	r.Route("/api/profile", func(r chi.Router) {
		r.Use(auth)
		r.Get("/me", userHandler.GetProfile)
		r.Patch("/me", userHandler.UpdateProfile)
	})
}

func wireAdmin(r chi.Router, adminHandler *adaptor.AdminHandler, auth func(http.Handler) http.Handler, log *zap.Logger) {
	r.Route("/api/admin/users", func(r chi.Router) {
		r.Use(auth)
		r.Use(middleware.Admin(log))

		r.Get("/", adminHandler.ListUsers)
		r.Post("/", adminHandler.CreateUser)
		r.Patch("/{id}", adminHandler.UpdateUser)
		r.Delete("/{id}", adminHandler.DeleteUser)
	})
}

func wireWebhook(r chi.Router, webhookHandler *adaptor.WebhookHandler, secret string, log *zap.Logger) {
	r.With(middleware.WebhookSecret(secret, log)).Post("/api/webhooks/users", webhookHandler.UpsertUser)
}

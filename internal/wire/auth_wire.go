package wire

import (
	"net/http"

	"otp-auth/internal/adaptor"

	"github.com/go-chi/chi/v5"
)

func wireAuth(r chi.Router, authHandler *adaptor.AuthHandler, auth func(http.Handler) http.Handler) {
	r.Route("/api/auth", func(r chi.Router) {
		// public
		r.Post("/register", authHandler.Register)
		r.Post("/login", authHandler.Login)
		r.Post("/verify", authHandler.Verify)
		r.Post("/refresh", authHandler.Refresh)

		// protected
		r.With(auth).Post("/logout", authHandler.Logout)
	})
}

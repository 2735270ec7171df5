package wire

import (
	"otp-auth/internal/adaptor"
	"otp-auth/internal/data/repository"
	"otp-auth/internal/usecase"
	"otp-auth/pkg/middleware"
	"otp-auth/pkg/utils"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// App holds the wired HTTP surface.
type App struct {
	Router  *chi.Mux
	Service *usecase.Service
}

// Wiring builds the ports from config, then services, handlers and routes.
func Wiring(repo *repository.Repository, config *utils.Config, logger *zap.Logger) (*App, error) {
	deps, verifier, err := buildDependencies(config, logger)
	if err != nil {
		return nil, err
	}

	service := usecase.NewService(repo, deps, config, logger)
	handler := adaptor.NewHandler(service, logger)
	router := setupRouter(handler, repo, verifier, config, logger)

	return &App{
		Router:  router,
		Service: service,
	}, nil
}

func setupRouter(
	handler *adaptor.Handler,
	repo *repository.Repository,
	verifier middleware.TokenVerifier,
	config *utils.Config,
	logger *zap.Logger,
) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Recover(logger))
	r.Use(middleware.CORS())

	auth := middleware.Auth(verifier, repo.User, logger)

	r.Get("/health", handler.Health.Check)
	wireAuth(r, handler.Auth, auth)
	wireUser(r, handler.User, auth)
	wireAdmin(r, handler.Admin, auth, logger)
	wireWebhook(r, handler.Webhook, config.Auth.WebhookSecret, logger)

	return r
}

package wire

import (
	"citizen-kiosk/internal/adaptor"
	"citizen-kiosk/internal/usecase"
	"citizen-kiosk/pkg/middleware"
	"citizen-kiosk/pkg/utils"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// App holds the wired router and the services behind it
type App struct {
	Router  *chi.Mux
	Service *usecase.Service
}

// Wiring builds services, handlers and routes
func Wiring(service *usecase.Service, checks map[string]adaptor.HealthCheck, config *utils.Config, logger *zap.Logger) *App {
	handler := adaptor.NewHandler(service, checks, config, logger)

	router := setupRouter(handler, service, config, logger)

	return &App{
		Router:  router,
		Service: service,
	}
}

func setupRouter(
	handler *adaptor.Handler,
	service *usecase.Service,
	config *utils.Config,
	logger *zap.Logger,
) *chi.Mux {
	r := chi.NewRouter()

	// Apply global middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Recover(logger))
	r.Use(middleware.CORS(config.App.AllowedOrigins))

	session := middleware.AuthSession(service.Auth, config.JWT.CookieName, logger)

	// Apply routes
	wireAuth(r, handler.Auth, session)
	wireBill(r, handler.Bill, session, logger)
	wirePayment(r, handler.Payment, session, logger)
	wireReceipt(r, handler.Receipt, session, logger)

	r.Get("/health", handler.Health.Health)

	return r
}

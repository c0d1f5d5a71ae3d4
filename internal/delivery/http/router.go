package http

import (
	"log/slog"
	"net/http"

	httpSwagger "github.com/swaggo/http-swagger"

	"eventhub/internal/delivery/http/controllers"
	"eventhub/internal/delivery/http/middleware"
	"eventhub/internal/domain"
)

// Controllers groups the handlers mounted by NewRouter.
type Controllers struct {
	Auth         *controllers.AuthController
	Event        *controllers.EventController
	Registration *controllers.RegistrationController
	Stats        *controllers.StatsController
	User         *controllers.UserController
	Health       *controllers.HealthController
}

// NewRouter initializes the HTTP router with all application routes
func NewRouter(c Controllers, verifier domain.TokenVerifier, logger *slog.Logger) *http.ServeMux {
	mux := http.NewServeMux()
	auth := middleware.RequireAuth(verifier, logger)
	staff := func(next http.HandlerFunc) http.HandlerFunc {
		return auth(middleware.RequireRole(domain.RoleOrganizer, domain.RoleAdmin)(next))
	}

	// Auth
	mux.HandleFunc("POST /auth/signup", c.Auth.SignUp)
	mux.HandleFunc("POST /auth/login", c.Auth.Login)

	// Events
	mux.HandleFunc("POST /events", staff(c.Event.CreateEvent))
	mux.HandleFunc("GET /events", c.Event.ListEvents)
	mux.HandleFunc("GET /events/stats", staff(c.Stats.EventStats))
	mux.HandleFunc("GET /events/{eventID}", c.Event.GetEvent)
	mux.HandleFunc("GET /events/{eventID}/registrations", staff(c.Registration.ListEventRegistrations))

	// Registrations
	mux.HandleFunc("POST /registrations", auth(c.Registration.Register))
	mux.HandleFunc("GET /registrations/me", auth(c.Registration.ListMyRegistrations))
	mux.HandleFunc("GET /registrations/{registrationID}", auth(c.Registration.GetRegistration))
	mux.HandleFunc("PUT /registrations/{registrationID}", auth(c.Registration.UpdateStatus))
	mux.HandleFunc("DELETE /registrations/{registrationID}", auth(c.Registration.Cancel))

	// Users
	mux.HandleFunc("GET /users", auth(middleware.RequireRole(domain.RoleAdmin)(c.User.ListUsers)))

	mux.HandleFunc("GET /health", c.Health.Health)

	// Swagger
	mux.Handle("/swagger/", httpSwagger.WrapHandler)

	return mux
}

package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/Shivanand-hulikatti/campus-events/internal/auth"
	"github.com/Shivanand-hulikatti/campus-events/internal/lifecycle"
	"github.com/Shivanand-hulikatti/campus-events/internal/metrics"
	"github.com/Shivanand-hulikatti/campus-events/internal/service"
)

// Deps are the collaborators the router dispatches to.
type Deps struct {
	Events         *service.EventService
	Registrations  *service.RegistrationCoordinator
	Clubs          *service.ClubService
	Users          *service.UserService
	Tokens         *auth.Tokens
	Metrics        *metrics.Metrics
	Log            *zerolog.Logger
	AllowedOrigins []string
}

var transitionActions = []lifecycle.Action{
	lifecycle.ActionSubmit,
	lifecycle.ActionApprove,
	lifecycle.ActionReject,
	lifecycle.ActionOverride,
	lifecycle.ActionCancel,
	lifecycle.ActionComplete,
}

// NewRouter builds the HTTP API.
func NewRouter(d Deps) http.Handler {
	events := NewEventHandler(d.Events, d.Registrations, d.Log)
	accounts := NewAuthHandler(d.Users, d.Log)
	clubs := NewClubHandler(d.Clubs, d.Log)

	r := chi.NewRouter()

	// Global middleware stack
	r.Use(chimiddleware.Recoverer) // recover from panics, return 500
	r.Use(chimiddleware.RequestID) // attach request IDs
	r.Use(chimiddleware.RealIP)    // trust X-Forwarded-For
	r.Use(Logger(d.Log))           // structured access log
	r.Use(CORS(d.AllowedOrigins))
	r.Use(d.Tokens.Authenticate)

	r.Get("/health", HealthCheck)
	if d.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", d.Metrics.Handler())
	}

	r.Route("/auth", func(r chi.Router) {
		r.Post("/signup", accounts.SignUp)
		r.Post("/signin", accounts.SignIn)
		r.Group(func(r chi.Router) {
			r.Use(auth.RequireActor)
			r.Post("/signout", accounts.SignOut)
			r.Get("/me", accounts.Me)
		})
	})

	r.Route("/users", func(r chi.Router) {
		r.Use(auth.RequireActor)
		r.Get("/", accounts.ListUsers)
		r.Get("/{id}", accounts.GetUser)
		r.Put("/{id}/role", accounts.SetRole)
	})

	r.Route("/clubs", func(r chi.Router) {
		r.Get("/", clubs.ListClubs)
		r.Get("/{id}", clubs.GetClub)
		r.Group(func(r chi.Router) {
			r.Use(auth.RequireActor)
			r.Post("/", clubs.CreateClub)
			r.Put("/{id}", clubs.UpdateClub)
			r.Patch("/{id}/status", clubs.SetStatus)
		})
	})

	r.Route("/events", func(r chi.Router) {
		// Anonymous callers see public events only.
		r.Get("/", events.ListEvents)
		r.Get("/{id}", events.GetEvent)

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireActor)
			r.Post("/", events.CreateEvent)
			r.Put("/{id}", events.UpdateEvent)
			r.Get("/{id}/history", events.History)
			for _, a := range transitionActions {
				r.Post("/{id}/"+string(a), events.Transition(a))
			}
			r.Post("/{id}/register", events.Register)
			r.Delete("/{id}/registration", events.CancelRegistration)
			r.Get("/{id}/registrations", events.ListRegistrations)
		})
	})

	return r
}

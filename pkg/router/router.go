package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/tendant/simple-company/pkg/audit"
	"github.com/tendant/simple-company/pkg/authz"
	"github.com/tendant/simple-company/pkg/company"
	"github.com/tendant/simple-company/pkg/ratelimit"
	"github.com/tendant/simple-company/pkg/user"
)

const DefaultPrefix = "/api/v1"

// Config holds the handlers and the actor resolver needed to setup routes
type Config struct {
	// Prefix all API routes are mounted under. Defaults to DefaultPrefix.
	Prefix string

	CompanyHandle company.Handle
	UserHandle    user.Handle

	// Resolver turns bearer tokens into actors
	Resolver authz.ActorResolver

	// RateLimit and Audit are optional
	RateLimit *ratelimit.Middleware
	Audit     *audit.Middleware
}

// SetupRoutes mounts the company API on the provided router. Every route
// requires a bearer token.
func SetupRoutes(router chi.Router, cfg Config) {
	prefix := cfg.Prefix
	if prefix == "" {
		prefix = DefaultPrefix
	}

	router.Route(prefix, func(r chi.Router) {
		if cfg.RateLimit != nil {
			r.Use(cfg.RateLimit.ByIP)
		}
		r.Use(authz.Authenticate(cfg.Resolver))
		if cfg.RateLimit != nil {
			r.Use(cfg.RateLimit.ByActor)
		}
		if cfg.Audit != nil {
			r.Use(cfg.Audit.Handler)
		}

		r.Get("/me", cfg.UserHandle.Me)

		r.Route("/companies", func(r chi.Router) {
			company.Routes(r, cfg.CompanyHandle)
			r.Get("/{companyID}/users", cfg.UserHandle.ListCompanyUsers)
		})
		r.Route("/users", func(r chi.Router) {
			user.Routes(r, cfg.UserHandle)
		})

		// Private endpoint for testing authentication
		r.Get("/private", func(w http.ResponseWriter, r *http.Request) {
			render.PlainText(w, r, http.StatusText(http.StatusOK))
		})
	})
}

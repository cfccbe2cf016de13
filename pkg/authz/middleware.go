package authz

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/jwtauth/v5"

	"github.com/tendant/simple-company/pkg/errors"
)

// ActorResolver turns a bearer credential into an actor.
type ActorResolver interface {
	ResolveActor(ctx context.Context, token string) (Actor, error)
}

// Authenticate resolves the bearer token of every request and stores the
// actor on the request context. Missing or invalid credentials yield 401.
func Authenticate(resolver ActorResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := jwtauth.TokenFromHeader(r)
			if token == "" {
				slog.Debug("Unauthenticated request to protected resource", "path", r.URL.Path)
				errors.WriteHTTP(w, r, errors.Unauthorized("missing bearer token"))
				return
			}

			actor, err := resolver.ResolveActor(r.Context(), token)
			if err != nil {
				if errors.IsCode(err, errors.ErrCodeUnauthorized) {
					slog.Debug("Rejected bearer token", "path", r.URL.Path, "error", err)
				}
				errors.WriteHTTP(w, r, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), actor)))
		})
	}
}

// RequireSuperAdminRole rejects every request whose actor is not a super admin.
// Must be used after Authenticate.
func RequireSuperAdminRole(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor, ok := ActorFrom(r.Context())
		if !ok {
			errors.WriteHTTP(w, r, errors.Unauthorized("not authenticated"))
			return
		}
		if err := RequireSuperAdmin(actor); err != nil {
			errors.WriteHTTP(w, r, err)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// MustActor returns the request actor or writes 401 and reports false.
func MustActor(w http.ResponseWriter, r *http.Request) (Actor, bool) {
	actor, ok := ActorFrom(r.Context())
	if !ok {
		errors.WriteHTTP(w, r, errors.Unauthorized("not authenticated"))
	}
	return actor, ok
}

package user

import (
	"github.com/go-chi/chi/v5"
)

// Routes registers the user endpoints on r, which is expected to be mounted
// at /users behind authz.Authenticate.
func Routes(r chi.Router, handle Handle) {
	r.Post("/", handle.CreateUser)
	r.Get("/{userID}", handle.GetUser)
	r.Put("/{userID}", handle.UpdateUser)
	r.Delete("/{userID}", handle.DeleteUser)
}

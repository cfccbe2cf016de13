package user

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/jinzhu/copier"

	"github.com/tendant/simple-company/pkg/authz"
	"github.com/tendant/simple-company/pkg/errors"
)

type CreateUserRequest struct {
	Email             string `json:"email"`
	FirstName         string `json:"first_name"`
	LastName          string `json:"last_name"`
	CompanyID         int64  `json:"company_id"`
	Role              string `json:"role"`
	LocationID        *int64 `json:"location_id"`
	TemporaryPassword string `json:"temporary_password"`
}

type UpdateUserRequest struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Role      string `json:"role"`
	CompanyID *int64 `json:"company_id"`
}

type Handle struct {
	userService *UserService
}

func NewHandle(userService *UserService) Handle {
	return Handle{
		userService: userService,
	}
}

// Create a user in the directory and the tenant store
// (POST /users)
func (h Handle) CreateUser(w http.ResponseWriter, r *http.Request) {
	actor, ok := authz.MustActor(w, r)
	if !ok {
		return
	}

	var request CreateUserRequest
	if err := render.DecodeJSON(r.Body, &request); err != nil {
		errors.WriteHTTP(w, r, errors.InvalidInput("body", "must be a JSON object"))
		return
	}
	params := CreateUserParams{}
	copier.Copy(&params, &request)

	user, err := h.userService.CreateUser(r.Context(), actor, params)
	if err != nil {
		errors.WriteHTTP(w, r, err)
		return
	}
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, user)
}

// (GET /users/{userID})
func (h Handle) GetUser(w http.ResponseWriter, r *http.Request) {
	actor, ok := authz.MustActor(w, r)
	if !ok {
		return
	}
	userID, err := pathID(r, "userID")
	if err != nil {
		errors.WriteHTTP(w, r, err)
		return
	}

	user, err := h.userService.GetUser(r.Context(), actor, userID)
	if err != nil {
		errors.WriteHTTP(w, r, err)
		return
	}
	render.JSON(w, r, user)
}

// (PUT /users/{userID})
func (h Handle) UpdateUser(w http.ResponseWriter, r *http.Request) {
	actor, ok := authz.MustActor(w, r)
	if !ok {
		return
	}
	userID, err := pathID(r, "userID")
	if err != nil {
		errors.WriteHTTP(w, r, err)
		return
	}

	var request UpdateUserRequest
	if err := render.DecodeJSON(r.Body, &request); err != nil {
		errors.WriteHTTP(w, r, errors.InvalidInput("body", "must be a JSON object"))
		return
	}
	params := UpdateUserParams{}
	copier.Copy(&params, &request)

	user, err := h.userService.UpdateUser(r.Context(), actor, userID, params)
	if err != nil {
		errors.WriteHTTP(w, r, err)
		return
	}
	render.JSON(w, r, user)
}

// (DELETE /users/{userID})
func (h Handle) DeleteUser(w http.ResponseWriter, r *http.Request) {
	actor, ok := authz.MustActor(w, r)
	if !ok {
		return
	}
	userID, err := pathID(r, "userID")
	if err != nil {
		errors.WriteHTTP(w, r, err)
		return
	}

	if err := h.userService.DeleteUser(r.Context(), actor, userID); err != nil {
		errors.WriteHTTP(w, r, err)
		return
	}
	render.JSON(w, r, map[string]string{"message": "User deleted successfully"})
}

// List the users of a company
// (GET /companies/{companyID}/users)
func (h Handle) ListCompanyUsers(w http.ResponseWriter, r *http.Request) {
	actor, ok := authz.MustActor(w, r)
	if !ok {
		return
	}
	companyID, err := pathID(r, "companyID")
	if err != nil {
		errors.WriteHTTP(w, r, err)
		return
	}

	users, err := h.userService.ListUsers(r.Context(), actor, companyID)
	if err != nil {
		errors.WriteHTTP(w, r, err)
		return
	}
	render.JSON(w, r, users)
}

// Me returns the authenticated actor
// (GET /me)
func (h Handle) Me(w http.ResponseWriter, r *http.Request) {
	actor, ok := authz.MustActor(w, r)
	if !ok {
		return
	}
	render.JSON(w, r, actor)
}

func pathID(r *http.Request, param string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, param), 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.InvalidInput(param, "must be a positive integer")
	}
	return id, nil
}

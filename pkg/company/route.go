package company

import (
	"github.com/ggicci/httpin"
	"github.com/go-chi/chi/v5"

	"github.com/tendant/simple-company/pkg/authz"
)

// Routes registers the company endpoints on r, which is expected to be
// mounted at /companies behind authz.Authenticate.
func Routes(r chi.Router, handle Handle) {
	r.Post("/", handle.CreateCompany)
	r.With(authz.RequireSuperAdminRole, httpin.NewInput(ListCompaniesInput{})).Get("/", handle.ListCompanies)

	r.Route("/{companyID}", func(r chi.Router) {
		r.Get("/", handle.GetCompany)
		r.Put("/", handle.UpdateCompany)
		r.Put("/logo", handle.UploadLogo)
		r.Post("/locations", handle.AddLocation)
		r.Put("/locations/{locationID}", handle.UpdateLocation)
		r.Delete("/locations/{locationID}", handle.DeleteLocation)
	})
}

// Package company implements company and location management.
//
// CompanyService gates each use case with the authz package and runs its
// store writes in a single tenant transaction:
//
//	companyService := company.NewCompanyService(repo, logoStore,
//		company.WithLogoUploadTimeout(30*time.Second))
//	handle := company.NewHandle(companyService)
//	r.Route("/companies", func(r chi.Router) { company.Routes(r, handle) })
//
// Creating a company requires super_admin. Reading requires membership of the
// company and changing it requires admin of the company or super_admin.
// Logos are stored under company_logos/{id}.png.
package company

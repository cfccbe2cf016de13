// Package router mounts the company API on a chi router.
//
//	r := chi.NewRouter()
//	router.SetupRoutes(r, router.Config{
//		CompanyHandle: company.NewHandle(companyService),
//		UserHandle:    user.NewHandle(userService),
//		Resolver:      directory.NewResolver(dir),
//		RateLimit:     ratelimit.NewMiddleware(ratelimit.DefaultConfig()),
//	})
//
// Routes under the prefix (default /api/v1):
//
//	GET    /me
//	POST   /companies/
//	GET    /companies/?skip=&limit=
//	GET    /companies/{companyID}
//	PUT    /companies/{companyID}
//	PUT    /companies/{companyID}/logo
//	POST   /companies/{companyID}/locations
//	PUT    /companies/{companyID}/locations/{locationID}
//	DELETE /companies/{companyID}/locations/{locationID}
//	GET    /companies/{companyID}/users
//	POST   /users/
//	GET    /users/{userID}
//	PUT    /users/{userID}
//	DELETE /users/{userID}
package router

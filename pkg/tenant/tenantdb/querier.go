package tenantdb

import (
	"context"
)

type Querier interface {
	CompanyExists(ctx context.Context, id int64) (bool, error)
	CountUsersByCompany(ctx context.Context, companyID int64) (int64, error)
	CreateCompany(ctx context.Context, arg CreateCompanyParams) (Company, error)
	CreateLocation(ctx context.Context, arg CreateLocationParams) (Location, error)
	CreateUser(ctx context.Context, arg CreateUserParams) (User, error)
	DeleteLocation(ctx context.Context, arg DeleteLocationParams) (int64, error)
	DeleteUser(ctx context.Context, id int64) (int64, error)
	GetCompany(ctx context.Context, id int64) (Company, error)
	GetLocation(ctx context.Context, arg GetLocationParams) (Location, error)
	GetUser(ctx context.Context, id int64) (User, error)
	GetUserByIdentityRef(ctx context.Context, identityRef string) (User, error)
	ListCompanies(ctx context.Context, arg ListCompaniesParams) ([]Company, error)
	ListLocations(ctx context.Context, companyID int64) ([]Location, error)
	ListNamedLocationsForCompanies(ctx context.Context, companyIds []int64) ([]Location, error)
	ListUsersByCompany(ctx context.Context, companyID int64) ([]User, error)
	LockCompany(ctx context.Context, companyID int64) error
	SetCompanyLogo(ctx context.Context, arg SetCompanyLogoParams) (int64, error)
	SetUserLocation(ctx context.Context, arg SetUserLocationParams) (int64, error)
	UpdateCompany(ctx context.Context, arg UpdateCompanyParams) (Company, error)
	UpdateLocation(ctx context.Context, arg UpdateLocationParams) (Location, error)
	UpdateUser(ctx context.Context, arg UpdateUserParams) (User, error)
}

var _ Querier = (*Queries)(nil)

package tenant

import (
	"context"
	"errors"
)

var (
	ErrCompanyNotFound  = errors.New("company not found")
	ErrLocationNotFound = errors.New("location not found")
	ErrUserNotFound     = errors.New("user not found")
	// ErrDuplicate reports a unique constraint violation.
	ErrDuplicate = errors.New("duplicate value")
	// ErrInvalidReference reports a row pointing at a missing or foreign row.
	ErrInvalidReference = errors.New("invalid reference")
	ErrInvalidValue     = errors.New("invalid value")
)

// Store is the set of tenant store operations. Outside WithTx every call
// runs in its own implicit transaction.
type Store interface {
	CreateCompany(ctx context.Context, params CreateCompanyParams) (Company, error)
	// GetCompany returns the company with all of its locations.
	GetCompany(ctx context.Context, id int64) (Company, error)
	CompanyExists(ctx context.Context, id int64) (bool, error)
	UpdateCompany(ctx context.Context, params UpdateCompanyParams) (Company, error)
	SetCompanyLogo(ctx context.Context, id int64, logoURL string) error
	// ListCompanies orders by id and leaves out locations without a name.
	ListCompanies(ctx context.Context, skip, limit int) ([]Company, error)

	CreateLocation(ctx context.Context, params CreateLocationParams) (Location, error)
	GetLocation(ctx context.Context, companyID, locationID int64) (Location, error)
	UpdateLocation(ctx context.Context, params UpdateLocationParams) (Location, error)
	DeleteLocation(ctx context.Context, companyID, locationID int64) error

	// LockCompany serializes transactions on one company until commit or
	// rollback. Only meaningful inside WithTx.
	LockCompany(ctx context.Context, companyID int64) error
	CountUsers(ctx context.Context, companyID int64) (int64, error)
	CreateUser(ctx context.Context, params CreateUserParams) (User, error)
	GetUser(ctx context.Context, id int64) (User, error)
	GetUserByIdentityRef(ctx context.Context, identityRef string) (User, error)
	ListUsers(ctx context.Context, companyID int64) ([]User, error)
	UpdateUser(ctx context.Context, params UpdateUserParams) (User, error)
	SetUserLocation(ctx context.Context, userID int64, locationID *int64) error
	DeleteUser(ctx context.Context, id int64) error
}

// Repository is a Store that can also run a group of operations atomically.
type Repository interface {
	Store
	// WithTx runs fn in one transaction. The transaction commits when fn
	// returns nil and rolls back otherwise, including on panic.
	WithTx(ctx context.Context, fn func(Store) error) error
}

var (
	_ Repository = (*PostgresRepository)(nil)
	_ Repository = (*InMemoryRepository)(nil)
)

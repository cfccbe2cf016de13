package tenant

import "github.com/tendant/simple-company/pkg/authz"

// Default location created for the first user of a company.
const (
	DefaultLocationName    = "Default Location"
	DefaultLocationAddress = "Default Address"
)

type Company struct {
	ID        int64      `json:"id"`
	Name      string     `json:"name"`
	LogoURL   *string    `json:"logo_url"`
	Locations []Location `json:"locations"`
}

// Location is an address of a company. An empty Name is stored as NULL.
type Location struct {
	ID        int64  `json:"id"`
	CompanyID int64  `json:"company_id"`
	Name      string `json:"name"`
	Address   string `json:"address"`
	IsDefault bool   `json:"is_default"`
}

type User struct {
	ID          int64      `json:"id"`
	IdentityRef string     `json:"identity_ref"`
	CompanyID   int64      `json:"company_id"`
	Role        authz.Role `json:"role"`
	FirstName   string     `json:"first_name"`
	LastName    string     `json:"last_name"`
	Email       string     `json:"email"`
	LocationID  *int64     `json:"location_id"`
}

type CreateCompanyParams struct {
	Name    string
	LogoURL *string
}

// UpdateCompanyParams replaces the name. A nil LogoURL keeps the stored logo.
type UpdateCompanyParams struct {
	ID      int64
	Name    string
	LogoURL *string
}

type CreateLocationParams struct {
	CompanyID int64
	Name      string
	Address   string
	IsDefault bool
}

type UpdateLocationParams struct {
	ID        int64
	CompanyID int64
	Name      string
	Address   string
}

type CreateUserParams struct {
	IdentityRef string
	CompanyID   int64
	Role        authz.Role
	FirstName   string
	LastName    string
	Email       string
	LocationID  *int64
}

// UpdateUserParams carries the mutable user fields. CompanyID is not among them.
type UpdateUserParams struct {
	ID        int64
	FirstName string
	LastName  string
	Role      authz.Role
}

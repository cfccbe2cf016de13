package tenantdb

import (
	"github.com/jackc/pgx/v5/pgtype"
)

type Company struct {
	ID      int64       `json:"id"`
	Name    string      `json:"name"`
	LogoUrl pgtype.Text `json:"logo_url"`
}

type Location struct {
	ID        int64       `json:"id"`
	CompanyID int64       `json:"company_id"`
	Name      pgtype.Text `json:"name"`
	Address   pgtype.Text `json:"address"`
	IsDefault bool        `json:"is_default"`
}

type User struct {
	ID          int64       `json:"id"`
	IdentityRef string      `json:"identity_ref"`
	CompanyID   int64       `json:"company_id"`
	Role        string      `json:"role"`
	FirstName   string      `json:"first_name"`
	LastName    string      `json:"last_name"`
	Email       string      `json:"email"`
	LocationID  pgtype.Int8 `json:"location_id"`
}

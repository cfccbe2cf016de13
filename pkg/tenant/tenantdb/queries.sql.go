package tenantdb

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const companyExists = `-- name: CompanyExists :one
SELECT EXISTS (SELECT 1 FROM companies WHERE id = $1)
`

func (q *Queries) CompanyExists(ctx context.Context, id int64) (bool, error) {
	row := q.db.QueryRow(ctx, companyExists, id)
	var exists bool
	err := row.Scan(&exists)
	return exists, err
}

const countUsersByCompany = `-- name: CountUsersByCompany :one
SELECT count(*)
FROM users
WHERE company_id = $1
`

func (q *Queries) CountUsersByCompany(ctx context.Context, companyID int64) (int64, error) {
	row := q.db.QueryRow(ctx, countUsersByCompany, companyID)
	var count int64
	err := row.Scan(&count)
	return count, err
}

const createCompany = `-- name: CreateCompany :one
INSERT INTO companies (name, logo_url)
VALUES ($1, $2)
RETURNING id, name, logo_url
`

type CreateCompanyParams struct {
	Name    string      `json:"name"`
	LogoUrl pgtype.Text `json:"logo_url"`
}

func (q *Queries) CreateCompany(ctx context.Context, arg CreateCompanyParams) (Company, error) {
	row := q.db.QueryRow(ctx, createCompany, arg.Name, arg.LogoUrl)
	var i Company
	err := row.Scan(&i.ID, &i.Name, &i.LogoUrl)
	return i, err
}

const createLocation = `-- name: CreateLocation :one
INSERT INTO locations (company_id, name, address, is_default)
VALUES ($1, $2, $3, $4)
RETURNING id, company_id, name, address, is_default
`

type CreateLocationParams struct {
	CompanyID int64       `json:"company_id"`
	Name      pgtype.Text `json:"name"`
	Address   pgtype.Text `json:"address"`
	IsDefault bool        `json:"is_default"`
}

func (q *Queries) CreateLocation(ctx context.Context, arg CreateLocationParams) (Location, error) {
	row := q.db.QueryRow(ctx, createLocation, arg.CompanyID, arg.Name, arg.Address, arg.IsDefault)
	var i Location
	err := row.Scan(&i.ID, &i.CompanyID, &i.Name, &i.Address, &i.IsDefault)
	return i, err
}

const createUser = `-- name: CreateUser :one
INSERT INTO users (identity_ref, company_id, role, first_name, last_name, email, location_id)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING id, identity_ref, company_id, role, first_name, last_name, email, location_id
`

type CreateUserParams struct {
	IdentityRef string      `json:"identity_ref"`
	CompanyID   int64       `json:"company_id"`
	Role        string      `json:"role"`
	FirstName   string      `json:"first_name"`
	LastName    string      `json:"last_name"`
	Email       string      `json:"email"`
	LocationID  pgtype.Int8 `json:"location_id"`
}

func (q *Queries) CreateUser(ctx context.Context, arg CreateUserParams) (User, error) {
	row := q.db.QueryRow(ctx, createUser,
		arg.IdentityRef,
		arg.CompanyID,
		arg.Role,
		arg.FirstName,
		arg.LastName,
		arg.Email,
		arg.LocationID,
	)
	var i User
	err := scanUser(row, &i)
	return i, err
}

const deleteLocation = `-- name: DeleteLocation :execrows
DELETE FROM locations
WHERE id = $1 AND company_id = $2
`

type DeleteLocationParams struct {
	ID        int64 `json:"id"`
	CompanyID int64 `json:"company_id"`
}

func (q *Queries) DeleteLocation(ctx context.Context, arg DeleteLocationParams) (int64, error) {
	result, err := q.db.Exec(ctx, deleteLocation, arg.ID, arg.CompanyID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

const deleteUser = `-- name: DeleteUser :execrows
DELETE FROM users
WHERE id = $1
`

func (q *Queries) DeleteUser(ctx context.Context, id int64) (int64, error) {
	result, err := q.db.Exec(ctx, deleteUser, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

const getCompany = `-- name: GetCompany :one
SELECT id, name, logo_url
FROM companies
WHERE id = $1
`

func (q *Queries) GetCompany(ctx context.Context, id int64) (Company, error) {
	row := q.db.QueryRow(ctx, getCompany, id)
	var i Company
	err := row.Scan(&i.ID, &i.Name, &i.LogoUrl)
	return i, err
}

const getLocation = `-- name: GetLocation :one
SELECT id, company_id, name, address, is_default
FROM locations
WHERE id = $1 AND company_id = $2
`

type GetLocationParams struct {
	ID        int64 `json:"id"`
	CompanyID int64 `json:"company_id"`
}

func (q *Queries) GetLocation(ctx context.Context, arg GetLocationParams) (Location, error) {
	row := q.db.QueryRow(ctx, getLocation, arg.ID, arg.CompanyID)
	var i Location
	err := row.Scan(&i.ID, &i.CompanyID, &i.Name, &i.Address, &i.IsDefault)
	return i, err
}

const getUser = `-- name: GetUser :one
SELECT id, identity_ref, company_id, role, first_name, last_name, email, location_id
FROM users
WHERE id = $1
`

func (q *Queries) GetUser(ctx context.Context, id int64) (User, error) {
	row := q.db.QueryRow(ctx, getUser, id)
	var i User
	err := scanUser(row, &i)
	return i, err
}

const getUserByIdentityRef = `-- name: GetUserByIdentityRef :one
SELECT id, identity_ref, company_id, role, first_name, last_name, email, location_id
FROM users
WHERE identity_ref = $1
`

func (q *Queries) GetUserByIdentityRef(ctx context.Context, identityRef string) (User, error) {
	row := q.db.QueryRow(ctx, getUserByIdentityRef, identityRef)
	var i User
	err := scanUser(row, &i)
	return i, err
}

const listCompanies = `-- name: ListCompanies :many
SELECT id, name, logo_url
FROM companies
ORDER BY id
LIMIT $1 OFFSET $2
`

type ListCompaniesParams struct {
	Limit  int32 `json:"limit"`
	Offset int32 `json:"offset"`
}

func (q *Queries) ListCompanies(ctx context.Context, arg ListCompaniesParams) ([]Company, error) {
	rows, err := q.db.Query(ctx, listCompanies, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Company
	for rows.Next() {
		var i Company
		if err := rows.Scan(&i.ID, &i.Name, &i.LogoUrl); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const listLocations = `-- name: ListLocations :many
SELECT id, company_id, name, address, is_default
FROM locations
WHERE company_id = $1
ORDER BY id
`

func (q *Queries) ListLocations(ctx context.Context, companyID int64) ([]Location, error) {
	return q.queryLocations(ctx, listLocations, companyID)
}

const listNamedLocationsForCompanies = `-- name: ListNamedLocationsForCompanies :many
SELECT id, company_id, name, address, is_default
FROM locations
WHERE company_id = ANY($1::bigint[])
  AND name IS NOT NULL
ORDER BY company_id, id
`

func (q *Queries) ListNamedLocationsForCompanies(ctx context.Context, companyIds []int64) ([]Location, error) {
	return q.queryLocations(ctx, listNamedLocationsForCompanies, companyIds)
}

func (q *Queries) queryLocations(ctx context.Context, sql string, args ...interface{}) ([]Location, error) {
	rows, err := q.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Location
	for rows.Next() {
		var i Location
		if err := rows.Scan(&i.ID, &i.CompanyID, &i.Name, &i.Address, &i.IsDefault); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const listUsersByCompany = `-- name: ListUsersByCompany :many
SELECT id, identity_ref, company_id, role, first_name, last_name, email, location_id
FROM users
WHERE company_id = $1
ORDER BY id
`

func (q *Queries) ListUsersByCompany(ctx context.Context, companyID int64) ([]User, error) {
	rows, err := q.db.Query(ctx, listUsersByCompany, companyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []User
	for rows.Next() {
		var i User
		if err := scanUser(rows, &i); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const lockCompany = `-- name: LockCompany :exec
SELECT pg_advisory_xact_lock(hashtextextended('tenant_company:' || $1::bigint::text, 0))
`

// LockCompany blocks until this transaction holds the company's advisory
// lock. The lock is released at commit or rollback.
func (q *Queries) LockCompany(ctx context.Context, companyID int64) error {
	_, err := q.db.Exec(ctx, lockCompany, companyID)
	return err
}

const setCompanyLogo = `-- name: SetCompanyLogo :execrows
UPDATE companies
SET logo_url   = $2,
    updated_at = now()
WHERE id = $1
`

type SetCompanyLogoParams struct {
	ID      int64       `json:"id"`
	LogoUrl pgtype.Text `json:"logo_url"`
}

func (q *Queries) SetCompanyLogo(ctx context.Context, arg SetCompanyLogoParams) (int64, error) {
	result, err := q.db.Exec(ctx, setCompanyLogo, arg.ID, arg.LogoUrl)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

const setUserLocation = `-- name: SetUserLocation :execrows
UPDATE users
SET location_id = $2,
    updated_at  = now()
WHERE id = $1
`

type SetUserLocationParams struct {
	ID         int64       `json:"id"`
	LocationID pgtype.Int8 `json:"location_id"`
}

func (q *Queries) SetUserLocation(ctx context.Context, arg SetUserLocationParams) (int64, error) {
	result, err := q.db.Exec(ctx, setUserLocation, arg.ID, arg.LocationID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

const updateCompany = `-- name: UpdateCompany :one
UPDATE companies
SET name       = $2,
    logo_url   = COALESCE($3, logo_url),
    updated_at = now()
WHERE id = $1
RETURNING id, name, logo_url
`

type UpdateCompanyParams struct {
	ID      int64       `json:"id"`
	Name    string      `json:"name"`
	LogoUrl pgtype.Text `json:"logo_url"`
}

func (q *Queries) UpdateCompany(ctx context.Context, arg UpdateCompanyParams) (Company, error) {
	row := q.db.QueryRow(ctx, updateCompany, arg.ID, arg.Name, arg.LogoUrl)
	var i Company
	err := row.Scan(&i.ID, &i.Name, &i.LogoUrl)
	return i, err
}

const updateLocation = `-- name: UpdateLocation :one
UPDATE locations
SET name       = $3,
    address    = $4,
    updated_at = now()
WHERE id = $1 AND company_id = $2
RETURNING id, company_id, name, address, is_default
`

type UpdateLocationParams struct {
	ID        int64       `json:"id"`
	CompanyID int64       `json:"company_id"`
	Name      pgtype.Text `json:"name"`
	Address   pgtype.Text `json:"address"`
}

func (q *Queries) UpdateLocation(ctx context.Context, arg UpdateLocationParams) (Location, error) {
	row := q.db.QueryRow(ctx, updateLocation, arg.ID, arg.CompanyID, arg.Name, arg.Address)
	var i Location
	err := row.Scan(&i.ID, &i.CompanyID, &i.Name, &i.Address, &i.IsDefault)
	return i, err
}

const updateUser = `-- name: UpdateUser :one
UPDATE users
SET first_name = $2,
    last_name  = $3,
    role       = $4,
    updated_at = now()
WHERE id = $1
RETURNING id, identity_ref, company_id, role, first_name, last_name, email, location_id
`

type UpdateUserParams struct {
	ID        int64  `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Role      string `json:"role"`
}

func (q *Queries) UpdateUser(ctx context.Context, arg UpdateUserParams) (User, error) {
	row := q.db.QueryRow(ctx, updateUser, arg.ID, arg.FirstName, arg.LastName, arg.Role)
	var i User
	err := scanUser(row, &i)
	return i, err
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanUser(row scanner, i *User) error {
	return row.Scan(
		&i.ID,
		&i.IdentityRef,
		&i.CompanyID,
		&i.Role,
		&i.FirstName,
		&i.LastName,
		&i.Email,
		&i.LocationID,
	)
}

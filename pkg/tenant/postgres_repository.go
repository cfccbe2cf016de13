package tenant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/tendant/simple-company/pkg/authz"
	"github.com/tendant/simple-company/pkg/tenant/tenantdb"
)

// DB is satisfied by *pgxpool.Pool.
type DB interface {
	tenantdb.DBTX
	Begin(ctx context.Context) (pgx.Tx, error)
}

// PostgresRepository implements Repository using PostgreSQL
type PostgresRepository struct {
	postgresStore
	db DB
}

// NewPostgresRepository creates a new PostgreSQL-based tenant repository
func NewPostgresRepository(db DB) *PostgresRepository {
	return &PostgresRepository{
		postgresStore: postgresStore{queries: tenantdb.New(db)},
		db:            db,
	}
}

func (r *PostgresRepository) WithTx(ctx context.Context, fn func(Store) error) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", mapPostgresError(err, nil))
	}
	defer func() {
		// No-op after a successful commit.
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			slog.Error("Failed to roll back transaction", "error", rbErr)
		}
	}()

	if err := fn(postgresStore{queries: r.queries.WithTx(tx)}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", mapPostgresError(err, nil))
	}
	return nil
}

type postgresStore struct {
	queries *tenantdb.Queries
}

func (s postgresStore) CreateCompany(ctx context.Context, params CreateCompanyParams) (Company, error) {
	row, err := s.queries.CreateCompany(ctx, tenantdb.CreateCompanyParams{
		Name:    params.Name,
		LogoUrl: optionalText(params.LogoURL),
	})
	if err != nil {
		return Company{}, fmt.Errorf("failed to create company: %w", mapPostgresError(err, nil))
	}
	return companyFromRow(row, []Location{}), nil
}

func (s postgresStore) GetCompany(ctx context.Context, id int64) (Company, error) {
	row, err := s.queries.GetCompany(ctx, id)
	if err != nil {
		return Company{}, mapPostgresError(err, ErrCompanyNotFound)
	}
	rows, err := s.queries.ListLocations(ctx, id)
	if err != nil {
		return Company{}, fmt.Errorf("failed to list locations: %w", mapPostgresError(err, nil))
	}
	locations := make([]Location, 0, len(rows))
	for _, l := range rows {
		locations = append(locations, locationFromRow(l))
	}
	return companyFromRow(row, locations), nil
}

func (s postgresStore) CompanyExists(ctx context.Context, id int64) (bool, error) {
	exists, err := s.queries.CompanyExists(ctx, id)
	if err != nil {
		return false, fmt.Errorf("failed to check company: %w", mapPostgresError(err, nil))
	}
	return exists, nil
}

func (s postgresStore) UpdateCompany(ctx context.Context, params UpdateCompanyParams) (Company, error) {
	_, err := s.queries.UpdateCompany(ctx, tenantdb.UpdateCompanyParams{
		ID:      params.ID,
		Name:    params.Name,
		LogoUrl: optionalText(params.LogoURL),
	})
	if err != nil {
		return Company{}, mapPostgresError(err, ErrCompanyNotFound)
	}
	return s.GetCompany(ctx, params.ID)
}

func (s postgresStore) SetCompanyLogo(ctx context.Context, id int64, logoURL string) error {
	n, err := s.queries.SetCompanyLogo(ctx, tenantdb.SetCompanyLogoParams{
		ID:      id,
		LogoUrl: pgtype.Text{String: logoURL, Valid: true},
	})
	if err != nil {
		return fmt.Errorf("failed to set company logo: %w", mapPostgresError(err, nil))
	}
	if n == 0 {
		return ErrCompanyNotFound
	}
	return nil
}

func (s postgresStore) ListCompanies(ctx context.Context, skip, limit int) ([]Company, error) {
	rows, err := s.queries.ListCompanies(ctx, tenantdb.ListCompaniesParams{
		Limit:  int32(limit),
		Offset: int32(skip),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list companies: %w", mapPostgresError(err, nil))
	}
	if len(rows) == 0 {
		return []Company{}, nil
	}

	ids := make([]int64, 0, len(rows))
	for _, c := range rows {
		ids = append(ids, c.ID)
	}
	locRows, err := s.queries.ListNamedLocationsForCompanies(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to list locations: %w", mapPostgresError(err, nil))
	}
	byCompany := make(map[int64][]Location, len(rows))
	for _, l := range locRows {
		byCompany[l.CompanyID] = append(byCompany[l.CompanyID], locationFromRow(l))
	}

	companies := make([]Company, 0, len(rows))
	for _, c := range rows {
		locations := byCompany[c.ID]
		if locations == nil {
			locations = []Location{}
		}
		companies = append(companies, companyFromRow(c, locations))
	}
	return companies, nil
}

func (s postgresStore) CreateLocation(ctx context.Context, params CreateLocationParams) (Location, error) {
	row, err := s.queries.CreateLocation(ctx, tenantdb.CreateLocationParams{
		CompanyID: params.CompanyID,
		Name:      nullableText(params.Name),
		Address:   nullableText(params.Address),
		IsDefault: params.IsDefault,
	})
	if err != nil {
		return Location{}, fmt.Errorf("failed to create location: %w", mapPostgresError(err, nil))
	}
	return locationFromRow(row), nil
}

func (s postgresStore) GetLocation(ctx context.Context, companyID, locationID int64) (Location, error) {
	row, err := s.queries.GetLocation(ctx, tenantdb.GetLocationParams{ID: locationID, CompanyID: companyID})
	if err != nil {
		return Location{}, mapPostgresError(err, ErrLocationNotFound)
	}
	return locationFromRow(row), nil
}

func (s postgresStore) UpdateLocation(ctx context.Context, params UpdateLocationParams) (Location, error) {
	row, err := s.queries.UpdateLocation(ctx, tenantdb.UpdateLocationParams{
		ID:        params.ID,
		CompanyID: params.CompanyID,
		Name:      nullableText(params.Name),
		Address:   nullableText(params.Address),
	})
	if err != nil {
		return Location{}, mapPostgresError(err, ErrLocationNotFound)
	}
	return locationFromRow(row), nil
}

func (s postgresStore) DeleteLocation(ctx context.Context, companyID, locationID int64) error {
	n, err := s.queries.DeleteLocation(ctx, tenantdb.DeleteLocationParams{ID: locationID, CompanyID: companyID})
	if err != nil {
		return fmt.Errorf("failed to delete location: %w", mapPostgresError(err, nil))
	}
	if n == 0 {
		return ErrLocationNotFound
	}
	return nil
}

func (s postgresStore) LockCompany(ctx context.Context, companyID int64) error {
	if err := s.queries.LockCompany(ctx, companyID); err != nil {
		return fmt.Errorf("failed to lock company %d: %w", companyID, mapPostgresError(err, nil))
	}
	return nil
}

func (s postgresStore) CountUsers(ctx context.Context, companyID int64) (int64, error) {
	n, err := s.queries.CountUsersByCompany(ctx, companyID)
	if err != nil {
		return 0, fmt.Errorf("failed to count users: %w", mapPostgresError(err, nil))
	}
	return n, nil
}

func (s postgresStore) CreateUser(ctx context.Context, params CreateUserParams) (User, error) {
	row, err := s.queries.CreateUser(ctx, tenantdb.CreateUserParams{
		IdentityRef: params.IdentityRef,
		CompanyID:   params.CompanyID,
		Role:        string(params.Role),
		FirstName:   params.FirstName,
		LastName:    params.LastName,
		Email:       params.Email,
		LocationID:  optionalInt8(params.LocationID),
	})
	if err != nil {
		return User{}, fmt.Errorf("failed to create user: %w", mapPostgresError(err, nil))
	}
	return userFromRow(row), nil
}

func (s postgresStore) GetUser(ctx context.Context, id int64) (User, error) {
	row, err := s.queries.GetUser(ctx, id)
	if err != nil {
		return User{}, mapPostgresError(err, ErrUserNotFound)
	}
	return userFromRow(row), nil
}

func (s postgresStore) GetUserByIdentityRef(ctx context.Context, identityRef string) (User, error) {
	row, err := s.queries.GetUserByIdentityRef(ctx, identityRef)
	if err != nil {
		return User{}, mapPostgresError(err, ErrUserNotFound)
	}
	return userFromRow(row), nil
}

func (s postgresStore) ListUsers(ctx context.Context, companyID int64) ([]User, error) {
	rows, err := s.queries.ListUsersByCompany(ctx, companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", mapPostgresError(err, nil))
	}
	users := make([]User, 0, len(rows))
	for _, u := range rows {
		users = append(users, userFromRow(u))
	}
	return users, nil
}

func (s postgresStore) UpdateUser(ctx context.Context, params UpdateUserParams) (User, error) {
	row, err := s.queries.UpdateUser(ctx, tenantdb.UpdateUserParams{
		ID:        params.ID,
		FirstName: params.FirstName,
		LastName:  params.LastName,
		Role:      string(params.Role),
	})
	if err != nil {
		return User{}, mapPostgresError(err, ErrUserNotFound)
	}
	return userFromRow(row), nil
}

func (s postgresStore) SetUserLocation(ctx context.Context, userID int64, locationID *int64) error {
	n, err := s.queries.SetUserLocation(ctx, tenantdb.SetUserLocationParams{
		ID:         userID,
		LocationID: optionalInt8(locationID),
	})
	if err != nil {
		return fmt.Errorf("failed to set user location: %w", mapPostgresError(err, nil))
	}
	if n == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (s postgresStore) DeleteUser(ctx context.Context, id int64) error {
	n, err := s.queries.DeleteUser(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", mapPostgresError(err, nil))
	}
	if n == 0 {
		return ErrUserNotFound
	}
	return nil
}

func companyFromRow(row tenantdb.Company, locations []Location) Company {
	c := Company{ID: row.ID, Name: row.Name, Locations: locations}
	if row.LogoUrl.Valid {
		url := row.LogoUrl.String
		c.LogoURL = &url
	}
	return c
}

func locationFromRow(row tenantdb.Location) Location {
	return Location{
		ID:        row.ID,
		CompanyID: row.CompanyID,
		Name:      row.Name.String,
		Address:   row.Address.String,
		IsDefault: row.IsDefault,
	}
}

func userFromRow(row tenantdb.User) User {
	u := User{
		ID:          row.ID,
		IdentityRef: row.IdentityRef,
		CompanyID:   row.CompanyID,
		Role:        authz.Role(row.Role),
		FirstName:   row.FirstName,
		LastName:    row.LastName,
		Email:       row.Email,
	}
	if row.LocationID.Valid {
		id := row.LocationID.Int64
		u.LocationID = &id
	}
	return u
}

func nullableText(s string) pgtype.Text {
	return pgtype.Text{String: s, Valid: s != ""}
}

func optionalText(s *string) pgtype.Text {
	if s == nil {
		return pgtype.Text{}
	}
	return pgtype.Text{String: *s, Valid: true}
}

func optionalInt8(v *int64) pgtype.Int8 {
	if v == nil {
		return pgtype.Int8{}
	}
	return pgtype.Int8{Int64: *v, Valid: true}
}

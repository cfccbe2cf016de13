package tenant

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/tendant/simple-company/pkg/authz"
)

// InMemoryRepository implements Repository with maps. It enforces the same
// constraints as the PostgreSQL schema. WithTx holds one global lock for the
// whole transaction and restores a snapshot on failure.
type InMemoryRepository struct {
	memStore
	mu sync.Mutex
}

func NewInMemoryRepository() *InMemoryRepository {
	r := &InMemoryRepository{}
	r.memStore = memStore{mu: &r.mu, d: newMemData()}
	return r
}

func (r *InMemoryRepository) WithTx(ctx context.Context, fn func(Store) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	snapshot := r.d.clone()
	committed := false
	defer func() {
		if !committed {
			*r.d = *snapshot
		}
	}()

	if err := ctx.Err(); err != nil {
		return err
	}
	if err := fn(&memStore{d: r.d}); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	committed = true
	return nil
}

type memData struct {
	companies      map[int64]Company
	locations      map[int64]Location
	users          map[int64]User
	nextCompanyID  int64
	nextLocationID int64
	nextUserID     int64
}

func newMemData() *memData {
	return &memData{
		companies: make(map[int64]Company),
		locations: make(map[int64]Location),
		users:     make(map[int64]User),
	}
}

func (d *memData) clone() *memData {
	c := &memData{
		companies:      make(map[int64]Company, len(d.companies)),
		locations:      make(map[int64]Location, len(d.locations)),
		users:          make(map[int64]User, len(d.users)),
		nextCompanyID:  d.nextCompanyID,
		nextLocationID: d.nextLocationID,
		nextUserID:     d.nextUserID,
	}
	for k, v := range d.companies {
		c.companies[k] = v
	}
	for k, v := range d.locations {
		c.locations[k] = v
	}
	for k, v := range d.users {
		c.users[k] = v
	}
	return c
}

// memStore runs operations on d. A nil mu means the caller already holds the lock.
type memStore struct {
	mu *sync.Mutex
	d  *memData
}

func (s *memStore) lock() func() {
	if s.mu == nil {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

func (s *memStore) CreateCompany(ctx context.Context, params CreateCompanyParams) (Company, error) {
	defer s.lock()()

	if strings.TrimSpace(params.Name) == "" {
		return Company{}, fmt.Errorf("%w: companies_name_check", ErrInvalidValue)
	}
	s.d.nextCompanyID++
	c := Company{ID: s.d.nextCompanyID, Name: params.Name, LogoURL: cloneString(params.LogoURL)}
	s.d.companies[c.ID] = c
	return s.hydrate(c, false), nil
}

func (s *memStore) GetCompany(ctx context.Context, id int64) (Company, error) {
	defer s.lock()()

	c, ok := s.d.companies[id]
	if !ok {
		return Company{}, ErrCompanyNotFound
	}
	return s.hydrate(c, false), nil
}

func (s *memStore) CompanyExists(ctx context.Context, id int64) (bool, error) {
	defer s.lock()()

	_, ok := s.d.companies[id]
	return ok, nil
}

func (s *memStore) UpdateCompany(ctx context.Context, params UpdateCompanyParams) (Company, error) {
	defer s.lock()()

	c, ok := s.d.companies[params.ID]
	if !ok {
		return Company{}, ErrCompanyNotFound
	}
	if strings.TrimSpace(params.Name) == "" {
		return Company{}, fmt.Errorf("%w: companies_name_check", ErrInvalidValue)
	}
	c.Name = params.Name
	if params.LogoURL != nil {
		c.LogoURL = cloneString(params.LogoURL)
	}
	s.d.companies[c.ID] = c
	return s.hydrate(c, false), nil
}

func (s *memStore) SetCompanyLogo(ctx context.Context, id int64, logoURL string) error {
	defer s.lock()()

	c, ok := s.d.companies[id]
	if !ok {
		return ErrCompanyNotFound
	}
	c.LogoURL = &logoURL
	s.d.companies[id] = c
	return nil
}

func (s *memStore) ListCompanies(ctx context.Context, skip, limit int) ([]Company, error) {
	defer s.lock()()

	ids := make([]int64, 0, len(s.d.companies))
	for id := range s.d.companies {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	companies := []Company{}
	for i := skip; i < len(ids) && len(companies) < limit; i++ {
		companies = append(companies, s.hydrate(s.d.companies[ids[i]], true))
	}
	return companies, nil
}

func (s *memStore) CreateLocation(ctx context.Context, params CreateLocationParams) (Location, error) {
	defer s.lock()()

	if _, ok := s.d.companies[params.CompanyID]; !ok {
		return Location{}, fmt.Errorf("%w: locations_company_id_fkey", ErrInvalidReference)
	}
	if params.IsDefault {
		for _, l := range s.d.locations {
			if l.CompanyID == params.CompanyID && l.IsDefault {
				return Location{}, fmt.Errorf("%w: locations_one_default_per_company", ErrDuplicate)
			}
		}
	}
	s.d.nextLocationID++
	l := Location{
		ID:        s.d.nextLocationID,
		CompanyID: params.CompanyID,
		Name:      params.Name,
		Address:   params.Address,
		IsDefault: params.IsDefault,
	}
	s.d.locations[l.ID] = l
	return l, nil
}

func (s *memStore) GetLocation(ctx context.Context, companyID, locationID int64) (Location, error) {
	defer s.lock()()

	l, ok := s.d.locations[locationID]
	if !ok || l.CompanyID != companyID {
		return Location{}, ErrLocationNotFound
	}
	return l, nil
}

func (s *memStore) UpdateLocation(ctx context.Context, params UpdateLocationParams) (Location, error) {
	defer s.lock()()

	l, ok := s.d.locations[params.ID]
	if !ok || l.CompanyID != params.CompanyID {
		return Location{}, ErrLocationNotFound
	}
	l.Name = params.Name
	l.Address = params.Address
	s.d.locations[l.ID] = l
	return l, nil
}

func (s *memStore) DeleteLocation(ctx context.Context, companyID, locationID int64) error {
	defer s.lock()()

	l, ok := s.d.locations[locationID]
	if !ok || l.CompanyID != companyID {
		return ErrLocationNotFound
	}
	delete(s.d.locations, locationID)
	for id, u := range s.d.users {
		if u.LocationID != nil && *u.LocationID == locationID {
			u.LocationID = nil
			s.d.users[id] = u
		}
	}
	return nil
}

// LockCompany is a no-op: transactions already hold the repository lock.
func (s *memStore) LockCompany(ctx context.Context, companyID int64) error {
	return ctx.Err()
}

func (s *memStore) CountUsers(ctx context.Context, companyID int64) (int64, error) {
	defer s.lock()()

	var n int64
	for _, u := range s.d.users {
		if u.CompanyID == companyID {
			n++
		}
	}
	return n, nil
}

func (s *memStore) CreateUser(ctx context.Context, params CreateUserParams) (User, error) {
	defer s.lock()()

	if _, ok := s.d.companies[params.CompanyID]; !ok {
		return User{}, fmt.Errorf("%w: users_company_id_fkey", ErrInvalidReference)
	}
	if _, ok := authz.ParseRole(string(params.Role)); !ok {
		return User{}, fmt.Errorf("%w: users_role_check", ErrInvalidValue)
	}
	for _, u := range s.d.users {
		if u.IdentityRef == params.IdentityRef {
			return User{}, fmt.Errorf("%w: users_identity_ref_key", ErrDuplicate)
		}
	}
	if err := s.checkUserLocation(params.CompanyID, params.LocationID); err != nil {
		return User{}, err
	}

	s.d.nextUserID++
	u := User{
		ID:          s.d.nextUserID,
		IdentityRef: params.IdentityRef,
		CompanyID:   params.CompanyID,
		Role:        params.Role,
		FirstName:   params.FirstName,
		LastName:    params.LastName,
		Email:       params.Email,
		LocationID:  cloneInt64(params.LocationID),
	}
	s.d.users[u.ID] = u
	return cloneUser(u), nil
}

func (s *memStore) GetUser(ctx context.Context, id int64) (User, error) {
	defer s.lock()()

	u, ok := s.d.users[id]
	if !ok {
		return User{}, ErrUserNotFound
	}
	return cloneUser(u), nil
}

func (s *memStore) GetUserByIdentityRef(ctx context.Context, identityRef string) (User, error) {
	defer s.lock()()

	for _, u := range s.d.users {
		if u.IdentityRef == identityRef {
			return cloneUser(u), nil
		}
	}
	return User{}, ErrUserNotFound
}

func (s *memStore) ListUsers(ctx context.Context, companyID int64) ([]User, error) {
	defer s.lock()()

	users := []User{}
	for _, u := range s.d.users {
		if u.CompanyID == companyID {
			users = append(users, cloneUser(u))
		}
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users, nil
}

func (s *memStore) UpdateUser(ctx context.Context, params UpdateUserParams) (User, error) {
	defer s.lock()()

	u, ok := s.d.users[params.ID]
	if !ok {
		return User{}, ErrUserNotFound
	}
	if _, ok := authz.ParseRole(string(params.Role)); !ok {
		return User{}, fmt.Errorf("%w: users_role_check", ErrInvalidValue)
	}
	u.FirstName = params.FirstName
	u.LastName = params.LastName
	u.Role = params.Role
	s.d.users[u.ID] = u
	return cloneUser(u), nil
}

func (s *memStore) SetUserLocation(ctx context.Context, userID int64, locationID *int64) error {
	defer s.lock()()

	u, ok := s.d.users[userID]
	if !ok {
		return ErrUserNotFound
	}
	if err := s.checkUserLocation(u.CompanyID, locationID); err != nil {
		return err
	}
	u.LocationID = cloneInt64(locationID)
	s.d.users[userID] = u
	return nil
}

func (s *memStore) DeleteUser(ctx context.Context, id int64) error {
	defer s.lock()()

	if _, ok := s.d.users[id]; !ok {
		return ErrUserNotFound
	}
	delete(s.d.users, id)
	return nil
}

func (s *memStore) checkUserLocation(companyID int64, locationID *int64) error {
	if locationID == nil {
		return nil
	}
	l, ok := s.d.locations[*locationID]
	if !ok || l.CompanyID != companyID {
		return fmt.Errorf("%w: users_location_fk", ErrInvalidReference)
	}
	return nil
}

// hydrate attaches locations ordered by id. namedOnly mirrors the listing query.
func (s *memStore) hydrate(c Company, namedOnly bool) Company {
	locations := []Location{}
	for _, l := range s.d.locations {
		if l.CompanyID != c.ID || (namedOnly && l.Name == "") {
			continue
		}
		locations = append(locations, l)
	}
	sort.Slice(locations, func(i, j int) bool { return locations[i].ID < locations[j].ID })
	c.LogoURL = cloneString(c.LogoURL)
	c.Locations = locations
	return c
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func cloneInt64(v *int64) *int64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func cloneUser(u User) User {
	u.LocationID = cloneInt64(u.LocationID)
	return u
}

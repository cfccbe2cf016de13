package user

import (
	"context"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tendant/simple-company/pkg/authz"
	"github.com/tendant/simple-company/pkg/directory"
	"github.com/tendant/simple-company/pkg/errors"
	"github.com/tendant/simple-company/pkg/provisioning"
	"github.com/tendant/simple-company/pkg/tenant"
)

// racingDirectory runs onCreate right after an identity is created, before
// the user row is finalized.
type racingDirectory struct {
	*directory.InMemoryDirectory
	onCreate func()
}

func (d *racingDirectory) CreateIdentity(ctx context.Context, in directory.CreateIdentityInput) (directory.Identity, error) {
	id, err := d.InMemoryDirectory.CreateIdentity(ctx, in)
	if err == nil && d.onCreate != nil {
		d.onCreate()
	}
	return id, err
}

type fixture struct {
	repo    *tenant.InMemoryRepository
	dir     *racingDirectory
	svc     *UserService
	company int64
	root    authz.Actor
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	repo := tenant.NewInMemoryRepository()
	dir := &racingDirectory{InMemoryDirectory: directory.NewInMemoryDirectory()}
	f := &fixture{
		repo: repo,
		dir:  dir,
		svc:  NewUserService(repo, dir, provisioning.NewProvisioner(repo, dir)),
	}
	c, err := repo.CreateCompany(context.Background(), tenant.CreateCompanyParams{Name: "Acme"})
	require.NoError(t, err)
	f.company = c.ID
	f.root = f.actor("root", authz.RoleSuperAdmin, 0)
	return f
}

// actor seeds a directory identity and returns the matching actor.
func (f *fixture) actor(username string, role authz.Role, companyID int64) authz.Actor {
	attrs := map[string]string{directory.AttrRole: string(role)}
	if companyID > 0 {
		attrs[directory.AttrCompanyID] = strconv.FormatInt(companyID, 10)
	}
	f.dir.Seed(directory.Identity{Username: username, Attributes: attrs})
	return authz.Actor{Username: username, Role: role, CompanyID: companyID}
}

func (f *fixture) create(t *testing.T, actor authz.Actor, email string, role authz.Role) tenant.User {
	t.Helper()
	u, err := f.svc.CreateUser(context.Background(), actor, CreateUserParams{
		Email:     email,
		FirstName: "First",
		LastName:  "Last",
		CompanyID: f.company,
		Role:      string(role),
	})
	require.NoError(t, err)
	return u
}

func TestCreateUserBootstrapsCompany(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.svc.CreateUser(ctx, f.root, CreateUserParams{Email: "a@acme.test", CompanyID: f.company, Role: "admin"})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeProvisioningRejected))
	assert.Equal(t, string(provisioning.ReasonFirstUserMustBeSuperAdmin), errors.GetDetails(err)["reason"])
	_, err = f.dir.GetIdentity(ctx, "a@acme.test")
	assert.ErrorIs(t, err, directory.ErrIdentityNotFound, "rejected sign-up never reaches the directory")

	owner := f.create(t, f.root, "owner@acme.test", authz.RoleSuperAdmin)
	assert.Equal(t, authz.RoleSuperAdmin, owner.Role)
	require.NotNil(t, owner.LocationID)

	identity, err := f.dir.GetIdentity(ctx, "owner@acme.test")
	require.NoError(t, err)
	assert.Equal(t, identity.Sub(), owner.IdentityRef)
	assert.Equal(t, strconv.FormatInt(f.company, 10), identity.Attr(directory.AttrCompanyID))
}

func TestCreateUserByAdmin(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.create(t, f.root, "owner@acme.test", authz.RoleSuperAdmin)
	admin := f.actor("boss", authz.RoleAdmin, f.company)

	emp := f.create(t, admin, "emp@acme.test", authz.RoleEmployee)
	assert.Equal(t, authz.RoleEmployee, emp.Role)
	assert.Nil(t, emp.LocationID)

	_, err := f.svc.CreateUser(ctx, admin, CreateUserParams{Email: "a2@acme.test", CompanyID: f.company, Role: "super_admin"})
	assert.True(t, errors.IsCode(err, errors.ErrCodeForbidden))

	_, err = f.svc.CreateUser(ctx, admin, CreateUserParams{Email: "x@acme.test", CompanyID: f.company, Role: "boss"})
	assert.True(t, errors.IsCode(err, errors.ErrCodeInvalidInput))

	_, err = f.svc.CreateUser(ctx, admin, CreateUserParams{Email: "emp@acme.test", CompanyID: f.company, Role: "employee"})
	assert.True(t, errors.IsCode(err, errors.ErrCodeAlreadyExists))

	employee := f.actor("worker", authz.RoleEmployee, f.company)
	_, err = f.svc.CreateUser(ctx, employee, CreateUserParams{Email: "y@acme.test", CompanyID: f.company, Role: "employee"})
	assert.True(t, errors.IsCode(err, errors.ErrCodeForbidden))

	foreign := f.actor("stranger", authz.RoleAdmin, f.company+100)
	_, err = f.svc.CreateUser(ctx, foreign, CreateUserParams{Email: "z@acme.test", CompanyID: f.company, Role: "employee"})
	assert.True(t, errors.IsCode(err, errors.ErrCodeForbidden))
}

func TestCreateUserWithLocation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	owner := f.create(t, f.root, "owner@acme.test", authz.RoleSuperAdmin)

	u, err := f.svc.CreateUser(ctx, f.root, CreateUserParams{
		Email:      "emp@acme.test",
		CompanyID:  f.company,
		Role:       "employee",
		LocationID: owner.LocationID,
	})
	require.NoError(t, err)
	require.NotNil(t, u.LocationID)
	assert.Equal(t, *owner.LocationID, *u.LocationID)

	missing := int64(999)
	_, err = f.svc.CreateUser(ctx, f.root, CreateUserParams{
		Email:      "emp2@acme.test",
		CompanyID:  f.company,
		Role:       "employee",
		LocationID: &missing,
	})
	assert.True(t, errors.IsCode(err, errors.ErrCodeInvalidInput))
}

func TestCreateUserRemovesIdentityWhenFinalizeFails(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.create(t, f.root, "owner@acme.test", authz.RoleSuperAdmin)
	loc, err := f.repo.CreateLocation(ctx, tenant.CreateLocationParams{CompanyID: f.company, Name: "Depot", Address: "2 Side St"})
	require.NoError(t, err)

	f.dir.onCreate = func() {
		require.NoError(t, f.repo.DeleteLocation(ctx, f.company, loc.ID))
	}
	_, err = f.svc.CreateUser(ctx, f.root, CreateUserParams{
		Email:      "late@acme.test",
		CompanyID:  f.company,
		Role:       "employee",
		LocationID: &loc.ID,
	})
	require.Error(t, err)

	_, err = f.dir.GetIdentity(ctx, "late@acme.test")
	assert.ErrorIs(t, err, directory.ErrIdentityNotFound)
	n, err := f.repo.CountUsers(ctx, f.company)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestGetAndListUsers(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	owner := f.create(t, f.root, "owner@acme.test", authz.RoleSuperAdmin)
	emp := f.create(t, f.root, "emp@acme.test", authz.RoleEmployee)

	member := authz.Actor{Username: "emp@acme.test", Role: authz.RoleEmployee, CompanyID: f.company}
	got, err := f.svc.GetUser(ctx, member, owner.ID)
	require.NoError(t, err)
	assert.Equal(t, owner.IdentityRef, got.IdentityRef)

	users, err := f.svc.ListUsers(ctx, member, f.company)
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, []int64{owner.ID, emp.ID}, []int64{users[0].ID, users[1].ID})

	outsider := authz.Actor{Username: "x", Role: authz.RoleAdmin, CompanyID: f.company + 1}
	_, err = f.svc.GetUser(ctx, outsider, owner.ID)
	assert.True(t, errors.IsCode(err, errors.ErrCodeForbidden))
	_, err = f.svc.ListUsers(ctx, outsider, f.company)
	assert.True(t, errors.IsCode(err, errors.ErrCodeForbidden))

	_, err = f.svc.GetUser(ctx, f.root, 999)
	assert.True(t, errors.IsCode(err, errors.ErrCodeNotFound))
	_, err = f.svc.ListUsers(ctx, f.root, 999)
	assert.True(t, errors.IsCode(err, errors.ErrCodeNotFound))
}

func TestUpdateUser(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	owner := f.create(t, f.root, "owner@acme.test", authz.RoleSuperAdmin)
	emp := f.create(t, f.root, "emp@acme.test", authz.RoleEmployee)
	admin := f.actor("boss", authz.RoleAdmin, f.company)

	updated, err := f.svc.UpdateUser(ctx, admin, emp.ID, UpdateUserParams{FirstName: "Jane", LastName: "Doe", Role: "employee"})
	require.NoError(t, err)
	assert.Equal(t, "Jane", updated.FirstName)

	identity, err := f.dir.GetIdentity(ctx, "emp@acme.test")
	require.NoError(t, err)
	assert.Equal(t, "Jane", identity.Attr(directory.AttrGivenName))
	assert.Equal(t, "Doe", identity.Attr(directory.AttrFamilyName))

	t.Run("admin cannot promote", func(t *testing.T) {
		_, err := f.svc.UpdateUser(ctx, admin, emp.ID, UpdateUserParams{Role: "admin"})
		assert.True(t, errors.IsCode(err, errors.ErrCodeForbidden))
	})

	t.Run("admin cannot demote a super admin", func(t *testing.T) {
		_, err := f.svc.UpdateUser(ctx, admin, owner.ID, UpdateUserParams{Role: "employee"})
		assert.True(t, errors.IsCode(err, errors.ErrCodeForbidden))
	})

	t.Run("company is immutable", func(t *testing.T) {
		other := f.company + 1
		_, err := f.svc.UpdateUser(ctx, f.root, emp.ID, UpdateUserParams{Role: "employee", CompanyID: &other})
		assert.True(t, errors.IsCode(err, errors.ErrCodeInvalidInput))

		same := f.company
		_, err = f.svc.UpdateUser(ctx, f.root, emp.ID, UpdateUserParams{FirstName: "Jane", Role: "employee", CompanyID: &same})
		assert.NoError(t, err)
	})

	t.Run("super admin promotes", func(t *testing.T) {
		u, err := f.svc.UpdateUser(ctx, f.root, emp.ID, UpdateUserParams{FirstName: "Jane", Role: "admin"})
		require.NoError(t, err)
		assert.Equal(t, authz.RoleAdmin, u.Role)
		identity, err := f.dir.GetIdentity(ctx, "emp@acme.test")
		require.NoError(t, err)
		assert.Equal(t, "admin", identity.Attr(directory.AttrRole))
	})

	t.Run("missing user", func(t *testing.T) {
		_, err := f.svc.UpdateUser(ctx, f.root, 999, UpdateUserParams{Role: "employee"})
		assert.True(t, errors.IsCode(err, errors.ErrCodeNotFound))
	})
}

func TestDeleteUser(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	owner := f.create(t, f.root, "owner@acme.test", authz.RoleSuperAdmin)
	emp := f.create(t, f.root, "emp@acme.test", authz.RoleEmployee)
	admin := f.actor("boss", authz.RoleAdmin, f.company)

	err := f.svc.DeleteUser(ctx, admin, owner.ID)
	assert.True(t, errors.IsCode(err, errors.ErrCodeForbidden))

	require.NoError(t, f.svc.DeleteUser(ctx, admin, emp.ID))
	_, err = f.repo.GetUser(ctx, emp.ID)
	assert.ErrorIs(t, err, tenant.ErrUserNotFound)
	_, err = f.dir.GetIdentity(ctx, "emp@acme.test")
	assert.ErrorIs(t, err, directory.ErrIdentityNotFound)

	err = f.svc.DeleteUser(ctx, admin, emp.ID)
	assert.True(t, errors.IsCode(err, errors.ErrCodeNotFound))
}

// cancellingDirectory cancels the request once the identity exists and
// fails every later call made on a done context.
type cancellingDirectory struct {
	*directory.InMemoryDirectory
	cancel context.CancelFunc
}

func (d *cancellingDirectory) CreateIdentity(ctx context.Context, in directory.CreateIdentityInput) (directory.Identity, error) {
	id, err := d.InMemoryDirectory.CreateIdentity(ctx, in)
	if err == nil && d.cancel != nil {
		d.cancel()
	}
	return id, err
}

func (d *cancellingDirectory) GetIdentity(ctx context.Context, username string) (directory.Identity, error) {
	if err := ctx.Err(); err != nil {
		return directory.Identity{}, err
	}
	return d.InMemoryDirectory.GetIdentity(ctx, username)
}

func (d *cancellingDirectory) UpdateAttributes(ctx context.Context, username string, attrs map[string]string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return d.InMemoryDirectory.UpdateAttributes(ctx, username, attrs)
}

func (d *cancellingDirectory) DeleteIdentity(ctx context.Context, username string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return d.InMemoryDirectory.DeleteIdentity(ctx, username)
}

func TestDirectoryFollowUpsSurviveCancelledRequest(t *testing.T) {
	repo := tenant.NewInMemoryRepository()
	dir := &cancellingDirectory{InMemoryDirectory: directory.NewInMemoryDirectory()}
	svc := NewUserService(repo, dir, provisioning.NewProvisioner(repo, dir))
	c, err := repo.CreateCompany(context.Background(), tenant.CreateCompanyParams{Name: "Acme"})
	require.NoError(t, err)
	dir.Seed(directory.Identity{Username: "root", Attributes: map[string]string{directory.AttrRole: "super_admin"}})
	root := authz.Actor{Username: "root", Role: authz.RoleSuperAdmin}

	t.Run("compensation after cancelled create", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		dir.cancel = cancel

		_, err := svc.CreateUser(ctx, root, CreateUserParams{Email: "owner@acme.test", CompanyID: c.ID, Role: "super_admin"})
		require.Error(t, err)
		dir.cancel = nil

		_, err = dir.InMemoryDirectory.GetIdentity(context.Background(), "owner@acme.test")
		assert.ErrorIs(t, err, directory.ErrIdentityNotFound)
		n, err := repo.CountUsers(context.Background(), c.ID)
		require.NoError(t, err)
		assert.Zero(t, n)
	})

	t.Run("mirror and delete after request cancelled at commit", func(t *testing.T) {
		owner, err := svc.CreateUser(context.Background(), root, CreateUserParams{Email: "owner@acme.test", CompanyID: c.ID, Role: "super_admin"})
		require.NoError(t, err)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		committing := NewUserService(&cancelOnCommitRepository{InMemoryRepository: repo, cancel: cancel}, dir, provisioning.NewProvisioner(repo, dir))

		_, err = committing.UpdateUser(ctx, root, owner.ID, UpdateUserParams{FirstName: "Ann", LastName: "Lee", Role: "super_admin"})
		require.NoError(t, err)
		identity, err := dir.InMemoryDirectory.GetIdentity(context.Background(), "owner@acme.test")
		require.NoError(t, err)
		assert.Equal(t, "Ann", identity.Attr(directory.AttrGivenName))

		ctx, cancel = context.WithCancel(context.Background())
		defer cancel()
		committing = NewUserService(&cancelOnCommitRepository{InMemoryRepository: repo, cancel: cancel}, dir, provisioning.NewProvisioner(repo, dir))
		require.NoError(t, committing.DeleteUser(ctx, root, owner.ID))

		_, err = dir.InMemoryDirectory.GetIdentity(context.Background(), "owner@acme.test")
		assert.ErrorIs(t, err, directory.ErrIdentityNotFound)
	})
}

// cancelOnCommitRepository cancels the request right after a transaction commits.
type cancelOnCommitRepository struct {
	*tenant.InMemoryRepository
	cancel context.CancelFunc
}

func (r *cancelOnCommitRepository) WithTx(ctx context.Context, fn func(tenant.Store) error) error {
	err := r.InMemoryRepository.WithTx(ctx, fn)
	if err == nil {
		r.cancel()
	}
	return err
}

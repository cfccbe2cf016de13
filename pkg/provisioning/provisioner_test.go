package provisioning

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tendant/simple-company/pkg/authz"
	"github.com/tendant/simple-company/pkg/directory"
	"github.com/tendant/simple-company/pkg/errors"
	"github.com/tendant/simple-company/pkg/tenant"
)

type fixture struct {
	repo *tenant.InMemoryRepository
	dir  *directory.InMemoryDirectory
	p    *Provisioner
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	repo := tenant.NewInMemoryRepository()
	dir := directory.NewInMemoryDirectory()
	return &fixture{repo: repo, dir: dir, p: NewProvisioner(repo, dir)}
}

func (f *fixture) company(t *testing.T, name string) int64 {
	t.Helper()
	c, err := f.repo.CreateCompany(context.Background(), tenant.CreateCompanyParams{Name: name})
	require.NoError(t, err)
	return c.ID
}

func (f *fixture) seedCreator(username string, role authz.Role, companyID int64) {
	f.dir.Seed(directory.Identity{Username: username, Attributes: map[string]string{
		directory.AttrRole:      string(role),
		directory.AttrCompanyID: strconv.FormatInt(companyID, 10),
	}})
}

func request(companyID int64, role, creator string) SignupRequest {
	return SignupRequest{
		Username:        fmt.Sprintf("%s-%s@example.com", role, creator),
		IdentityRef:     fmt.Sprintf("sub-%s-%s", role, creator),
		CompanyID:       strconv.FormatInt(companyID, 10),
		Role:            role,
		FirstName:       "Test",
		LastName:        "User",
		Email:           "test@example.com",
		CreatorUsername: creator,
	}
}

func assertRejected(t *testing.T, err error, want Reason) {
	t.Helper()
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeProvisioningRejected), "got %v", err)
	assert.Equal(t, string(want), errors.GetDetails(err)["reason"])
}

func TestValidate(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	empty := f.company(t, "Empty")
	busy := f.company(t, "Busy")
	_, _, err := f.p.Finalize(ctx, request(busy, "super_admin", ""))
	require.NoError(t, err)
	f.seedCreator("boss", authz.RoleAdmin, busy)
	f.seedCreator("emp", authz.RoleEmployee, busy)

	t.Run("missing company", func(t *testing.T) {
		a, err := f.p.Validate(ctx, SignupRequest{Role: "super_admin"})
		assertRejected(t, err, ReasonMissingCompany)
		assert.Equal(t, StateRejected, a.State)
	})

	t.Run("unknown company", func(t *testing.T) {
		_, err := f.p.Validate(ctx, request(9999, "super_admin", ""))
		assertRejected(t, err, ReasonUnknownCompany)
		_, err = f.p.Validate(ctx, SignupRequest{CompanyID: "acme", Role: "super_admin"})
		assertRejected(t, err, ReasonUnknownCompany)
	})

	t.Run("first user must be super_admin", func(t *testing.T) {
		_, err := f.p.Validate(ctx, request(empty, "employee", ""))
		assertRejected(t, err, ReasonFirstUserMustBeSuperAdmin)

		a, err := f.p.Validate(ctx, request(empty, "super_admin", ""))
		require.NoError(t, err)
		assert.Equal(t, StateValidated, a.State)
		assert.Equal(t, []State{StateRequested, StateValidated}, a.History)
	})

	t.Run("self sign-up into existing company", func(t *testing.T) {
		_, err := f.p.Validate(ctx, request(busy, "employee", ""))
		assertRejected(t, err, ReasonDirectSignupNotAllowed)
		_, err = f.p.Validate(ctx, request(busy, "employee", "nobody"))
		assertRejected(t, err, ReasonDirectSignupNotAllowed)
	})

	t.Run("employee creator", func(t *testing.T) {
		_, err := f.p.Validate(ctx, request(busy, "employee", "emp"))
		assertRejected(t, err, ReasonInsufficientPrivilege)
	})

	t.Run("admin creator", func(t *testing.T) {
		_, err := f.p.Validate(ctx, request(busy, "super_admin", "boss"))
		assertRejected(t, err, ReasonCannotGrantPrivilegedRole)
		_, err = f.p.Validate(ctx, request(busy, "owner", "boss"))
		assertRejected(t, err, ReasonInvalidRole)
		_, err = f.p.Validate(ctx, request(busy, "employee", "boss"))
		assert.NoError(t, err)
	})

	t.Run("location must belong to company", func(t *testing.T) {
		req := request(busy, "employee", "boss")
		req.LocationID = "424242"
		_, err := f.p.Validate(ctx, req)
		assert.True(t, errors.IsCode(err, errors.ErrCodeInvalidInput))
	})
}

func TestFinalizeFirstUser(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	companyID := f.company(t, "Acme")

	_, _, err := f.p.Finalize(ctx, request(companyID, "employee", ""))
	assertRejected(t, err, ReasonFirstUserMustBeSuperAdmin)

	req := request(companyID, "super_admin", "")
	req.LocationID = "77"
	attempt, res, err := f.p.Finalize(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, StateFinalized, attempt.State)
	assert.Equal(t, []State{StateRequested, StateValidated, StateMaterialized, StateFinalized}, attempt.History)
	assert.True(t, res.IsFirstUser)
	require.NotNil(t, res.DefaultLocation)
	assert.Equal(t, tenant.DefaultLocationName, res.DefaultLocation.Name)
	assert.Equal(t, tenant.DefaultLocationAddress, res.DefaultLocation.Address)

	stored, err := f.repo.GetUser(ctx, res.User.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.LocationID)
	assert.Equal(t, res.DefaultLocation.ID, *stored.LocationID, "default location wins for the first user")
	assert.Equal(t, authz.RoleSuperAdmin, stored.Role)

	company, err := f.repo.GetCompany(ctx, companyID)
	require.NoError(t, err)
	assert.Len(t, company.Locations, 1)
}

func TestFinalizeSubsequentUser(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	companyID := f.company(t, "Acme")
	_, first, err := f.p.Finalize(ctx, request(companyID, "super_admin", ""))
	require.NoError(t, err)
	f.seedCreator("boss", authz.RoleAdmin, companyID)

	_, _, err = f.p.Finalize(ctx, request(companyID, "super_admin", "boss"))
	assertRejected(t, err, ReasonCannotGrantPrivilegedRole)

	req := request(companyID, "employee", "boss")
	req.LocationID = strconv.FormatInt(*first.User.LocationID, 10)
	_, res, err := f.p.Finalize(ctx, req)
	require.NoError(t, err)
	assert.False(t, res.IsFirstUser)
	assert.Nil(t, res.DefaultLocation)
	require.NotNil(t, res.User.LocationID)
	assert.Equal(t, *first.User.LocationID, *res.User.LocationID)
	assert.Equal(t, authz.RoleEmployee, res.User.Role)

	n, err := f.repo.CountUsers(ctx, companyID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestFinalizeIsIdempotent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	companyID := f.company(t, "Acme")
	req := request(companyID, "super_admin", "")

	_, first, err := f.p.Finalize(ctx, req)
	require.NoError(t, err)

	attempt, again, err := f.p.Finalize(ctx, req)
	require.NoError(t, err)
	assert.True(t, again.AlreadyProvisioned)
	assert.Equal(t, first.User.ID, again.User.ID)
	assert.Equal(t, StateFinalized, attempt.State)

	n, err := f.repo.CountUsers(ctx, companyID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestFinalizeRequiresIdentityRef(t *testing.T) {
	f := newFixture(t)
	req := request(f.company(t, "Acme"), "super_admin", "")
	req.IdentityRef = ""

	_, _, err := f.p.Finalize(context.Background(), req)
	assert.True(t, errors.IsCode(err, errors.ErrCodeInvalidInput))
}

func TestFinalizeConcurrentFirstUsers(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	companyID := f.company(t, "Race")

	const signups = 10
	var wg sync.WaitGroup
	results := make(chan error, signups)
	for i := 0; i < signups; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			req := request(companyID, "super_admin", "")
			req.IdentityRef = fmt.Sprintf("sub-%d", i)
			_, _, err := f.p.Finalize(ctx, req)
			results <- err
		}(i)
	}
	wg.Wait()
	close(results)

	succeeded := 0
	for err := range results {
		if err == nil {
			succeeded++
			continue
		}
		assertRejected(t, err, ReasonDirectSignupNotAllowed)
	}
	assert.Equal(t, 1, succeeded)

	company, err := f.repo.GetCompany(ctx, companyID)
	require.NoError(t, err)
	assert.Len(t, company.Locations, 1, "exactly one default location")
}

func TestRequestFromAttributes(t *testing.T) {
	req := RequestFromAttributes("jane", map[string]string{
		directory.AttrSub:        "sub-1",
		directory.AttrCompanyID:  " 4 ",
		directory.AttrRole:       "employee",
		directory.AttrGivenName:  "Jane",
		directory.AttrFamilyName: "Doe",
		directory.AttrEmail:      "jane@example.com",
	}, map[string]string{directory.MetadataCreator: "boss"})

	assert.Equal(t, "sub-1", req.IdentityRef)
	assert.Equal(t, "4", req.CompanyID)
	assert.Equal(t, "boss", req.CreatorUsername)

	id, reason := req.companyID()
	assert.Equal(t, int64(4), id)
	assert.Empty(t, reason)
}

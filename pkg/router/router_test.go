package router

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tendant/simple-company/pkg/company"
	"github.com/tendant/simple-company/pkg/directory"
	"github.com/tendant/simple-company/pkg/objectstore"
	"github.com/tendant/simple-company/pkg/provisioning"
	"github.com/tendant/simple-company/pkg/ratelimit"
	"github.com/tendant/simple-company/pkg/tenant"
	"github.com/tendant/simple-company/pkg/user"
)

func setup(t *testing.T) (http.Handler, *directory.InMemoryDirectory) {
	t.Helper()
	repo := tenant.NewInMemoryRepository()
	dir := directory.NewInMemoryDirectory()
	companyService := company.NewCompanyService(repo, objectstore.NewMemoryStore())
	userService := user.NewUserService(repo, dir, provisioning.NewProvisioner(repo, dir))

	r := chi.NewRouter()
	SetupRoutes(r, Config{
		CompanyHandle: company.NewHandle(companyService),
		UserHandle:    user.NewHandle(userService),
		Resolver:      directory.NewResolver(dir),
	})
	return r, dir
}

func request(t *testing.T, h http.Handler, token, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRoutesRequireAuthentication(t *testing.T) {
	h, _ := setup(t)
	for _, path := range []string{"/api/v1/me", "/api/v1/companies/", "/api/v1/companies/1", "/api/v1/users/1", "/api/v1/private"} {
		rec := request(t, h, "", http.MethodGet, path, "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code, path)
	}
	rec := request(t, h, "bogus", http.MethodGet, "/api/v1/me", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestTenantFlow(t *testing.T) {
	h, dir := setup(t)
	dir.Seed(directory.Identity{Username: "root", Attributes: map[string]string{directory.AttrRole: "super_admin"}})
	rootToken, err := dir.IssueToken("root")
	require.NoError(t, err)

	rec := request(t, h, rootToken, http.MethodPost, "/api/v1/companies/", `{"name":"Acme","locations":[{"name":"HQ","address":"1 Main St"}]}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created tenant.Company
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.Len(t, created.Locations, 1)
	acme := strconv.FormatInt(created.ID, 10)

	rec = request(t, h, rootToken, http.MethodPost, "/api/v1/users/",
		`{"email":"owner@acme.test","company_id":`+acme+`,"role":"super_admin"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = request(t, h, rootToken, http.MethodPost, "/api/v1/users/",
		`{"email":"boss@acme.test","company_id":`+acme+`,"role":"admin"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	bossToken, err := dir.IssueToken("boss@acme.test")
	require.NoError(t, err)

	rec = request(t, h, bossToken, http.MethodGet, "/api/v1/me", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"role":"admin"`)

	rec = request(t, h, bossToken, http.MethodGet, "/api/v1/companies/"+acme, "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = request(t, h, bossToken, http.MethodGet, "/api/v1/companies/"+acme+"/users", "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = request(t, h, bossToken, http.MethodPost, "/api/v1/users/",
		`{"email":"emp@acme.test","company_id":`+acme+`,"role":"employee"}`)
	assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = request(t, h, bossToken, http.MethodPost, "/api/v1/users/",
		`{"email":"admin2@acme.test","company_id":`+acme+`,"role":"admin"}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = request(t, h, bossToken, http.MethodGet, "/api/v1/companies/", "")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = request(t, h, bossToken, http.MethodGet, "/api/v1/companies/999", "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRateLimitedRoutes(t *testing.T) {
	dir := directory.NewInMemoryDirectory()
	dir.Seed(directory.Identity{Username: "emp", Attributes: map[string]string{
		directory.AttrRole:      "employee",
		directory.AttrCompanyID: "1",
	}})
	token, err := dir.IssueToken("emp")
	require.NoError(t, err)

	repo := tenant.NewInMemoryRepository()
	r := chi.NewRouter()
	SetupRoutes(r, Config{
		Prefix:        "/v2",
		CompanyHandle: company.NewHandle(company.NewCompanyService(repo, objectstore.NewMemoryStore())),
		UserHandle:    user.NewHandle(user.NewUserService(repo, dir, provisioning.NewProvisioner(repo, dir))),
		Resolver:      directory.NewResolver(dir),
		RateLimit:     ratelimit.NewMiddleware(ratelimit.Config{Enabled: true, PerActor: 2}),
	})

	assert.Equal(t, http.StatusOK, request(t, r, token, http.MethodGet, "/v2/me", "").Code)
	assert.Equal(t, http.StatusOK, request(t, r, token, http.MethodGet, "/v2/private", "").Code)
	assert.Equal(t, http.StatusTooManyRequests, request(t, r, token, http.MethodGet, "/v2/me", "").Code)
}

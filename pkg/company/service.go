package company

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/tendant/simple-company/pkg/authz"
	"github.com/tendant/simple-company/pkg/errors"
	"github.com/tendant/simple-company/pkg/objectstore"
	"github.com/tendant/simple-company/pkg/tenant"
)

const (
	DefaultListLimit = 100
	MaxListLimit     = 1000

	defaultLogoUploadTimeout = 30 * time.Second
)

// LocationInput is a location supplied when creating or updating a company.
type LocationInput struct {
	Name    string `json:"name"`
	Address string `json:"address"`
}

type CreateCompanyParams struct {
	Name      string
	Locations []LocationInput
}

// UpdateCompanyParams replaces the company name. A nil LogoURL keeps the
// current logo.
type UpdateCompanyParams struct {
	Name    string
	LogoURL *string
}

// Logo is an uploaded image.
type Logo struct {
	ContentType string
	Body        io.Reader
}

// CompanyService implements the company and location use cases. Every call
// is authorized against the actor before the store is touched.
type CompanyService struct {
	repo              tenant.Repository
	logos             objectstore.ObjectStore
	logoUploadTimeout time.Duration
}

type CompanyServiceOption func(*CompanyService)

func NewCompanyService(repo tenant.Repository, logos objectstore.ObjectStore, opts ...CompanyServiceOption) *CompanyService {
	s := &CompanyService{
		repo:              repo,
		logos:             logos,
		logoUploadTimeout: defaultLogoUploadTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// WithLogoUploadTimeout bounds each logo upload.
func WithLogoUploadTimeout(d time.Duration) CompanyServiceOption {
	return func(s *CompanyService) {
		if d > 0 {
			s.logoUploadTimeout = d
		}
	}
}

// LogoKey is the object key of a company logo.
func LogoKey(companyID int64) string {
	return fmt.Sprintf("company_logos/%d.png", companyID)
}

// CreateCompany inserts the company, its locations and the optional logo in
// one transaction. A failed upload rolls the whole company back.
func (s *CompanyService) CreateCompany(ctx context.Context, actor authz.Actor, params CreateCompanyParams, logo *Logo) (tenant.Company, error) {
	if err := authz.RequireCreateCompany(actor); err != nil {
		return tenant.Company{}, err
	}
	if strings.TrimSpace(params.Name) == "" {
		return tenant.Company{}, errors.InvalidInput("name", "must not be empty")
	}

	var company tenant.Company
	err := s.repo.WithTx(ctx, func(st tenant.Store) error {
		created, err := st.CreateCompany(ctx, tenant.CreateCompanyParams{Name: params.Name})
		if err != nil {
			return mapStoreError(err, "failed to create company")
		}
		for _, l := range params.Locations {
			if _, err := st.CreateLocation(ctx, tenant.CreateLocationParams{
				CompanyID: created.ID,
				Name:      l.Name,
				Address:   l.Address,
			}); err != nil {
				return mapStoreError(err, "failed to create location")
			}
		}
		if logo != nil {
			url, err := s.uploadLogo(ctx, created.ID, logo)
			if err != nil {
				return err
			}
			if err := st.SetCompanyLogo(ctx, created.ID, url); err != nil {
				return mapStoreError(err, "failed to store logo url")
			}
		}
		company, err = st.GetCompany(ctx, created.ID)
		if err != nil {
			return mapStoreError(err, "failed to load company")
		}
		return nil
	})
	if err != nil {
		return tenant.Company{}, err
	}

	slog.Info("Company created", "companyId", company.ID, "actor", actor, "locations", len(company.Locations))
	return company, nil
}

func (s *CompanyService) GetCompany(ctx context.Context, actor authz.Actor, companyID int64) (tenant.Company, error) {
	if err := authz.RequireAccessCompany(actor, companyID); err != nil {
		return tenant.Company{}, err
	}
	company, err := s.repo.GetCompany(ctx, companyID)
	if err != nil {
		return tenant.Company{}, mapStoreError(err, "failed to load company")
	}
	return company, nil
}

// UpdateCompany renames a company and returns it as stored after the update.
func (s *CompanyService) UpdateCompany(ctx context.Context, actor authz.Actor, companyID int64, params UpdateCompanyParams) (tenant.Company, error) {
	if err := authz.RequireManageCompany(actor, companyID); err != nil {
		return tenant.Company{}, err
	}
	if strings.TrimSpace(params.Name) == "" {
		return tenant.Company{}, errors.InvalidInput("name", "must not be empty")
	}

	var company tenant.Company
	err := s.repo.WithTx(ctx, func(st tenant.Store) error {
		if _, err := st.UpdateCompany(ctx, tenant.UpdateCompanyParams{
			ID:      companyID,
			Name:    params.Name,
			LogoURL: params.LogoURL,
		}); err != nil {
			return mapStoreError(err, "failed to update company")
		}
		var err error
		company, err = st.GetCompany(ctx, companyID)
		if err != nil {
			return mapStoreError(err, "failed to load company")
		}
		return nil
	})
	if err != nil {
		return tenant.Company{}, err
	}

	slog.Info("Company updated", "companyId", companyID, "actor", actor)
	return company, nil
}

// ListCompanies pages through all companies ordered by id. Only super admins
// may list.
func (s *CompanyService) ListCompanies(ctx context.Context, actor authz.Actor, skip, limit int) ([]tenant.Company, error) {
	if err := authz.RequireSuperAdmin(actor); err != nil {
		return nil, err
	}
	if skip < 0 || skip > math.MaxInt32 {
		return nil, errors.InvalidInput("skip", "must be between 0 and 2147483647")
	}
	if limit < 1 || limit > MaxListLimit {
		return nil, errors.InvalidInput("limit", "must be between 1 and "+strconv.Itoa(MaxListLimit))
	}

	companies, err := s.repo.ListCompanies(ctx, skip, limit)
	if err != nil {
		return nil, mapStoreError(err, "failed to list companies")
	}
	return companies, nil
}

func (s *CompanyService) AddLocation(ctx context.Context, actor authz.Actor, companyID int64, in LocationInput) (tenant.Location, error) {
	if err := authz.RequireManageCompany(actor, companyID); err != nil {
		return tenant.Location{}, err
	}

	var location tenant.Location
	err := s.repo.WithTx(ctx, func(st tenant.Store) error {
		exists, err := st.CompanyExists(ctx, companyID)
		if err != nil {
			return errors.Dependency(err, "failed to look up company")
		}
		if !exists {
			return errors.NotFound("company", strconv.FormatInt(companyID, 10))
		}
		location, err = st.CreateLocation(ctx, tenant.CreateLocationParams{
			CompanyID: companyID,
			Name:      in.Name,
			Address:   in.Address,
		})
		if err != nil {
			return mapStoreError(err, "failed to create location")
		}
		return nil
	})
	if err != nil {
		return tenant.Location{}, err
	}

	slog.Info("Location added", "companyId", companyID, "locationId", location.ID, "actor", actor)
	return location, nil
}

// UpdateLocation changes a location of companyID. A location of another
// company is reported as not found.
func (s *CompanyService) UpdateLocation(ctx context.Context, actor authz.Actor, companyID, locationID int64, in LocationInput) (tenant.Location, error) {
	if err := authz.RequireManageCompany(actor, companyID); err != nil {
		return tenant.Location{}, err
	}

	location, err := s.repo.UpdateLocation(ctx, tenant.UpdateLocationParams{
		ID:        locationID,
		CompanyID: companyID,
		Name:      in.Name,
		Address:   in.Address,
	})
	if err != nil {
		return tenant.Location{}, mapStoreError(err, "failed to update location")
	}

	slog.Info("Location updated", "companyId", companyID, "locationId", locationID, "actor", actor)
	return location, nil
}

func (s *CompanyService) DeleteLocation(ctx context.Context, actor authz.Actor, companyID, locationID int64) error {
	if err := authz.RequireManageCompany(actor, companyID); err != nil {
		return err
	}
	if err := s.repo.DeleteLocation(ctx, companyID, locationID); err != nil {
		return mapStoreError(err, "failed to delete location")
	}

	slog.Info("Location deleted", "companyId", companyID, "locationId", locationID, "actor", actor)
	return nil
}

// UploadLogo stores the logo under the company's deterministic key and then
// records its URL. The two steps are not atomic: if the row update fails the
// object stays in place and a retry overwrites it.
func (s *CompanyService) UploadLogo(ctx context.Context, actor authz.Actor, companyID int64, logo Logo) (string, error) {
	if err := authz.RequireManageCompany(actor, companyID); err != nil {
		return "", err
	}

	exists, err := s.repo.CompanyExists(ctx, companyID)
	if err != nil {
		return "", errors.Dependency(err, "failed to look up company")
	}
	if !exists {
		return "", errors.NotFound("company", strconv.FormatInt(companyID, 10))
	}

	url, err := s.uploadLogo(ctx, companyID, &logo)
	if err != nil {
		return "", err
	}
	if err := s.repo.SetCompanyLogo(ctx, companyID, url); err != nil {
		slog.Error("Logo uploaded but url not stored", "companyId", companyID, "url", url, "error", err)
		return "", mapStoreError(err, "failed to store logo url")
	}

	slog.Info("Logo uploaded", "companyId", companyID, "url", url, "actor", actor)
	return url, nil
}

func (s *CompanyService) uploadLogo(ctx context.Context, companyID int64, logo *Logo) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.logoUploadTimeout)
	defer cancel()

	contentType := logo.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	url, err := s.logos.Put(ctx, LogoKey(companyID), contentType, logo.Body)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", errors.Timeout(err, "logo upload timed out")
		}
		return "", errors.Dependency(err, "failed to upload logo")
	}
	return url, nil
}

func mapStoreError(err error, message string) error {
	switch {
	case errors.Is(err, tenant.ErrCompanyNotFound):
		return errors.Wrap(err, errors.ErrCodeNotFound, "company not found")
	case errors.Is(err, tenant.ErrLocationNotFound):
		return errors.Wrap(err, errors.ErrCodeNotFound, "location not found")
	case errors.Is(err, tenant.ErrDuplicate):
		return errors.Wrap(err, errors.ErrCodeConflict, message)
	case errors.Is(err, tenant.ErrInvalidReference), errors.Is(err, tenant.ErrInvalidValue):
		return errors.Wrap(err, errors.ErrCodeInvalidInput, message)
	default:
		return errors.Dependency(err, message)
	}
}

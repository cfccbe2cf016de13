package company

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/ggicci/httpin"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/jinzhu/copier"

	"github.com/tendant/simple-company/pkg/authz"
	"github.com/tendant/simple-company/pkg/errors"
)

const defaultMaxLogoBytes = 5 << 20

type LocationRequest struct {
	Name    string `json:"name"`
	Address string `json:"address"`
}

type CreateCompanyRequest struct {
	Name      string            `json:"name"`
	Locations []LocationRequest `json:"locations"`
}

type UpdateCompanyRequest struct {
	Name    string  `json:"name"`
	LogoURL *string `json:"logo_url"`
}

type LogoResponse struct {
	Message string `json:"message"`
	LogoURL string `json:"logo_url"`
}

type ListCompaniesInput struct {
	Skip  int `in:"query=skip;default=0"`
	Limit int `in:"query=limit;default=100"`
}

type Handle struct {
	companyService *CompanyService
	maxLogoBytes   int64
}

type Option func(*Handle)

// WithMaxLogoBytes limits the size of multipart bodies carrying a logo.
func WithMaxLogoBytes(n int64) Option {
	return func(h *Handle) {
		if n > 0 {
			h.maxLogoBytes = n
		}
	}
}

func NewHandle(companyService *CompanyService, opts ...Option) Handle {
	h := Handle{
		companyService: companyService,
		maxLogoBytes:   defaultMaxLogoBytes,
	}
	for _, opt := range opts {
		opt(&h)
	}
	return h
}

// Create a company, optionally with a logo
// (POST /companies)
func (h Handle) CreateCompany(w http.ResponseWriter, r *http.Request) {
	actor, ok := authz.MustActor(w, r)
	if !ok {
		return
	}

	var request CreateCompanyRequest
	var logo *Logo
	if isMultipart(r) {
		if err := h.parseMultipart(w, r); err != nil {
			errors.WriteHTTP(w, r, err)
			return
		}
		if err := json.Unmarshal([]byte(r.FormValue("company")), &request); err != nil {
			errors.WriteHTTP(w, r, errors.InvalidInput("company", "must be a JSON object"))
			return
		}
		file, header, err := r.FormFile("logo")
		if err == nil {
			defer file.Close()
			logo = &Logo{ContentType: header.Header.Get("Content-Type"), Body: file}
		} else if err != http.ErrMissingFile {
			errors.WriteHTTP(w, r, errors.InvalidInput("logo", err.Error()))
			return
		}
	} else if err := render.DecodeJSON(r.Body, &request); err != nil {
		errors.WriteHTTP(w, r, errors.InvalidInput("body", "must be a JSON object"))
		return
	}

	params := CreateCompanyParams{}
	copier.Copy(&params, &request)

	company, err := h.companyService.CreateCompany(r.Context(), actor, params, logo)
	if err != nil {
		errors.WriteHTTP(w, r, err)
		return
	}
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, company)
}

// List companies
// (GET /companies?skip=&limit=)
func (h Handle) ListCompanies(w http.ResponseWriter, r *http.Request) {
	actor, ok := authz.MustActor(w, r)
	if !ok {
		return
	}
	input := r.Context().Value(httpin.Input).(*ListCompaniesInput)

	companies, err := h.companyService.ListCompanies(r.Context(), actor, input.Skip, input.Limit)
	if err != nil {
		errors.WriteHTTP(w, r, err)
		return
	}
	render.JSON(w, r, companies)
}

// (GET /companies/{companyID})
func (h Handle) GetCompany(w http.ResponseWriter, r *http.Request) {
	actor, ok := authz.MustActor(w, r)
	if !ok {
		return
	}
	companyID, err := pathID(r, "companyID")
	if err != nil {
		errors.WriteHTTP(w, r, err)
		return
	}

	company, err := h.companyService.GetCompany(r.Context(), actor, companyID)
	if err != nil {
		errors.WriteHTTP(w, r, err)
		return
	}
	render.JSON(w, r, company)
}

// (PUT /companies/{companyID})
func (h Handle) UpdateCompany(w http.ResponseWriter, r *http.Request) {
	actor, ok := authz.MustActor(w, r)
	if !ok {
		return
	}
	companyID, err := pathID(r, "companyID")
	if err != nil {
		errors.WriteHTTP(w, r, err)
		return
	}

	var request UpdateCompanyRequest
	if err := render.DecodeJSON(r.Body, &request); err != nil {
		errors.WriteHTTP(w, r, errors.InvalidInput("body", "must be a JSON object"))
		return
	}
	params := UpdateCompanyParams{}
	copier.Copy(&params, &request)

	company, err := h.companyService.UpdateCompany(r.Context(), actor, companyID, params)
	if err != nil {
		errors.WriteHTTP(w, r, err)
		return
	}
	render.JSON(w, r, company)
}

// (POST /companies/{companyID}/locations)
func (h Handle) AddLocation(w http.ResponseWriter, r *http.Request) {
	actor, ok := authz.MustActor(w, r)
	if !ok {
		return
	}
	companyID, err := pathID(r, "companyID")
	if err != nil {
		errors.WriteHTTP(w, r, err)
		return
	}
	in, err := decodeLocation(r)
	if err != nil {
		errors.WriteHTTP(w, r, err)
		return
	}

	location, err := h.companyService.AddLocation(r.Context(), actor, companyID, in)
	if err != nil {
		errors.WriteHTTP(w, r, err)
		return
	}
	render.JSON(w, r, location)
}

// (PUT /companies/{companyID}/locations/{locationID})
func (h Handle) UpdateLocation(w http.ResponseWriter, r *http.Request) {
	actor, ok := authz.MustActor(w, r)
	if !ok {
		return
	}
	companyID, err := pathID(r, "companyID")
	if err != nil {
		errors.WriteHTTP(w, r, err)
		return
	}
	locationID, err := pathID(r, "locationID")
	if err != nil {
		errors.WriteHTTP(w, r, err)
		return
	}
	in, err := decodeLocation(r)
	if err != nil {
		errors.WriteHTTP(w, r, err)
		return
	}

	location, err := h.companyService.UpdateLocation(r.Context(), actor, companyID, locationID, in)
	if err != nil {
		errors.WriteHTTP(w, r, err)
		return
	}
	render.JSON(w, r, location)
}

// (DELETE /companies/{companyID}/locations/{locationID})
func (h Handle) DeleteLocation(w http.ResponseWriter, r *http.Request) {
	actor, ok := authz.MustActor(w, r)
	if !ok {
		return
	}
	companyID, err := pathID(r, "companyID")
	if err != nil {
		errors.WriteHTTP(w, r, err)
		return
	}
	locationID, err := pathID(r, "locationID")
	if err != nil {
		errors.WriteHTTP(w, r, err)
		return
	}

	if err := h.companyService.DeleteLocation(r.Context(), actor, companyID, locationID); err != nil {
		errors.WriteHTTP(w, r, err)
		return
	}
	render.JSON(w, r, map[string]string{"message": "Location deleted successfully"})
}

// (PUT /companies/{companyID}/logo)
func (h Handle) UploadLogo(w http.ResponseWriter, r *http.Request) {
	actor, ok := authz.MustActor(w, r)
	if !ok {
		return
	}
	companyID, err := pathID(r, "companyID")
	if err != nil {
		errors.WriteHTTP(w, r, err)
		return
	}
	if !isMultipart(r) {
		errors.WriteHTTP(w, r, errors.InvalidInput("body", "must be multipart/form-data"))
		return
	}
	if err := h.parseMultipart(w, r); err != nil {
		errors.WriteHTTP(w, r, err)
		return
	}
	file, header, err := r.FormFile("logo")
	if err != nil {
		errors.WriteHTTP(w, r, errors.InvalidInput("logo", "file is required"))
		return
	}
	defer file.Close()

	url, err := h.companyService.UploadLogo(r.Context(), actor, companyID, Logo{
		ContentType: header.Header.Get("Content-Type"),
		Body:        file,
	})
	if err != nil {
		errors.WriteHTTP(w, r, err)
		return
	}
	render.JSON(w, r, LogoResponse{Message: "Logo uploaded successfully", LogoURL: url})
}

func (h Handle) parseMultipart(w http.ResponseWriter, r *http.Request) error {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxLogoBytes)
	if err := r.ParseMultipartForm(h.maxLogoBytes); err != nil {
		return errors.InvalidInput("body", err.Error())
	}
	return nil
}

func isMultipart(r *http.Request) bool {
	return strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data")
}

func decodeLocation(r *http.Request) (LocationInput, error) {
	var request LocationRequest
	if err := render.DecodeJSON(r.Body, &request); err != nil {
		return LocationInput{}, errors.InvalidInput("body", "must be a JSON object")
	}
	in := LocationInput{}
	copier.Copy(&in, &request)
	return in, nil
}

func pathID(r *http.Request, param string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, param), 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.InvalidInput(param, "must be a positive integer")
	}
	return id, nil
}

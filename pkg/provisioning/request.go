package provisioning

import (
	"strconv"
	"strings"

	"github.com/tendant/simple-company/pkg/directory"
)

// SignupRequest is the directory sign-up being provisioned. Values are kept
// raw as received so parsing failures map to rejection reasons.
type SignupRequest struct {
	Username string
	// IdentityRef is the directory sub. Empty before the identity exists.
	IdentityRef string
	CompanyID   string
	Role        string
	FirstName   string
	LastName    string
	Email       string
	LocationID  string
	// CreatorUsername names the directory user who requested the creation.
	// Empty for self-service sign-ups.
	CreatorUsername string
}

// RequestFromAttributes builds a request from directory attributes and the
// client metadata passed along with the sign-up.
func RequestFromAttributes(username string, attrs, metadata map[string]string) SignupRequest {
	return SignupRequest{
		Username:        username,
		IdentityRef:     attrs[directory.AttrSub],
		CompanyID:       strings.TrimSpace(attrs[directory.AttrCompanyID]),
		Role:            attrs[directory.AttrRole],
		FirstName:       attrs[directory.AttrGivenName],
		LastName:        attrs[directory.AttrFamilyName],
		Email:           attrs[directory.AttrEmail],
		LocationID:      strings.TrimSpace(attrs[directory.AttrLocationID]),
		CreatorUsername: metadata[directory.MetadataCreator],
	}
}

// companyID parses the company attribute. A value that is not a positive
// integer cannot name an existing company.
func (r SignupRequest) companyID() (int64, Reason) {
	if r.CompanyID == "" {
		return 0, ReasonMissingCompany
	}
	id, err := strconv.ParseInt(r.CompanyID, 10, 64)
	if err != nil || id <= 0 {
		return 0, ReasonUnknownCompany
	}
	return id, ""
}

func (r SignupRequest) locationID() (*int64, bool) {
	if r.LocationID == "" {
		return nil, true
	}
	id, err := strconv.ParseInt(r.LocationID, 10, 64)
	if err != nil || id <= 0 {
		return nil, false
	}
	return &id, true
}

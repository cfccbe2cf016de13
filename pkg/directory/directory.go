package directory

import (
	"context"
	"errors"
	"strconv"
)

// Attribute names stored on a directory identity.
const (
	AttrSub        = "sub"
	AttrEmail      = "email"
	AttrGivenName  = "given_name"
	AttrFamilyName = "family_name"
	AttrCompanyID  = "custom:company_id"
	AttrRole       = "custom:role"
	AttrLocationID = "custom:location_id"
)

// MetadataCreator is the client metadata key naming the user who requested
// an identity creation.
const MetadataCreator = "creator_username"

var (
	ErrIdentityNotFound = errors.New("identity not found")
	ErrIdentityExists   = errors.New("identity already exists")
	ErrInvalidToken     = errors.New("invalid access token")
)

// Identity is a user record held by the directory.
type Identity struct {
	Username   string
	Attributes map[string]string
}

// Attr returns the named attribute or "".
func (i Identity) Attr(name string) string {
	return i.Attributes[name]
}

// Sub returns the immutable identifier used as users.identity_ref.
func (i Identity) Sub() string {
	if sub := i.Attributes[AttrSub]; sub != "" {
		return sub
	}
	return i.Username
}

// CompanyID parses custom:company_id. ok is false when it is missing or not an integer.
func (i Identity) CompanyID() (int64, bool) {
	v, err := strconv.ParseInt(i.Attributes[AttrCompanyID], 10, 64)
	return v, err == nil
}

type CreateIdentityInput struct {
	Username          string
	Attributes        map[string]string
	TemporaryPassword string
	// ClientMetadata is forwarded to the directory lifecycle triggers.
	ClientMetadata map[string]string
}

// Directory is the external identity service. Lookups by username also
// accept the identity's sub.
type Directory interface {
	CreateIdentity(ctx context.Context, in CreateIdentityInput) (Identity, error)
	GetIdentity(ctx context.Context, username string) (Identity, error)
	// ResolveToken returns the identity owning an access token.
	ResolveToken(ctx context.Context, accessToken string) (Identity, error)
	UpdateAttributes(ctx context.Context, username string, attrs map[string]string) error
	DeleteIdentity(ctx context.Context, username string) error
}

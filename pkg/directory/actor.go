package directory

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/tendant/simple-company/pkg/authz"
	"github.com/tendant/simple-company/pkg/errors"
)

// ActorFromIdentity builds the request actor from directory attributes.
// A missing company is allowed only for super admins.
func ActorFromIdentity(id Identity) (authz.Actor, error) {
	role, ok := authz.ParseRole(id.Attr(AttrRole))
	if !ok {
		return authz.Actor{}, fmt.Errorf("identity %s has no valid role: %q", id.Username, id.Attr(AttrRole))
	}

	companyID, ok := id.CompanyID()
	if !ok && role != authz.RoleSuperAdmin {
		return authz.Actor{}, fmt.Errorf("identity %s has no valid company_id", id.Username)
	}

	return authz.Actor{
		Username:  id.Username,
		Email:     id.Attr(AttrEmail),
		Role:      role,
		CompanyID: companyID,
	}, nil
}

// Resolver adapts a Directory to authz.ActorResolver.
type Resolver struct {
	dir Directory
}

func NewResolver(dir Directory) *Resolver {
	return &Resolver{dir: dir}
}

func (r *Resolver) ResolveActor(ctx context.Context, token string) (authz.Actor, error) {
	id, err := r.dir.ResolveToken(ctx, token)
	if err != nil {
		if errors.Is(err, ErrInvalidToken) || errors.Is(err, ErrIdentityNotFound) {
			return authz.Actor{}, errors.Wrap(err, errors.ErrCodeUnauthorized, "invalid or expired token")
		}
		return authz.Actor{}, errors.Dependency(err, "failed to resolve access token")
	}

	actor, err := ActorFromIdentity(id)
	if err != nil {
		slog.Warn("Identity cannot act on tenant resources", "username", id.Username, "error", err)
		return authz.Actor{}, errors.Wrap(err, errors.ErrCodeUnauthorized, "identity is not provisioned")
	}
	return actor, nil
}

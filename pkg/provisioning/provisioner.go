package provisioning

import (
	"context"
	"log/slog"

	"github.com/tendant/simple-company/pkg/authz"
	"github.com/tendant/simple-company/pkg/directory"
	"github.com/tendant/simple-company/pkg/errors"
	"github.com/tendant/simple-company/pkg/tenant"
)

// Provisioner turns directory sign-ups into tenant users.
//
// Validate runs before the directory materializes an identity and Finalize
// after it. Both apply the same admission rules; Finalize re-applies them
// while holding the company lock so concurrent sign-ups cannot both become
// the first user.
type Provisioner struct {
	repo tenant.Repository
	dir  directory.Directory
}

func NewProvisioner(repo tenant.Repository, dir directory.Directory) *Provisioner {
	return &Provisioner{repo: repo, dir: dir}
}

// Result of a successful Finalize.
type Result struct {
	User tenant.User
	// IsFirstUser is true when the user bootstrapped the company.
	IsFirstUser bool
	// DefaultLocation is set when a default location was created.
	DefaultLocation *tenant.Location
	// AlreadyProvisioned is true when the identity already had a user row.
	AlreadyProvisioned bool
}

// Validate checks a sign-up before its identity exists. The returned attempt
// is in state Validated or Rejected; a rejection is also returned as a
// PROVISIONING_REJECTED error.
func (p *Provisioner) Validate(ctx context.Context, req SignupRequest) (*Attempt, error) {
	attempt := newAttempt(req)

	companyID, reason := req.companyID()
	if reason != "" {
		return p.rejected(attempt, reason)
	}

	exists, err := p.repo.CompanyExists(ctx, companyID)
	if err != nil {
		return attempt, errors.Dependency(err, "failed to look up company")
	}
	if !exists {
		return p.rejected(attempt, ReasonUnknownCompany)
	}

	count, err := p.repo.CountUsers(ctx, companyID)
	if err != nil {
		return attempt, errors.Dependency(err, "failed to count company users")
	}
	isFirstUser := count == 0

	var c creator
	if !isFirstUser {
		if c, err = p.resolveCreator(ctx, req.CreatorUsername); err != nil {
			return attempt, err
		}
	}

	if _, reason := decide(companyID, isFirstUser, req.Role, c); reason != "" {
		return p.rejected(attempt, reason)
	}

	if !isFirstUser {
		if err := p.checkLocation(ctx, p.repo, companyID, req); err != nil {
			return attempt, err
		}
	}

	attempt.advance(StateValidated)
	slog.Info("Sign-up validated", "username", req.Username, "companyId", companyID, "firstUser", isFirstUser)
	return attempt, nil
}

// Finalize writes the user row for a materialized identity in one
// transaction. Finalizing an identity that already has a row returns that
// row unchanged.
func (p *Provisioner) Finalize(ctx context.Context, req SignupRequest) (*Attempt, *Result, error) {
	attempt := newAttempt(req)

	if req.IdentityRef == "" {
		return attempt, nil, errors.InvalidInput("identity", "sub attribute is required")
	}
	companyID, reason := req.companyID()
	if reason != "" {
		a, err := p.rejected(attempt, reason)
		return a, nil, err
	}

	// Directory calls stay outside the transaction.
	c, err := p.resolveCreator(ctx, req.CreatorUsername)
	if err != nil {
		return attempt, nil, err
	}

	var result Result
	var rejection Reason
	err = p.repo.WithTx(ctx, func(s tenant.Store) error {
		existing, err := s.GetUserByIdentityRef(ctx, req.IdentityRef)
		if err == nil {
			result = Result{User: existing, AlreadyProvisioned: true}
			return nil
		}
		if !errors.Is(err, tenant.ErrUserNotFound) {
			return errors.Dependency(err, "failed to look up user")
		}

		exists, err := s.CompanyExists(ctx, companyID)
		if err != nil {
			return errors.Dependency(err, "failed to look up company")
		}
		if !exists {
			rejection = ReasonUnknownCompany
			return errRejected
		}

		if err := s.LockCompany(ctx, companyID); err != nil {
			return errors.Dependency(err, "failed to lock company")
		}
		count, err := s.CountUsers(ctx, companyID)
		if err != nil {
			return errors.Dependency(err, "failed to count company users")
		}
		isFirstUser := count == 0

		role, reason := decide(companyID, isFirstUser, req.Role, c)
		if reason != "" {
			rejection = reason
			return errRejected
		}
		// The first user always gets the default location, so a supplied
		// location is ignored.
		var locationID *int64
		if !isFirstUser {
			if err := p.checkLocation(ctx, s, companyID, req); err != nil {
				return err
			}
			locationID, _ = req.locationID()
		}
		attempt.advance(StateValidated)

		user, err := s.CreateUser(ctx, tenant.CreateUserParams{
			IdentityRef: req.IdentityRef,
			CompanyID:   companyID,
			Role:        role,
			FirstName:   req.FirstName,
			LastName:    req.LastName,
			Email:       req.Email,
			LocationID:  locationID,
		})
		if err != nil {
			return mapStoreError(err, "failed to create user")
		}
		attempt.advance(StateMaterialized)

		result = Result{User: user, IsFirstUser: isFirstUser}
		if isFirstUser {
			loc, err := s.CreateLocation(ctx, tenant.CreateLocationParams{
				CompanyID: companyID,
				Name:      tenant.DefaultLocationName,
				Address:   tenant.DefaultLocationAddress,
				IsDefault: true,
			})
			if err != nil {
				return mapStoreError(err, "failed to create default location")
			}
			if err := s.SetUserLocation(ctx, user.ID, &loc.ID); err != nil {
				return mapStoreError(err, "failed to assign default location")
			}
			result.User.LocationID = &loc.ID
			result.DefaultLocation = &loc
		}
		return nil
	})

	if rejection != "" {
		a, err := p.rejected(attempt, rejection)
		return a, nil, err
	}
	if err != nil {
		if !errors.IsBusiness(err) {
			slog.Error("Provisioning failed", "username", req.Username, "companyId", companyID, "error", err)
		}
		return attempt, nil, err
	}

	if result.AlreadyProvisioned {
		slog.Info("Identity already provisioned", "identityRef", req.IdentityRef, "userId", result.User.ID)
		attempt.resume(StateFinalized)
		return attempt, &result, nil
	}

	attempt.advance(StateFinalized)
	slog.Info("User provisioned",
		"userId", result.User.ID,
		"companyId", companyID,
		"role", result.User.Role,
		"firstUser", result.IsFirstUser)
	return attempt, &result, nil
}

var errRejected = errors.New(errors.ErrCodeProvisioningRejected, "provisioning rejected")

func (p *Provisioner) rejected(a *Attempt, reason Reason) (*Attempt, error) {
	a.reject(reason)
	slog.Warn("Sign-up rejected", "username", a.Request.Username, "companyId", a.Request.CompanyID, "reason", reason)
	return a, errors.ProvisioningRejected(string(reason), reason.Message())
}

func (p *Provisioner) resolveCreator(ctx context.Context, username string) (creator, error) {
	if username == "" {
		return creator{}, nil
	}
	id, err := p.dir.GetIdentity(ctx, username)
	if err != nil {
		if errors.Is(err, directory.ErrIdentityNotFound) {
			return creator{}, nil
		}
		return creator{}, errors.Dependency(err, "failed to resolve creating user")
	}

	role, _ := authz.ParseRole(id.Attr(directory.AttrRole))
	companyID, _ := id.CompanyID()
	return creator{
		found: true,
		actor: authz.Actor{
			Username:  id.Username,
			Email:     id.Attr(directory.AttrEmail),
			Role:      role,
			CompanyID: companyID,
		},
	}, nil
}

// checkLocation verifies a supplied location id names a location of the company.
func (p *Provisioner) checkLocation(ctx context.Context, s tenant.Store, companyID int64, req SignupRequest) error {
	locationID, ok := req.locationID()
	if !ok {
		return errors.InvalidInput("location_id", "must be a positive integer")
	}
	if locationID == nil {
		return nil
	}
	if _, err := s.GetLocation(ctx, companyID, *locationID); err != nil {
		if errors.Is(err, tenant.ErrLocationNotFound) {
			return errors.InvalidInput("location_id", "location does not belong to the company")
		}
		return errors.Dependency(err, "failed to look up location")
	}
	return nil
}

func mapStoreError(err error, message string) error {
	switch {
	case errors.Is(err, tenant.ErrDuplicate):
		return errors.Wrap(err, errors.ErrCodeConflict, "user already provisioned")
	case errors.Is(err, tenant.ErrInvalidReference), errors.Is(err, tenant.ErrInvalidValue):
		return errors.Wrap(err, errors.ErrCodeInvalidInput, message)
	default:
		return errors.Dependency(err, message)
	}
}

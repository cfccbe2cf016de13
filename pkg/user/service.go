package user

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/tendant/simple-company/pkg/authz"
	"github.com/tendant/simple-company/pkg/directory"
	"github.com/tendant/simple-company/pkg/errors"
	"github.com/tendant/simple-company/pkg/provisioning"
	"github.com/tendant/simple-company/pkg/tenant"
)

// directoryFollowUpTimeout bounds directory calls made after the request
// context may already be done.
const directoryFollowUpTimeout = 10 * time.Second

type CreateUserParams struct {
	Email             string
	FirstName         string
	LastName          string
	CompanyID         int64
	Role              string
	LocationID        *int64
	TemporaryPassword string
}

// UpdateUserParams replaces the names and role of a user. CompanyID, when
// set, must equal the stored company.
type UpdateUserParams struct {
	FirstName string
	LastName  string
	Role      string
	CompanyID *int64
}

// UserService manages tenant users. Each user is a directory identity plus a
// row in the tenant store.
type UserService struct {
	repo        tenant.Repository
	dir         directory.Directory
	provisioner *provisioning.Provisioner
}

func NewUserService(repo tenant.Repository, dir directory.Directory, provisioner *provisioning.Provisioner) *UserService {
	return &UserService{
		repo:        repo,
		dir:         dir,
		provisioner: provisioner,
	}
}

// CreateUser creates the directory identity on behalf of actor and provisions
// its user row. If provisioning fails after the identity exists, the identity
// is deleted again.
func (s *UserService) CreateUser(ctx context.Context, actor authz.Actor, params CreateUserParams) (tenant.User, error) {
	email := strings.TrimSpace(params.Email)
	if email == "" {
		return tenant.User{}, errors.InvalidInput("email", "is required")
	}
	if params.CompanyID <= 0 {
		return tenant.User{}, errors.InvalidInput("company_id", "must be a positive integer")
	}
	if err := authz.RequireManageCompany(actor, params.CompanyID); err != nil {
		return tenant.User{}, err
	}
	role, ok := authz.ParseRole(params.Role)
	if !ok {
		return tenant.User{}, errors.InvalidInput("role", "must be one of super_admin, admin, employee")
	}
	if err := authz.RequireAssignRole(actor, role); err != nil {
		return tenant.User{}, err
	}

	attrs := map[string]string{
		directory.AttrEmail:      email,
		directory.AttrGivenName:  params.FirstName,
		directory.AttrFamilyName: params.LastName,
		directory.AttrCompanyID:  strconv.FormatInt(params.CompanyID, 10),
		directory.AttrRole:       string(role),
	}
	if params.LocationID != nil {
		attrs[directory.AttrLocationID] = strconv.FormatInt(*params.LocationID, 10)
	}
	req := provisioning.RequestFromAttributes(email, attrs, map[string]string{
		directory.MetadataCreator: actor.Username,
	})

	if _, err := s.provisioner.Validate(ctx, req); err != nil {
		return tenant.User{}, err
	}

	identity, err := s.dir.CreateIdentity(ctx, directory.CreateIdentityInput{
		Username:          email,
		Attributes:        attrs,
		TemporaryPassword: params.TemporaryPassword,
		ClientMetadata:    map[string]string{directory.MetadataCreator: actor.Username},
	})
	if err != nil {
		if errors.Is(err, directory.ErrIdentityExists) {
			return tenant.User{}, errors.AlreadyExists("user", email)
		}
		return tenant.User{}, errors.Dependency(err, "failed to create identity")
	}

	req.IdentityRef = identity.Sub()
	_, result, err := s.provisioner.Finalize(ctx, req)
	if err != nil {
		cleanupCtx, cancel := followUpContext(ctx)
		defer cancel()
		if delErr := s.dir.DeleteIdentity(cleanupCtx, identity.Username); delErr != nil {
			slog.Error("Failed to remove identity after provisioning failure",
				"username", identity.Username, "error", delErr)
		}
		return tenant.User{}, err
	}

	slog.Info("User created", "userId", result.User.ID, "companyId", params.CompanyID, "role", role, "actor", actor)
	return result.User, nil
}

func (s *UserService) GetUser(ctx context.Context, actor authz.Actor, userID int64) (tenant.User, error) {
	u, err := s.repo.GetUser(ctx, userID)
	if err != nil {
		return tenant.User{}, mapStoreError(err, "failed to load user")
	}
	if err := authz.RequireAccessCompany(actor, u.CompanyID); err != nil {
		return tenant.User{}, err
	}
	return u, nil
}

// ListUsers returns the users of a company ordered by id.
func (s *UserService) ListUsers(ctx context.Context, actor authz.Actor, companyID int64) ([]tenant.User, error) {
	if err := authz.RequireAccessCompany(actor, companyID); err != nil {
		return nil, err
	}
	exists, err := s.repo.CompanyExists(ctx, companyID)
	if err != nil {
		return nil, errors.Dependency(err, "failed to look up company")
	}
	if !exists {
		return nil, errors.NotFound("company", strconv.FormatInt(companyID, 10))
	}
	users, err := s.repo.ListUsers(ctx, companyID)
	if err != nil {
		return nil, mapStoreError(err, "failed to list users")
	}
	return users, nil
}

// UpdateUser changes the names and role of a user, then mirrors them to the
// directory. Changing a role needs the right to assign both the old and the
// new role.
func (s *UserService) UpdateUser(ctx context.Context, actor authz.Actor, userID int64, params UpdateUserParams) (tenant.User, error) {
	role, ok := authz.ParseRole(params.Role)
	if !ok {
		return tenant.User{}, errors.InvalidInput("role", "must be one of super_admin, admin, employee")
	}

	var updated tenant.User
	err := s.repo.WithTx(ctx, func(st tenant.Store) error {
		current, err := st.GetUser(ctx, userID)
		if err != nil {
			return mapStoreError(err, "failed to load user")
		}
		if err := authz.RequireManageCompany(actor, current.CompanyID); err != nil {
			return err
		}
		if params.CompanyID != nil && *params.CompanyID != current.CompanyID {
			return errors.InvalidInput("company_id", "cannot be changed")
		}
		if role != current.Role {
			if err := authz.RequireAssignRole(actor, current.Role); err != nil {
				return err
			}
			if err := authz.RequireAssignRole(actor, role); err != nil {
				return err
			}
		}

		updated, err = st.UpdateUser(ctx, tenant.UpdateUserParams{
			ID:        userID,
			FirstName: params.FirstName,
			LastName:  params.LastName,
			Role:      role,
		})
		if err != nil {
			return mapStoreError(err, "failed to update user")
		}
		return nil
	})
	if err != nil {
		return tenant.User{}, err
	}

	mirrorCtx, cancel := followUpContext(ctx)
	defer cancel()
	if err := s.dir.UpdateAttributes(mirrorCtx, updated.IdentityRef, map[string]string{
		directory.AttrGivenName:  updated.FirstName,
		directory.AttrFamilyName: updated.LastName,
		directory.AttrRole:       string(updated.Role),
	}); err != nil {
		return tenant.User{}, errors.Dependency(err, "user updated but directory attributes were not")
	}

	slog.Info("User updated", "userId", userID, "role", updated.Role, "actor", actor)
	return updated, nil
}

// DeleteUser removes the user row and then its directory identity. An admin
// may only delete users whose role they could assign.
func (s *UserService) DeleteUser(ctx context.Context, actor authz.Actor, userID int64) error {
	var deleted tenant.User
	err := s.repo.WithTx(ctx, func(st tenant.Store) error {
		u, err := st.GetUser(ctx, userID)
		if err != nil {
			return mapStoreError(err, "failed to load user")
		}
		if err := authz.RequireManageCompany(actor, u.CompanyID); err != nil {
			return err
		}
		if err := authz.RequireAssignRole(actor, u.Role); err != nil {
			return err
		}
		if err := st.DeleteUser(ctx, userID); err != nil {
			return mapStoreError(err, "failed to delete user")
		}
		deleted = u
		return nil
	})
	if err != nil {
		return err
	}

	deleteCtx, cancel := followUpContext(ctx)
	defer cancel()
	if err := s.dir.DeleteIdentity(deleteCtx, deleted.IdentityRef); err != nil && !errors.Is(err, directory.ErrIdentityNotFound) {
		return errors.Dependency(err, "user deleted but directory identity was not")
	}

	slog.Info("User deleted", "userId", userID, "companyId", deleted.CompanyID, "actor", actor)
	return nil
}

// followUpContext keeps the values of ctx but not its cancellation.
func followUpContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), directoryFollowUpTimeout)
}

func mapStoreError(err error, message string) error {
	switch {
	case errors.Is(err, tenant.ErrUserNotFound):
		return errors.Wrap(err, errors.ErrCodeNotFound, "user not found")
	case errors.Is(err, tenant.ErrDuplicate):
		return errors.Wrap(err, errors.ErrCodeConflict, message)
	case errors.Is(err, tenant.ErrInvalidReference), errors.Is(err, tenant.ErrInvalidValue):
		return errors.Wrap(err, errors.ErrCodeInvalidInput, message)
	default:
		return errors.Dependency(err, message)
	}
}

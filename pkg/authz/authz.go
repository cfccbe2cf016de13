package authz

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/tendant/simple-company/pkg/errors"
)

// Role is the tenant role of a user.
type Role string

const (
	RoleSuperAdmin Role = "super_admin"
	RoleAdmin      Role = "admin"
	RoleEmployee   Role = "employee"
)

// Roles lists every valid role, most privileged first.
var Roles = []Role{RoleSuperAdmin, RoleAdmin, RoleEmployee}

// ParseRole returns the role named by s. Surrounding whitespace and case are ignored.
func ParseRole(s string) (Role, bool) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	switch r {
	case RoleSuperAdmin, RoleAdmin, RoleEmployee:
		return r, true
	}
	return "", false
}

// IsPrivileged reports whether r is admin or super_admin.
func (r Role) IsPrivileged() bool {
	return r == RoleSuperAdmin || r == RoleAdmin
}

func (r Role) String() string {
	return string(r)
}

// Actor is the authenticated caller of a request.
type Actor struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	Role      Role   `json:"role"`
	CompanyID int64  `json:"company_id"`
}

func (a Actor) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("username", a.Username),
		slog.String("role", string(a.Role)),
		slog.Int64("companyId", a.CompanyID),
	)
}

// IsSuperAdmin reports whether the actor is a platform super admin.
func IsSuperAdmin(a Actor) bool {
	return a.Role == RoleSuperAdmin
}

// CanAccessCompany reports whether the actor may read resources of companyID.
func CanAccessCompany(a Actor, companyID int64) bool {
	return IsSuperAdmin(a) || a.CompanyID == companyID
}

// CanManageCompany reports whether the actor may modify resources of companyID.
func CanManageCompany(a Actor, companyID int64) bool {
	return IsSuperAdmin(a) || (a.Role == RoleAdmin && a.CompanyID == companyID)
}

// CanCreateCompany reports whether the actor may create a company.
// Company creation is platform level and never tenant scoped.
func CanCreateCompany(a Actor) bool {
	return IsSuperAdmin(a)
}

// CanAssignRole reports whether the actor may give target to a user.
// A super admin may assign any role and an admin only employee.
func CanAssignRole(a Actor, target Role) bool {
	switch a.Role {
	case RoleSuperAdmin:
		_, ok := ParseRole(string(target))
		return ok
	case RoleAdmin:
		return target == RoleEmployee
	default:
		return false
	}
}

// Each Require helper turns a false decision into a FORBIDDEN error carrying the reason.

func RequireSuperAdmin(a Actor) error {
	if IsSuperAdmin(a) {
		return nil
	}
	return deny(a, "super_admin role required")
}

func RequireAccessCompany(a Actor, companyID int64) error {
	if CanAccessCompany(a, companyID) {
		return nil
	}
	return deny(a, "not a member of this company").WithDetail("company_id", companyID)
}

func RequireManageCompany(a Actor, companyID int64) error {
	if CanManageCompany(a, companyID) {
		return nil
	}
	return deny(a, "admin role in this company required").WithDetail("company_id", companyID)
}

func RequireCreateCompany(a Actor) error {
	if CanCreateCompany(a) {
		return nil
	}
	return deny(a, "only super_admin can create companies")
}

func RequireAssignRole(a Actor, target Role) error {
	if CanAssignRole(a, target) {
		return nil
	}
	return deny(a, fmt.Sprintf("role %s cannot assign role %s", a.Role, target)).WithDetail("role", string(target))
}

func deny(a Actor, reason string) *errors.Error {
	slog.Warn("authorization denied", "actor", a, "reason", reason)
	return errors.Forbidden(reason)
}

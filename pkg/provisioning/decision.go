package provisioning

import "github.com/tendant/simple-company/pkg/authz"

// creator is the resolved requester of a non self-service sign-up.
type creator struct {
	found bool
	actor authz.Actor
}

// decide applies the admission rules once the company is known to exist.
// It returns the role to store, or the reason the sign-up is rejected.
func decide(companyID int64, isFirstUser bool, requestedRole string, c creator) (authz.Role, Reason) {
	if isFirstUser {
		role, ok := authz.ParseRole(requestedRole)
		if !ok || role != authz.RoleSuperAdmin {
			return "", ReasonFirstUserMustBeSuperAdmin
		}
		return role, ""
	}

	if !c.found {
		return "", ReasonDirectSignupNotAllowed
	}
	if !authz.CanManageCompany(c.actor, companyID) {
		return "", ReasonInsufficientPrivilege
	}

	role, ok := authz.ParseRole(requestedRole)
	if !ok {
		return "", ReasonInvalidRole
	}
	if !authz.CanAssignRole(c.actor, role) {
		return "", ReasonCannotGrantPrivilegedRole
	}
	return role, ""
}

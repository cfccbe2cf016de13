// Package authz is the authorization engine of simple-company.
//
// The Can* functions are pure decisions over an Actor and a target company;
// they perform no I/O. Services call the matching Require* helper, which
// turns a denial into a FORBIDDEN *errors.Error with a human readable reason.
//
// Rules:
//
//	IsSuperAdmin      role == super_admin
//	CanAccessCompany  super_admin, or member of the company
//	CanManageCompany  super_admin, or admin of the company
//	CanCreateCompany  super_admin
//	CanAssignRole     super_admin: any role; admin: employee; employee: none
//
// The HTTP side lives in middleware.go: Authenticate extracts the bearer
// token, resolves it through an ActorResolver and stores the Actor on the
// request context.
package authz

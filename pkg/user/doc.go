// Package user manages the users of a company.
//
// A user exists twice: as a directory identity and as a tenant store row
// keyed by the identity's sub. CreateUser validates the sign-up with the
// provisioning package, creates the identity with the actor recorded as its
// creator and finalizes the row, deleting the identity again if finalization
// fails. Updates and deletes change the row first and then the directory.
//
// A user's company never changes after creation.
package user

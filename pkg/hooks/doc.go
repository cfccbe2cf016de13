// Package hooks serves the directory's user pool triggers.
//
// PreSignUp_* events are validated with provisioning.Provisioner.Validate and
// PostConfirmation_ConfirmSignUp events are finalized into tenant users. A
// non-first user must carry the creating user's name in the
// creator_username client metadata, which the user API always sets.
package hooks

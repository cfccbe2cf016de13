// Package provisioning admits directory sign-ups into a company.
//
// A sign-up moves through Requested, Validated, Materialized and Finalized,
// or ends Rejected before its identity is materialized. Validate runs at the
// directory's pre sign-up hook and Finalize at its post confirmation hook or
// right after an in-process identity creation.
//
// Admission rules:
//
//  1. The sign-up must name an existing company (MissingCompany, UnknownCompany).
//  2. The first user of a company must request super_admin
//     (FirstUserMustBeSuperAdmin) and receives a default location.
//  3. Later users must be created by a directory user (DirectSignupNotAllowed)
//     who can manage the company (InsufficientPrivilege), with a known role
//     (InvalidRole) that the creator may assign (CannotGrantPrivilegedRole).
//
// Finalize re-applies the rules inside the transaction that inserts the user,
// after taking the company lock, so two concurrent first sign-ups cannot both
// succeed. It is idempotent per identity reference.
package provisioning

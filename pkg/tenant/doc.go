// Package tenant is the relational store for companies, locations and users.
//
// Repository exposes the store operations plus WithTx, which runs a callback
// in a single transaction. PostgresRepository backs production through the
// queries in tenantdb; InMemoryRepository enforces the same constraints for
// tests and local development.
//
// Missing rows surface as ErrCompanyNotFound, ErrLocationNotFound or
// ErrUserNotFound. Constraint violations surface as ErrDuplicate,
// ErrInvalidReference or ErrInvalidValue wrapped with the constraint name.
//
// LockCompany takes a transaction scoped advisory lock keyed by company id.
// Provisioning holds it while counting users so only one first user is
// admitted per company.
//
// OpenPool and Migrate prepare the database:
//
//	pool, err := tenant.OpenPool(ctx, cfg.Database)
//	applied, err := tenant.Migrate(ctx, pool, migrations.FS)
package tenant

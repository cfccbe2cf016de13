package tenant

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"sort"
	"strconv"
	"strings"
)

const createLedger = `CREATE TABLE IF NOT EXISTS migrations (
    version    TEXT PRIMARY KEY,
    applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// Migration is one schema script.
type Migration struct {
	Version string
	Name    string
	SQL     string
}

// LoadMigrations reads every *.sql file at the root of fsys. The version is
// the part of the file name before "__" and files are ordered by the number
// after a leading "V".
func LoadMigrations(fsys fs.FS) ([]Migration, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("failed to read migrations: %w", err)
	}

	var migrations []Migration
	for _, entry := range entries {
		if entry.IsDir() || path.Ext(entry.Name()) != ".sql" {
			continue
		}
		version, _, ok := strings.Cut(entry.Name(), "__")
		if !ok || version == "" {
			slog.Warn("Skipping migration file with invalid name", "file", entry.Name())
			continue
		}
		content, err := fs.ReadFile(fsys, entry.Name())
		if err != nil {
			return nil, fmt.Errorf("failed to read migration %s: %w", entry.Name(), err)
		}
		migrations = append(migrations, Migration{Version: version, Name: entry.Name(), SQL: string(content)})
	}

	sort.SliceStable(migrations, func(i, j int) bool {
		return versionLess(migrations[i].Version, migrations[j].Version)
	})
	return migrations, nil
}

func versionLess(a, b string) bool {
	na, errA := strconv.Atoi(strings.TrimPrefix(a, "V"))
	nb, errB := strconv.Atoi(strings.TrimPrefix(b, "V"))
	if errA == nil && errB == nil {
		return na < nb
	}
	return a < b
}

// Migrate applies the migrations of fsys that are not yet recorded in the
// migrations table. Each script runs in its own transaction together with
// its ledger row. It returns the versions applied by this call.
func Migrate(ctx context.Context, db DB, fsys fs.FS) ([]string, error) {
	migrations, err := LoadMigrations(fsys)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(ctx, createLedger); err != nil {
		return nil, fmt.Errorf("failed to create migrations table: %w", err)
	}

	var applied []string
	for _, m := range migrations {
		ok, err := applyMigration(ctx, db, m)
		if err != nil {
			return applied, fmt.Errorf("migration %s failed: %w", m.Name, err)
		}
		if ok {
			applied = append(applied, m.Version)
		}
	}
	slog.Info("Migrations complete", "found", len(migrations), "applied", len(applied))
	return applied, nil
}

func applyMigration(ctx context.Context, db DB, m Migration) (bool, error) {
	tx, err := db.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	// Concurrent runners wait here and then see the ledger row.
	if _, err := tx.Exec(ctx, "LOCK TABLE migrations IN EXCLUSIVE MODE"); err != nil {
		return false, err
	}
	var exists bool
	if err := tx.QueryRow(ctx, "SELECT EXISTS (SELECT 1 FROM migrations WHERE version = $1)", m.Version).Scan(&exists); err != nil {
		return false, err
	}
	if exists {
		slog.Debug("Migration already applied", "version", m.Version)
		return false, nil
	}

	slog.Info("Applying migration", "version", m.Version, "name", m.Name)
	if _, err := tx.Exec(ctx, m.SQL); err != nil {
		return false, err
	}
	if _, err := tx.Exec(ctx, "INSERT INTO migrations (version) VALUES ($1)", m.Version); err != nil {
		return false, err
	}
	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("failed to commit: %w", err)
	}
	return true, nil
}

// Package main applies the embedded schema migrations and exits.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/ilyakaznacheev/cleanenv"

	"github.com/tendant/simple-company/migrations"
	"github.com/tendant/simple-company/pkg/awsclient"
	"github.com/tendant/simple-company/pkg/config"
	"github.com/tendant/simple-company/pkg/tenant"
)

type Config struct {
	Database config.DatabaseConfig
	AWS      config.AWSConfig
	LogLevel string `env:"LOG_LEVEL" env-default:"info"`
}

func main() {
	cfg := Config{}
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		slog.Error("Failed to read configuration", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(config.NewLogger(cfg.LogLevel))

	if err := config.Validate(cfg.Database.Validate); err != nil {
		slog.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()
	dbConfig := cfg.Database
	if cfg.AWS.DBSecretARN != "" {
		clients, err := awsclient.New(ctx, cfg.AWS)
		if err != nil {
			slog.Error("Failed to create AWS clients", "error", err)
			os.Exit(1)
		}
		dbConfig, err = awsclient.ResolveDatabaseConfig(ctx, clients.SecretsManager, cfg.AWS.DBSecretARN, dbConfig)
		if err != nil {
			slog.Error("Failed to resolve database credentials", "error", err)
			os.Exit(1)
		}
	}

	pool, err := tenant.OpenPool(ctx, dbConfig)
	if err != nil {
		slog.Error("Failed to connect to database", "host", dbConfig.Host, "database", dbConfig.Database, "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	applied, err := tenant.Migrate(ctx, pool, migrations.FS)
	if err != nil {
		slog.Error("Migration failed", "applied", applied, "error", err)
		pool.Close()
		os.Exit(1)
	}
	slog.Info("Database is up to date", "database", dbConfig.Database, "applied", applied)
}

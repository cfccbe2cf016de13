// Package main is the Lambda function wired to the user pool's pre sign-up
// and post confirmation triggers.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/ilyakaznacheev/cleanenv"

	"github.com/tendant/simple-company/pkg/awsclient"
	"github.com/tendant/simple-company/pkg/config"
	"github.com/tendant/simple-company/pkg/directory"
	"github.com/tendant/simple-company/pkg/hooks"
	"github.com/tendant/simple-company/pkg/provisioning"
	"github.com/tendant/simple-company/pkg/tenant"
)

type Config struct {
	Database config.DatabaseConfig
	AWS      config.AWSConfig
	LogLevel string `env:"LOG_LEVEL" env-default:"info"`
}

func (c Config) validateAWS() config.ValidationErrors {
	return config.CollectErrors(
		config.RequireNonEmpty("AWS_REGION", c.AWS.Region),
		config.RequireNonEmpty("COGNITO_USER_POOL_ID", c.AWS.UserPoolID),
	)
}

func main() {
	cfg := Config{}
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		slog.Error("Failed to read configuration", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(config.NewLogger(cfg.LogLevel))

	if err := config.Validate(cfg.Database.Validate, cfg.validateAWS); err != nil {
		slog.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	clients, err := awsclient.New(ctx, cfg.AWS)
	if err != nil {
		slog.Error("Failed to create AWS clients", "error", err)
		os.Exit(1)
	}

	dbConfig := cfg.Database
	if cfg.AWS.DBSecretARN != "" {
		dbConfig, err = awsclient.ResolveDatabaseConfig(ctx, clients.SecretsManager, cfg.AWS.DBSecretARN, dbConfig)
		if err != nil {
			slog.Error("Failed to resolve database credentials", "error", err)
			os.Exit(1)
		}
	}

	// The pool outlives single invocations and is reused while the container is warm.
	pool, err := tenant.OpenPool(ctx, dbConfig)
	if err != nil {
		slog.Error("Failed to connect to database", "host", dbConfig.Host, "database", dbConfig.Database, "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	provisioner := provisioning.NewProvisioner(
		tenant.NewPostgresRepository(pool),
		directory.NewCognitoDirectory(clients.Cognito, cfg.AWS.UserPoolID),
	)

	lambda.Start(hooks.NewHandler(provisioner).Handle)
}

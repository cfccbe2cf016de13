package main

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
	"github.com/tendant/chi-demo/app"

	"github.com/tendant/simple-company/pkg/audit"
	"github.com/tendant/simple-company/pkg/awsclient"
	"github.com/tendant/simple-company/pkg/company"
	"github.com/tendant/simple-company/pkg/config"
	"github.com/tendant/simple-company/pkg/directory"
	"github.com/tendant/simple-company/pkg/objectstore"
	"github.com/tendant/simple-company/pkg/provisioning"
	"github.com/tendant/simple-company/pkg/ratelimit"
	"github.com/tendant/simple-company/pkg/router"
	"github.com/tendant/simple-company/pkg/tenant"
	"github.com/tendant/simple-company/pkg/user"
)

type Config struct {
	Database  config.DatabaseConfig
	AWS       config.AWSConfig
	Service   config.ServiceConfig
	RateLimit ratelimit.Config

	// Server
	AppConfig app.AppConfig
}

func main() {
	loadEnvFile()

	cfg := Config{}
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		slog.Error("Failed to read configuration", "error", err)
		os.Exit(1)
	}

	logger := config.NewLogger(cfg.Service.LogLevel)
	slog.SetDefault(logger)

	if err := config.Validate(cfg.Database.Validate, cfg.AWS.Validate, cfg.Service.Validate); err != nil {
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

	pool, err := tenant.OpenPool(ctx, dbConfig)
	if err != nil {
		slog.Error("Failed to connect to database",
			"host", dbConfig.Host,
			"port", dbConfig.Port,
			"database", dbConfig.Database,
			"schema", dbConfig.Schema,
			"error", err)
		os.Exit(1)
	}
	defer pool.Close()
	slog.Info("Database connected", "database", dbConfig.Database, "schema", dbConfig.Schema)

	repo := tenant.NewPostgresRepository(pool)
	dir := directory.NewCognitoDirectory(clients.Cognito, cfg.AWS.UserPoolID)

	var s3Opts []objectstore.S3Option
	if cfg.AWS.LogoPublicBaseURL != "" {
		s3Opts = append(s3Opts, objectstore.WithPublicBaseURL(cfg.AWS.LogoPublicBaseURL))
	}
	logos := objectstore.NewS3Store(clients.S3, cfg.AWS.LogoBucket, s3Opts...)

	provisioner := provisioning.NewProvisioner(repo, dir)

	companyService := company.NewCompanyService(repo, logos,
		company.WithLogoUploadTimeout(cfg.Service.LogoUploadTimeout))
	userService := user.NewUserService(repo, dir, provisioner)

	limiter := ratelimit.NewMiddleware(cfg.RateLimit)
	go limiter.Run(ctx)

	server := app.DefaultApp()
	app.RoutesHealthz(server.R)
	app.RoutesHealthzReady(server.R)

	router.SetupRoutes(server.R, router.Config{
		CompanyHandle: company.NewHandle(companyService, company.WithMaxLogoBytes(cfg.Service.LogoMaxBytes)),
		UserHandle:    user.NewHandle(userService),
		Resolver:      directory.NewResolver(dir),
		RateLimit:     limiter,
		Audit:         audit.NewMiddleware(audit.NewLogSink(logger)),
	})

	slog.Info("Company API ready", "userPool", cfg.AWS.UserPoolID, "logoBucket", cfg.AWS.LogoBucket)
	server.Run()
}

// loadEnvFile loads .env from the executable's directory or the working directory
func loadEnvFile() {
	envFile := ".env"
	if execPath, err := os.Executable(); err == nil {
		candidate := filepath.Join(filepath.Dir(execPath), ".env")
		if _, err := os.Stat(candidate); err == nil {
			envFile = candidate
		}
	}

	if _, err := os.Stat(envFile); os.IsNotExist(err) {
		slog.Debug("No .env file found (using environment variables or defaults)")
		return
	}

	slog.Info("Loading configuration from .env file", "path", envFile)
	if err := godotenv.Load(envFile); err != nil {
		slog.Warn("Failed to load .env file", "error", err)
	}
}

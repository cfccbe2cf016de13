// Package main runs the company API without PostgreSQL, Cognito or S3.
// Identities, tenant rows and logos live in memory and are lost on exit.
package main

import (
	"context"
	"log/slog"
	"os"
	"strings"

	"github.com/tendant/chi-demo/app"

	"github.com/tendant/simple-company/pkg/audit"
	"github.com/tendant/simple-company/pkg/authz"
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

const adminUsername = "admin@example.com"

func main() {
	logger := config.NewLogger(config.GetEnvOrDefault("LOG_LEVEL", "info"))
	slog.SetDefault(logger)

	slog.Info("Starting in-memory company API (no database required)")
	slog.Info(strings.Repeat("=", 60))

	repo := tenant.NewInMemoryRepository()
	dir := directory.NewInMemoryDirectory()
	logos := objectstore.NewMemoryStore()

	dir.Seed(directory.Identity{
		Username: adminUsername,
		Attributes: map[string]string{
			directory.AttrEmail: adminUsername,
			directory.AttrRole:  string(authz.RoleSuperAdmin),
		},
	})
	token, err := dir.IssueToken(adminUsername)
	if err != nil {
		slog.Error("Failed to issue admin token", "error", err)
		os.Exit(1)
	}

	provisioner := provisioning.NewProvisioner(repo, dir)
	companyService := company.NewCompanyService(repo, logos)
	userService := user.NewUserService(repo, dir, provisioner)

	limiter := ratelimit.NewMiddleware(ratelimit.DefaultConfig())
	go limiter.Run(context.Background())

	server := app.DefaultApp()
	app.RoutesHealthz(server.R)
	app.RoutesHealthzReady(server.R)

	router.SetupRoutes(server.R, router.Config{
		CompanyHandle: company.NewHandle(companyService),
		UserHandle:    user.NewHandle(userService),
		Resolver:      directory.NewResolver(dir),
		RateLimit:     limiter,
		Audit:         audit.NewMiddleware(audit.NewLogSink(logger)),
	})

	slog.Info(strings.Repeat("=", 60))
	slog.Info("In-memory company API ready")
	slog.Info("Super admin", "username", adminUsername, "token", token)
	slog.Info("  curl -H 'Authorization: Bearer " + token + "' localhost:8080" + router.DefaultPrefix + "/me")
	slog.Info(strings.Repeat("=", 60))

	server.Run()
}

// Package config provides configuration loading and validation for simple-company.
//
// Binaries read their settings with cleanenv into structs built from the types
// in this package. Each struct carries env tags with defaults and a Validate
// method returning ValidationErrors.
//
// # Overview
//
//   - DatabaseConfig: PostgreSQL connection and pool sizing
//   - AWSConfig: region, Cognito user pool, logo bucket, database secret ARN
//   - ServiceConfig: log level and logo upload limits
//   - DatabaseSecret: strict parser for the Secrets Manager credentials document
//
// # Basic Usage
//
//	type Config struct {
//		Database config.DatabaseConfig
//		AWS      config.AWSConfig
//		Service  config.ServiceConfig
//	}
//
//	var cfg Config
//	if err := cleanenv.ReadEnv(&cfg); err != nil {
//		...
//	}
//	err := config.Validate(cfg.Database.Validate, cfg.AWS.Validate, cfg.Service.Validate)
//
// Method values satisfy Validator directly, so the validators compose without
// wrapper closures.
package config

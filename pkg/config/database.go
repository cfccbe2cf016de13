package config

import (
	"fmt"
	"net/url"
	"time"
)

// DatabaseConfig holds PostgreSQL connection and pool settings.
// When SecretARN on AWSConfig is set the credentials below are replaced by
// the values stored in Secrets Manager.
type DatabaseConfig struct {
	Host     string `env:"COMPANY_PG_HOST" env-default:"localhost"`
	Port     uint16 `env:"COMPANY_PG_PORT" env-default:"5432"`
	Database string `env:"COMPANY_PG_DATABASE" env-default:"company_db"`
	User     string `env:"COMPANY_PG_USER" env-default:"company"`
	Password string `env:"COMPANY_PG_PASSWORD" env-default:"pwd"`
	Schema   string `env:"COMPANY_PG_SCHEMA" env-default:"public"`
	SSLMode  string `env:"COMPANY_PG_SSLMODE" env-default:"disable"`

	MaxConns          int32         `env:"COMPANY_PG_MAX_CONNS" env-default:"10"`
	MinConns          int32         `env:"COMPANY_PG_MIN_CONNS" env-default:"1"`
	MaxConnLifetime   time.Duration `env:"COMPANY_PG_MAX_CONN_LIFETIME" env-default:"1h"`
	MaxConnIdleTime   time.Duration `env:"COMPANY_PG_MAX_CONN_IDLE_TIME" env-default:"30m"`
	HealthCheckPeriod time.Duration `env:"COMPANY_PG_HEALTH_CHECK_PERIOD" env-default:"1m"`
}

// ToDatabaseURL converts the config to a PostgreSQL connection URL
func (d DatabaseConfig) ToDatabaseURL() string {
	sslMode := d.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	schema := d.Schema
	if schema == "" {
		schema = "public"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s&search_path=%s,public",
		url.QueryEscape(d.User), url.QueryEscape(d.Password), d.Host, d.Port, d.Database, sslMode, schema)
}

// WithSecret returns a copy of the config using the credentials from s.
// Fields the secret leaves empty keep their configured value.
func (d DatabaseConfig) WithSecret(s DatabaseSecret) DatabaseConfig {
	d.Host = s.Host
	d.User = s.Username
	d.Password = s.Password
	if s.Port != 0 {
		d.Port = s.Port
	}
	if s.DBName != "" {
		d.Database = s.DBName
	}
	return d
}

// Validate checks the settings the pool cannot start without
func (d DatabaseConfig) Validate() ValidationErrors {
	errs := CollectErrors(
		RequireNonEmpty("COMPANY_PG_HOST", d.Host),
		RequireNonEmpty("COMPANY_PG_DATABASE", d.Database),
		RequireNonEmpty("COMPANY_PG_USER", d.User),
		RequirePositive("COMPANY_PG_MAX_CONNS", int(d.MaxConns)),
	)
	if d.MinConns < 0 || d.MinConns > d.MaxConns {
		errs = append(errs, ValidationError{
			Field:   "COMPANY_PG_MIN_CONNS",
			Message: fmt.Sprintf("must be between 0 and %d, got %d", d.MaxConns, d.MinConns),
		})
	}
	return errs
}

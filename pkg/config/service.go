package config

import "time"

// ServiceConfig holds the behavioural knobs of the company services.
type ServiceConfig struct {
	LogLevel          string        `env:"LOG_LEVEL" env-default:"info"`
	LogoUploadTimeout time.Duration `env:"LOGO_UPLOAD_TIMEOUT" env-default:"30s"`
	LogoMaxBytes      int64         `env:"LOGO_MAX_BYTES" env-default:"5242880"`
}

// Validate checks the service settings
func (s ServiceConfig) Validate() ValidationErrors {
	return CollectErrors(
		RequirePositiveDuration("LOGO_UPLOAD_TIMEOUT", s.LogoUploadTimeout),
		RequirePositive("LOGO_MAX_BYTES", int(s.LogoMaxBytes)),
	)
}

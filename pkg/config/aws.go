package config

// AWSConfig holds the AWS settings shared by the API server and the Cognito hooks.
type AWSConfig struct {
	Region      string `env:"AWS_REGION" env-default:"us-east-1"`
	UserPoolID  string `env:"COGNITO_USER_POOL_ID"`
	LogoBucket  string `env:"COMPANY_LOGO_BUCKET"`
	DBSecretARN string `env:"DB_SECRET_ARN"`
	// LogoPublicBaseURL replaces https://{bucket}.s3.amazonaws.com in logo URLs.
	LogoPublicBaseURL string `env:"COMPANY_LOGO_PUBLIC_BASE_URL"`

	// Endpoint overrides every service endpoint, e.g. LocalStack in development.
	Endpoint string `env:"AWS_ENDPOINT_URL"`
	// Static credentials are only used together with Endpoint.
	AccessKeyID     string `env:"AWS_STATIC_ACCESS_KEY_ID"`
	SecretAccessKey string `env:"AWS_STATIC_SECRET_ACCESS_KEY"`
}

// Validate checks the settings required by the API server
func (a AWSConfig) Validate() ValidationErrors {
	return CollectErrors(
		RequireNonEmpty("AWS_REGION", a.Region),
		RequireNonEmpty("COGNITO_USER_POOL_ID", a.UserPoolID),
		RequireNonEmpty("COMPANY_LOGO_BUCKET", a.LogoBucket),
		WhenSet(a.AccessKeyID, func() *ValidationError {
			return RequireNonEmpty("AWS_STATIC_SECRET_ACCESS_KEY", a.SecretAccessKey)
		}),
	)
}

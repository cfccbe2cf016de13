package awsclient

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"

	"github.com/tendant/simple-company/pkg/config"
)

// SecretsAPI is the part of the Secrets Manager client used here.
type SecretsAPI interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// LoadDatabaseSecret fetches and strictly parses the database credentials.
func LoadDatabaseSecret(ctx context.Context, client SecretsAPI, arn string) (config.DatabaseSecret, error) {
	out, err := client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(arn),
	})
	if err != nil {
		return config.DatabaseSecret{}, fmt.Errorf("failed to get secret %s: %w", arn, err)
	}
	if out.SecretString == nil {
		return config.DatabaseSecret{}, fmt.Errorf("secret %s has no string value", arn)
	}
	return config.ParseDatabaseSecret(aws.ToString(out.SecretString))
}

// ResolveDatabaseConfig returns db unchanged when no secret is configured,
// otherwise db with the credentials from the secret.
func ResolveDatabaseConfig(ctx context.Context, client SecretsAPI, arn string, db config.DatabaseConfig) (config.DatabaseConfig, error) {
	if arn == "" {
		return db, nil
	}
	secret, err := LoadDatabaseSecret(ctx, client, arn)
	if err != nil {
		return config.DatabaseConfig{}, err
	}
	return db.WithSecret(secret), nil
}

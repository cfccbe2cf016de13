package config

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// DatabaseSecret is the JSON document stored in Secrets Manager for the
// database credentials. Only host, username and password are required.
type DatabaseSecret struct {
	Host     string `json:"host"`
	Port     uint16 `json:"port,omitempty"`
	Username string `json:"username"`
	Password string `json:"password"`
	DBName   string `json:"dbname,omitempty"`
	Engine   string `json:"engine,omitempty"`

	// Set by RDS-managed rotation; not used.
	DBInstanceIdentifier string `json:"dbInstanceIdentifier,omitempty"`
	DBClusterIdentifier  string `json:"dbClusterIdentifier,omitempty"`
}

// ParseDatabaseSecret decodes a secret string. Unknown fields, malformed JSON
// and missing required fields are all rejected.
func ParseDatabaseSecret(raw string) (DatabaseSecret, error) {
	var s DatabaseSecret
	if raw == "" {
		return s, fmt.Errorf("database secret is empty")
	}

	dec := json.NewDecoder(bytes.NewReader([]byte(raw)))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&s); err != nil {
		return DatabaseSecret{}, fmt.Errorf("failed to decode database secret: %w", err)
	}
	if dec.More() {
		return DatabaseSecret{}, fmt.Errorf("failed to decode database secret: trailing data")
	}

	errs := CollectErrors(
		RequireNonEmpty("host", s.Host),
		RequireNonEmpty("username", s.Username),
		RequireNonEmpty("password", s.Password),
	)
	if len(errs) > 0 {
		return DatabaseSecret{}, fmt.Errorf("invalid database secret: %w", errs)
	}
	return s, nil
}

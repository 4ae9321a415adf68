package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
)

// databaseURL returns DATABASE_URL, or a Unix socket DSN for a Cloud SQL
// instance mounted at /cloudsql/<INSTANCE_CONNECTION_NAME>. An empty result
// with a nil error means no database is configured.
func databaseURL() (string, error) {
	if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
		return dsn, nil
	}
	instance := os.Getenv("INSTANCE_CONNECTION_NAME")
	if instance == "" {
		return "", nil
	}
	user, name := os.Getenv("DB_USER"), os.Getenv("DB_NAME")
	if user == "" || name == "" {
		return "", fmt.Errorf("invalid INSTANCE_CONNECTION_NAME: DB_USER and DB_NAME must be set")
	}

	parts := []string{
		"host=/cloudsql/" + instance,
		"user=" + user,
	}
	// IAM authentication has no password.
	if pass := os.Getenv("DB_PASSWORD"); pass != "" {
		parts = append(parts, "password="+pass)
	}
	parts = append(parts, "dbname="+name, "sslmode=disable")
	return strings.Join(parts, " "), nil
}

// RedactURL hides the password of a connection string for logging.
func RedactURL(dsn string) string {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		if u, err := url.Parse(dsn); err == nil {
			return u.Redacted()
		}
		return "postgres://***"
	}
	fields := strings.Fields(dsn)
	for i, f := range fields {
		if strings.HasPrefix(f, "password=") {
			fields[i] = "password=xxxxx"
		}
	}
	return strings.Join(fields, " ")
}

package config

import (
	"strings"
	"testing"
)

func TestDatabaseURL(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		want    string
		wantErr bool
	}{
		{"none", nil, "", false},
		{"direct", map[string]string{"DATABASE_URL": "postgres://u:p@localhost/db"}, "postgres://u:p@localhost/db", false},
		{
			"cloud sql with password",
			map[string]string{"INSTANCE_CONNECTION_NAME": "proj:eu:db", "DB_USER": "app", "DB_PASSWORD": "pw", "DB_NAME": "datagate"},
			"host=/cloudsql/proj:eu:db user=app password=pw dbname=datagate sslmode=disable",
			false,
		},
		{
			"cloud sql iam",
			map[string]string{"INSTANCE_CONNECTION_NAME": "proj:eu:db", "DB_USER": "app", "DB_NAME": "datagate"},
			"host=/cloudsql/proj:eu:db user=app dbname=datagate sslmode=disable",
			false,
		},
		{"cloud sql missing user", map[string]string{"INSTANCE_CONNECTION_NAME": "proj:eu:db"}, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, key := range []string{"DATABASE_URL", "INSTANCE_CONNECTION_NAME", "DB_USER", "DB_PASSWORD", "DB_NAME"} {
				t.Setenv(key, tt.env[key])
			}
			got, err := databaseURL()
			if (err != nil) != tt.wantErr {
				t.Fatalf("databaseURL() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("databaseURL() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRedactURL(t *testing.T) {
	tests := []struct {
		in       string
		mustHide string
		keep     string
	}{
		{"postgres://app:secret@db:5432/datagate", "secret", "db:5432/datagate"},
		{"host=/cloudsql/x user=app password=secret dbname=d", "secret", "user=app"},
		{"postgres://db/datagate", "", "postgres://db/datagate"},
	}
	for _, tt := range tests {
		got := RedactURL(tt.in)
		if tt.mustHide != "" && strings.Contains(got, tt.mustHide) {
			t.Errorf("RedactURL(%q) = %q leaks password", tt.in, got)
		}
		if !strings.Contains(got, tt.keep) {
			t.Errorf("RedactURL(%q) = %q, want it to keep %q", tt.in, got, tt.keep)
		}
	}
}

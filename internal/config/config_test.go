package config

import (
	"os"
	"testing"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("INITIAL_ADMIN_PASSWORD", "secret")
	t.Setenv("INITIAL_ADMIN_EMAIL", "admin@example.com")
	t.Setenv("JWT_SECRET", "jwt-secret")
	t.Setenv("DATABASE_DSN", "postgres://localhost/test")
}

func TestLoadConfigDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Storage.Driver != StorageDriverPostgres {
		t.Errorf("storage driver = %q", cfg.Storage.Driver)
	}
	if cfg.Identity.UniquenessScope != UniquenessScopeCompany {
		t.Errorf("uniqueness scope = %q", cfg.Identity.UniquenessScope)
	}
	if cfg.JWT.Expiration != 86400 {
		t.Errorf("jwt expiration = %d", cfg.JWT.Expiration)
	}
	if cfg.Pagination.DefaultLimit != 50 || cfg.Pagination.MaxLimit != 200 {
		t.Errorf("pagination = %+v", cfg.Pagination)
	}
}

func TestLoadConfigMissingRequired(t *testing.T) {
	t.Setenv("INITIAL_ADMIN_EMAIL", "admin@example.com")
	t.Setenv("JWT_SECRET", "jwt-secret")
	t.Setenv("INITIAL_ADMIN_PASSWORD", "")
	os.Unsetenv("INITIAL_ADMIN_PASSWORD")

	if _, err := LoadConfig(); err == nil {
		t.Fatal("expected error when INITIAL_ADMIN_PASSWORD is missing")
	}
}

func TestLoadConfigRejectsUnknownValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{name: "storage driver", key: "STORAGE_DRIVER", value: "sqlite"},
		{name: "uniqueness scope", key: "IDENTITY_UNIQUENESS_SCOPE", value: "tenant"},
		{name: "pagination", key: "PAGINATION_MAX_LIMIT", value: "10"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequired(t)
			t.Setenv(tt.key, tt.value)
			if _, err := LoadConfig(); err == nil {
				t.Fatalf("expected error for %s=%s", tt.key, tt.value)
			}
		})
	}
}

func TestMemoryDriverDoesNotNeedDSN(t *testing.T) {
	t.Setenv("INITIAL_ADMIN_PASSWORD", "secret")
	t.Setenv("INITIAL_ADMIN_EMAIL", "admin@example.com")
	t.Setenv("JWT_SECRET", "jwt-secret")
	t.Setenv("DATABASE_DSN", "")
	t.Setenv("STORAGE_DRIVER", "memory")

	if _, err := LoadConfig(); err != nil {
		t.Fatalf("load config: %v", err)
	}
}

package config

import (
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.JWTTTL != 7*24*time.Hour {
		t.Fatalf("expected 7d token ttl, got %v", cfg.JWTTTL)
	}
	if cfg.JWTRememberTTL != 30*24*time.Hour {
		t.Fatalf("expected 30d remember ttl, got %v", cfg.JWTRememberTTL)
	}
	if cfg.BcryptCost != 12 {
		t.Fatalf("expected bcrypt cost 12, got %d", cfg.BcryptCost)
	}
	if cfg.LockoutMaxAttempts != 5 || cfg.LockoutDuration != 2*time.Hour {
		t.Fatalf("unexpected lockout defaults: %d %v", cfg.LockoutMaxAttempts, cfg.LockoutDuration)
	}
	if cfg.StoreBackend != BackendMongo {
		t.Fatalf("expected mongo backend by default, got %q", cfg.StoreBackend)
	}
	if cfg.IsDevelopment() {
		t.Fatalf("default env must not be development")
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("STORE_BACKEND", BackendPostgres)
	t.Setenv("ALLOWED_ORIGINS", "https://a.example,https://b.example")
	t.Setenv("APP_ENV", "development")
	t.Setenv("LOCKOUT_DURATION", "30m")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.StoreBackend != BackendPostgres {
		t.Fatalf("expected postgres backend, got %q", cfg.StoreBackend)
	}
	if len(cfg.AllowedOrigins) != 2 || cfg.AllowedOrigins[1] != "https://b.example" {
		t.Fatalf("unexpected origins: %v", cfg.AllowedOrigins)
	}
	if !cfg.IsDevelopment() {
		t.Fatalf("expected development mode")
	}
	if cfg.LockoutDuration != 30*time.Minute {
		t.Fatalf("expected 30m lockout, got %v", cfg.LockoutDuration)
	}
}

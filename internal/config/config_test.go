package config

import (
	"log/slog"
	"slices"
	"testing"
	"time"
)

// clearEnv は読み込み対象の環境変数を空にする。
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"PORT", "DATABASE_DSN", "JWT_SECRET", "TOKEN_TTL", "BCRYPT_COST", "LOG_LEVEL",
		"USERS_SERVICE_URL", "ORDERS_SERVICE_URL", "UPSTREAM_TIMEOUT", "CORS_ALLOWED_ORIGINS",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadUsers_DefaultValues(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadUsers()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cfg.Port != "3001" {
		t.Errorf("Port = %q, want %q", cfg.Port, "3001")
	}
	if cfg.DatabaseDSN != ":memory:" {
		t.Errorf("DatabaseDSN = %q, want %q", cfg.DatabaseDSN, ":memory:")
	}
	if cfg.JWTSecret != DefaultJWTSecret {
		t.Errorf("JWTSecret = %q, want %q", cfg.JWTSecret, DefaultJWTSecret)
	}
	if cfg.TokenTTL != 24*time.Hour {
		t.Errorf("TokenTTL = %v, want %v", cfg.TokenTTL, 24*time.Hour)
	}
	if cfg.BcryptCost != 10 {
		t.Errorf("BcryptCost = %d, want %d", cfg.BcryptCost, 10)
	}
	if cfg.LogLevel != slog.LevelInfo {
		t.Errorf("LogLevel = %v, want %v", cfg.LogLevel, slog.LevelInfo)
	}
}

func TestLoadUsers_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "4001")
	t.Setenv("JWT_SECRET", "prod-secret")
	t.Setenv("TOKEN_TTL", "1h")
	t.Setenv("BCRYPT_COST", "12")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := LoadUsers()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cfg.Port != "4001" {
		t.Errorf("Port = %q, want %q", cfg.Port, "4001")
	}
	if cfg.JWTSecret != "prod-secret" {
		t.Errorf("JWTSecret = %q, want %q", cfg.JWTSecret, "prod-secret")
	}
	if cfg.TokenTTL != time.Hour {
		t.Errorf("TokenTTL = %v, want %v", cfg.TokenTTL, time.Hour)
	}
	if cfg.BcryptCost != 12 {
		t.Errorf("BcryptCost = %d, want %d", cfg.BcryptCost, 12)
	}
	if cfg.LogLevel != slog.LevelDebug {
		t.Errorf("LogLevel = %v, want %v", cfg.LogLevel, slog.LevelDebug)
	}
}

func TestLoadUsers_InvalidValues_ReturnsError(t *testing.T) {
	tests := map[string]string{
		"TOKEN_TTL":   "forever",
		"BCRYPT_COST": "ten",
	}
	for key, value := range tests {
		t.Run(key, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(key, value)

			if _, err := LoadUsers(); err == nil {
				t.Fatalf("expected error for %s=%q, got nil", key, value)
			}
		})
	}

	t.Run("TOKEN_TTL negative", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("TOKEN_TTL", "-1h")

		if _, err := LoadUsers(); err == nil {
			t.Fatal("expected error for negative TOKEN_TTL, got nil")
		}
	})
}

func TestLoadOrders_DefaultValues(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadOrders()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cfg.Port != "3002" {
		t.Errorf("Port = %q, want %q", cfg.Port, "3002")
	}
	if cfg.DatabaseDSN != ":memory:" {
		t.Errorf("DatabaseDSN = %q, want %q", cfg.DatabaseDSN, ":memory:")
	}
	if cfg.JWTSecret != DefaultJWTSecret {
		t.Errorf("JWTSecret = %q, want %q", cfg.JWTSecret, DefaultJWTSecret)
	}
}

func TestLoadGateway_DefaultValues(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadGateway()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cfg.Port != "8085" {
		t.Errorf("Port = %q, want %q", cfg.Port, "8085")
	}
	if cfg.UsersServiceURL != "http://localhost:3001" {
		t.Errorf("UsersServiceURL = %q", cfg.UsersServiceURL)
	}
	if cfg.OrdersServiceURL != "http://localhost:3002" {
		t.Errorf("OrdersServiceURL = %q", cfg.OrdersServiceURL)
	}
	if cfg.UpstreamTimeout != 10*time.Second {
		t.Errorf("UpstreamTimeout = %v, want %v", cfg.UpstreamTimeout, 10*time.Second)
	}
	if !slices.Equal(cfg.CORSAllowedOrigins, []string{"http://localhost:3000"}) {
		t.Errorf("CORSAllowedOrigins = %v", cfg.CORSAllowedOrigins)
	}
}

func TestLoadGateway_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("USERS_SERVICE_URL", "http://users:3001/")
	t.Setenv("UPSTREAM_TIMEOUT", "2s")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example.com, ,https://b.example.com")

	cfg, err := LoadGateway()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cfg.UsersServiceURL != "http://users:3001" {
		t.Errorf("UsersServiceURL = %q, want trailing slash trimmed", cfg.UsersServiceURL)
	}
	if cfg.UpstreamTimeout != 2*time.Second {
		t.Errorf("UpstreamTimeout = %v, want %v", cfg.UpstreamTimeout, 2*time.Second)
	}
	want := []string{"https://a.example.com", "https://b.example.com"}
	if !slices.Equal(cfg.CORSAllowedOrigins, want) {
		t.Errorf("CORSAllowedOrigins = %v, want %v", cfg.CORSAllowedOrigins, want)
	}
}

func TestLoadGateway_InvalidTimeout_ReturnsError(t *testing.T) {
	clearEnv(t)
	t.Setenv("UPSTREAM_TIMEOUT", "soon")

	if _, err := LoadGateway(); err == nil {
		t.Fatal("expected error, got nil")
	}
}

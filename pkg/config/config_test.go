package config

import (
	"os"
	"testing"
	"time"
)

func TestLoad_Success(t *testing.T) {
	setMinimalEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned unexpected error: %v", err)
	}

	if cfg.App.Env != "prod" {
		t.Fatalf("expected App.Env to be prod, got %q", cfg.App.Env)
	}
	if !cfg.App.IsProd() {
		t.Fatalf("expected IsProd for env %q", cfg.App.Env)
	}

	if cfg.Upstream.BaseURL != "https://shop.example.com/api" {
		t.Fatalf("unexpected upstream base url %q", cfg.Upstream.BaseURL)
	}
	if cfg.Upstream.Timeout != 10*time.Second {
		t.Fatalf("expected default upstream timeout 10s, got %v", cfg.Upstream.Timeout)
	}

	if cfg.Broadcast.DebounceWindow != 200*time.Millisecond {
		t.Fatalf("expected default debounce 200ms, got %v", cfg.Broadcast.DebounceWindow)
	}

	if cfg.Snapshot.Backend != "sqlite" {
		t.Fatalf("expected default sqlite backend, got %q", cfg.Snapshot.Backend)
	}
}

func TestAppConfig_EnvChecks(t *testing.T) {
	cases := []struct {
		env  string
		dev  bool
		prod bool
	}{
		{"dev", true, false},
		{"DEV", true, false},
		{"prod", false, true},
		{"Prod", false, true},
		{"staging", false, false},
	}
	for _, tc := range cases {
		app := AppConfig{Env: tc.env}
		if got := app.IsDev(); got != tc.dev {
			t.Fatalf("IsDev(%q) = %v, want %v", tc.env, got, tc.dev)
		}
		if got := app.IsProd(); got != tc.prod {
			t.Fatalf("IsProd(%q) = %v, want %v", tc.env, got, tc.prod)
		}
	}
}

func TestLoad_MissingRequired(t *testing.T) {
	setMinimalEnv(t)
	if err := os.Unsetenv("CARTSYNC_UPSTREAM_BASE_URL"); err != nil {
		t.Fatalf("failed to unset upstream base url: %v", err)
	}

	if _, err := Load(); err == nil {
		t.Fatal("expected missing required env to return an error")
	}
}

func TestLoad_InvalidSnapshotBackend(t *testing.T) {
	setMinimalEnv(t)
	t.Setenv("CARTSYNC_SNAPSHOT_BACKEND", "flatfile")

	if _, err := Load(); err == nil {
		t.Fatal("expected invalid snapshot backend to return an error")
	}
}

func setMinimalEnv(t *testing.T) {
	t.Helper()

	t.Setenv("CARTSYNC_APP_ENV", "prod")
	t.Setenv("CARTSYNC_UPSTREAM_BASE_URL", "https://shop.example.com/api")
}

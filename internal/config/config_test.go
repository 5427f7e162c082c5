package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cfg, err := Load(New(), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.BaseURL != DefaultBaseURL {
		t.Errorf("expected default base URL, got %s", cfg.BaseURL)
	}
	if cfg.SubmitPath != "/transform-pet" {
		t.Errorf("unexpected submit path: %s", cfg.SubmitPath)
	}
	if cfg.CounterDefault != 2847 {
		t.Errorf("expected counter default 2847, got %d", cfg.CounterDefault)
	}
	if cfg.HTTPTimeout != DefaultHTTPTimeout {
		t.Errorf("expected timeout %s, got %s", DefaultHTTPTimeout, cfg.HTTPTimeout)
	}
	if cfg.Variant != "contribute" || cfg.Theme != "classic" {
		t.Errorf("unexpected variant/theme: %s/%s", cfg.Variant, cfg.Theme)
	}
}

func TestLoad_EnvOverridesDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("SMARTDOG_BASE_URL", "http://localhost:9999")
	t.Setenv("SMARTDOG_THEME", "midnight")
	t.Setenv("SMARTDOG_HTTP_TIMEOUT", "45s")

	cfg, err := Load(New(), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.BaseURL != "http://localhost:9999" {
		t.Errorf("expected env base URL, got %s", cfg.BaseURL)
	}
	if cfg.Theme != "midnight" {
		t.Errorf("expected env theme, got %s", cfg.Theme)
	}
	if cfg.HTTPTimeout != 45*time.Second {
		t.Errorf("expected 45s timeout, got %s", cfg.HTTPTimeout)
	}
}

func TestLoad_File(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "smartdog.yaml")
	content := "base_url: https://staging.example.com\nvariant: transform\ncounter_default: 10\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(New(), path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.BaseURL != "https://staging.example.com" {
		t.Errorf("unexpected base URL: %s", cfg.BaseURL)
	}
	if cfg.Variant != "transform" {
		t.Errorf("unexpected variant: %s", cfg.Variant)
	}
	if cfg.CounterDefault != 10 {
		t.Errorf("unexpected counter default: %d", cfg.CounterDefault)
	}
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	if _, err := Load(New(), filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"ok", Config{BaseURL: "https://x.test"}, false},
		{"empty base url", Config{}, true},
		{"bad scheme", Config{BaseURL: "ftp://x.test"}, true},
		{"negative timeout", Config{BaseURL: "https://x.test", HTTPTimeout: -time.Second}, true},
		{"negative counter", Config{BaseURL: "https://x.test", CounterDefault: -1}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

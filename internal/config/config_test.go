package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	os.WriteFile(path, []byte(`
source: firefox
profile: default-release
fetch: true
request_timeout: 2s
`), 0644)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Source != SourceFirefox || cfg.Profile != "default-release" || !cfg.Fetch {
		t.Errorf("got %+v", cfg)
	}
	if time.Duration(cfg.RequestTimeout) != 2*time.Second {
		t.Errorf("RequestTimeout = %v", time.Duration(cfg.RequestTimeout))
	}
	// Untouched keys keep their defaults.
	if cfg.Port != 19191 {
		t.Errorf("Port = %d, want default", cfg.Port)
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing explicit config file")
	}
}

func TestLoadBadDuration(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	os.WriteFile(path, []byte("request_timeout: soon\n"), 0644)
	if _, err := Load(path); err == nil {
		t.Error("expected error for invalid duration")
	}
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"TABPREVIEW_SOURCE":  "cdp",
		"TABPREVIEW_PORT":    "20000",
		"TABPREVIEW_CDP_URL": "http://127.0.0.1:9333",
	}
	cfg := Default()
	if err := cfg.applyEnv(func(k string) string { return env[k] }); err != nil {
		t.Fatal(err)
	}
	if cfg.Source != SourceCDP || cfg.Port != 20000 || cfg.CDPURL != "http://127.0.0.1:9333" {
		t.Errorf("got %+v", cfg)
	}

	env["TABPREVIEW_PORT"] = "abc"
	if err := cfg.applyEnv(func(k string) string { return env[k] }); err == nil {
		t.Error("expected error for non-numeric port")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(c *Config) {}, false},
		{"unknown source", func(c *Config) { c.Source = "safari" }, true},
		{"port zero", func(c *Config) { c.Port = 0 }, true},
		{"port too high", func(c *Config) { c.Port = 70000 }, true},
		{"cdp without url", func(c *Config) { c.Source = SourceCDP; c.CDPURL = "" }, true},
		{"zero timeout", func(c *Config) { c.RequestTimeout = 0 }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			if err := cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

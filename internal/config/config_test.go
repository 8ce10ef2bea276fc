package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestApplyDefaults(t *testing.T) {
	t.Run("empty config gets working defaults", func(t *testing.T) {
		var cfg Config
		cfg.ApplyDefaults()

		if cfg.DataRoot != "data" {
			t.Errorf("DataRoot = %q", cfg.DataRoot)
		}
		if len(cfg.Source.BaseURLs) != 2 {
			t.Errorf("BaseURLs = %v", cfg.Source.BaseURLs)
		}
		if cfg.Source.PerPage != 50 || cfg.Source.MaxPages != 5 {
			t.Errorf("paging = %d/%d", cfg.Source.PerPage, cfg.Source.MaxPages)
		}
		if cfg.Source.RetryAttempts != 3 || cfg.Source.RetryDelay != time.Second {
			t.Errorf("retry = %d/%v", cfg.Source.RetryAttempts, cfg.Source.RetryDelay)
		}
		if cfg.Rules.MinRows != 50 || cfg.Rules.MaxWebsiteNullRatio != 0.2 || cfg.Rules.MinStates != 5 {
			t.Errorf("rules = %+v", cfg.Rules)
		}
		if cfg.SMTP.Port != 587 {
			t.Errorf("smtp port = %d", cfg.SMTP.Port)
		}
	})

	t.Run("set values are kept", func(t *testing.T) {
		cfg := Config{DataRoot: "/srv/data", Rules: RulesConfig{MinRows: 10}}
		cfg.ApplyDefaults()
		if cfg.DataRoot != "/srv/data" || cfg.Rules.MinRows != 10 {
			t.Errorf("cfg = %+v", cfg)
		}
	})
}

func TestLoad(t *testing.T) {
	t.Run("explicit config file", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "config.yml")
		yaml := "data_root: /tmp/medallion\nrules:\n  min_rows: 25\nalert:\n  recipients:\n    - ops@example.com\n"
		if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
			t.Fatal(err)
		}

		cfg, err := Load(path)
		if err != nil {
			t.Fatalf("Load: %v", err)
		}
		if cfg.DataRoot != "/tmp/medallion" {
			t.Errorf("DataRoot = %q", cfg.DataRoot)
		}
		if cfg.Rules.MinRows != 25 {
			t.Errorf("MinRows = %d", cfg.Rules.MinRows)
		}
		if len(cfg.Alert.Recipients) != 1 {
			t.Errorf("Recipients = %v", cfg.Alert.Recipients)
		}
		// defaults still fill the gaps
		if cfg.Source.PerPage != 50 {
			t.Errorf("PerPage = %d", cfg.Source.PerPage)
		}
	})

	t.Run("missing config file is fine", func(t *testing.T) {
		cfg, err := Load("")
		if err != nil {
			t.Fatalf("Load: %v", err)
		}
		if cfg.DataRoot == "" {
			t.Error("defaults not applied")
		}
	})

	t.Run("nonexistent explicit file is an error", func(t *testing.T) {
		if _, err := Load(filepath.Join(t.TempDir(), "nope.yml")); err == nil {
			t.Error("expected error")
		}
	})
}

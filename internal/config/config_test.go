package config

import (
	"testing"
	"time"
)

func TestLoadEnvOnlyDefaults(t *testing.T) {
	cfg, err := Load("does-not-exist.yaml", true)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.HTTPAddr != ":8080" {
		t.Fatalf("http_addr = %q", cfg.Server.HTTPAddr)
	}
	if cfg.Ingest.PollInterval != 60*time.Second {
		t.Fatalf("poll_interval = %v", cfg.Ingest.PollInterval)
	}
	if cfg.Ingest.ReferenceRefresh != "@every 6h" {
		t.Fatalf("reference_refresh = %q", cfg.Ingest.ReferenceRefresh)
	}
	if cfg.Feeds.FetchTimeout != 60*time.Second {
		t.Fatalf("fetch_timeout = %v", cfg.Feeds.FetchTimeout)
	}
	if cfg.Feeds.MeasurementURL == "" || cfg.Feeds.TrafficSpeedURL == "" || cfg.Feeds.TravelTimeURL == "" {
		t.Fatalf("feed urls not defaulted: %#v", cfg.Feeds)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("SW_INGEST_POLL_INTERVAL", "30s")
	cfg, err := Load("does-not-exist.yaml", true)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Ingest.PollInterval != 30*time.Second {
		t.Fatalf("poll_interval = %v, want 30s", cfg.Ingest.PollInterval)
	}
}

package config

import (
	"testing"
	"time"
)

func TestGetDefaultConfig(t *testing.T) {
	config := GetDefaultConfig()

	if config.Server.Host != "0.0.0.0" {
		t.Errorf("expected host 0.0.0.0, got %s", config.Server.Host)
	}
	if config.Server.Port != 8080 {
		t.Errorf("expected port 8080, got %d", config.Server.Port)
	}
	if config.Database.Port != 5432 {
		t.Errorf("expected database port 5432, got %d", config.Database.Port)
	}
	if config.Database.Name != "agrolink" {
		t.Errorf("expected database name agrolink, got %s", config.Database.Name)
	}
	if config.JWT.ExpiresIn != 24*time.Hour {
		t.Errorf("expected jwt expiry 24h, got %v", config.JWT.ExpiresIn)
	}
	if config.Log.Level != "info" {
		t.Errorf("expected log level info, got %s", config.Log.Level)
	}
	if config.Log.Format != "json" {
		t.Errorf("expected log format json, got %s", config.Log.Format)
	}
	if !config.Monitoring.Enabled {
		t.Error("expected monitoring enabled by default")
	}
	if config.Monitoring.MetricsPath != "/metrics" {
		t.Errorf("expected metrics path /metrics, got %s", config.Monitoring.MetricsPath)
	}
	if config.Monitoring.Tracing.Enabled {
		t.Error("expected tracing disabled by default")
	}
	if config.Monitoring.Tracing.SampleRatio != 0.1 {
		t.Errorf("expected sample ratio 0.1, got %f", config.Monitoring.Tracing.SampleRatio)
	}
	if !config.Security.CORS.Enabled {
		t.Error("expected CORS enabled by default")
	}
	if config.Automation.SeedFile != "seed/rules.yaml" {
		t.Errorf("expected seed file seed/rules.yaml, got %s", config.Automation.SeedFile)
	}
	if config.Automation.SeedOnStartup {
		t.Error("expected seed on startup disabled by default")
	}
}

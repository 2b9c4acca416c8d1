package config

import (
	"os"
	"path/filepath"
	"testing"
)

const configSchemaPath = "../../schemas/config.schema.json"

func writeTempConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("writing temp config: %v", err)
	}
	return path
}

const validConfigBody = `{
  "log_level": "debug",
  "healthcheck_port": 9090,
  "bus": {"host": "broker", "port": 1883, "insecure": true},
  "scenes": {"source": "file", "file_path": "scenes.json"},
  "schema_validation": true
}`

func TestLoadValidConfig(t *testing.T) {
	path := writeTempConfig(t, validConfigBody)
	cfg, err := Load(path, configSchemaPath)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want debug", cfg.LogLevel)
	}
	if cfg.HealthcheckPort != 9090 {
		t.Errorf("HealthcheckPort = %d, want 9090", cfg.HealthcheckPort)
	}
	if cfg.Bus.Host != "broker" || cfg.Bus.Port != 1883 {
		t.Errorf("Bus = %+v", cfg.Bus)
	}
	if cfg.Scenes.Source != ScenesSourceFile || cfg.Scenes.FilePath != "scenes.json" {
		t.Errorf("Scenes = %+v", cfg.Scenes)
	}
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeTempConfig(t, `{"bus": {"host": "broker", "port": 1883}, "scenes": {"source": "file", "file_path": "scenes.json"}}`)
	cfg, err := Load(path, configSchemaPath)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.LogLevel != defaultLogLevel {
		t.Errorf("LogLevel = %q, want default %q", cfg.LogLevel, defaultLogLevel)
	}
	if cfg.HealthcheckPort != defaultHealthcheckPort {
		t.Errorf("HealthcheckPort = %d, want default %d", cfg.HealthcheckPort, defaultHealthcheckPort)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/config.json", configSchemaPath); err == nil {
		t.Error("expected error for missing config file")
	}
}

func TestLoadFailsSchemaValidationOnMissingRequiredField(t *testing.T) {
	path := writeTempConfig(t, `{"scenes": {"source": "file", "file_path": "x"}}`)
	if _, err := Load(path, configSchemaPath); err == nil {
		t.Error("expected schema validation failure for missing bus block")
	}
}

func TestLoadFailsSchemaValidationWhenFileSourceMissingPath(t *testing.T) {
	path := writeTempConfig(t, `{"bus": {"host": "b", "port": 1883}, "scenes": {"source": "file"}}`)
	if _, err := Load(path, configSchemaPath); err == nil {
		t.Error("expected schema validation failure when source=file lacks file_path")
	}
}

func TestEnvOverridesApply(t *testing.T) {
	path := writeTempConfig(t, validConfigBody)

	t.Setenv("TRACKER_LOG_LEVEL", "error")
	t.Setenv("TRACKER_HEALTHCHECK_PORT", "8443")
	t.Setenv("TRACKER_BUS_HOST", "overridden-host")

	cfg, err := Load(path, configSchemaPath)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.LogLevel != "error" {
		t.Errorf("LogLevel = %q, want error", cfg.LogLevel)
	}
	if cfg.HealthcheckPort != 8443 {
		t.Errorf("HealthcheckPort = %d, want 8443", cfg.HealthcheckPort)
	}
	if cfg.Bus.Host != "overridden-host" {
		t.Errorf("Bus.Host = %q, want overridden-host", cfg.Bus.Host)
	}
}

func TestEmptyEnvOverrideTreatedAsUnset(t *testing.T) {
	path := writeTempConfig(t, validConfigBody)
	t.Setenv("TRACKER_LOG_LEVEL", "")

	cfg, err := Load(path, configSchemaPath)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("expected empty env var to be treated as unset, got LogLevel = %q", cfg.LogLevel)
	}
}

func TestEnvOverrideInvalidLogLevelErrors(t *testing.T) {
	path := writeTempConfig(t, validConfigBody)
	t.Setenv("TRACKER_LOG_LEVEL", "verbose")

	if _, err := Load(path, configSchemaPath); err == nil {
		t.Error("expected error for invalid TRACKER_LOG_LEVEL override")
	}
}

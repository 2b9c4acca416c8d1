// Package config loads the service's JSON configuration file, validates it
// against a JSON Schema, and layers TRACKER_-prefixed environment variable
// overrides on top, per SPEC_FULL.md §4.8/§6.
package config

import (
	"encoding/json"
	"os"
	"strconv"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/scenescape/tracker/internal/errs"
)

// BusTLS is the optional mutual-TLS material for the bus connection.
type BusTLS struct {
	CACertPath     string `json:"ca_cert_path"`
	ClientCertPath string `json:"client_cert_path"`
	ClientKeyPath  string `json:"client_key_path"`
	VerifyServer   bool   `json:"verify_server"`
}

// BusConfig describes how to reach the message bus.
type BusConfig struct {
	Host     string  `json:"host"`
	Port     int     `json:"port"`
	Insecure bool    `json:"insecure"`
	TLS      *BusTLS `json:"tls,omitempty"`
}

// ScenesSource is the scene-configuration source type.
type ScenesSource string

const (
	ScenesSourceFile ScenesSource = "file"
	ScenesSourceAPI  ScenesSource = "api"
)

// ScenesConfig describes where to load scene/camera calibration from.
type ScenesConfig struct {
	Source   ScenesSource `json:"source"`
	FilePath string       `json:"file_path"`
}

// ServiceConfig is the fully-resolved (file + env-override) runtime
// configuration.
type ServiceConfig struct {
	LogLevel         string       `json:"log_level"`
	HealthcheckPort  int          `json:"healthcheck_port"`
	Bus              BusConfig    `json:"bus"`
	Scenes           ScenesConfig `json:"scenes"`
	SchemaValidation bool         `json:"schema_validation"`
}

const (
	defaultLogLevel        = "info"
	defaultHealthcheckPort = 8080
	minPort                = 1024
	maxPort                = 65535
)

var validLogLevels = map[string]bool{
	"trace": true, "debug": true, "info": true, "warning": true, "warn": true, "error": true,
}

// Load reads configPath, validates it against the schema at schemaPath,
// decodes it, fills documented defaults, and applies TRACKER_* environment
// overrides.
func Load(configPath, schemaPath string) (ServiceConfig, error) {
	raw, err := os.ReadFile(configPath)
	if err != nil {
		return ServiceConfig{}, errs.NewConfigError("reading config file", err)
	}

	compiler := jsonschema.NewCompiler()
	schema, err := compiler.Compile(schemaPath)
	if err != nil {
		return ServiceConfig{}, errs.NewConfigError("compiling config schema", err)
	}

	var doc interface{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return ServiceConfig{}, errs.NewConfigError("parsing config JSON", err)
	}
	if err := schema.Validate(doc); err != nil {
		return ServiceConfig{}, errs.NewConfigError("config failed schema validation", err)
	}

	cfg := ServiceConfig{
		LogLevel:        defaultLogLevel,
		HealthcheckPort: defaultHealthcheckPort,
		Scenes:          ScenesConfig{Source: ScenesSourceFile},
	}
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return ServiceConfig{}, errs.NewConfigError("decoding config JSON", err)
	}

	if err := applyEnvOverrides(&cfg); err != nil {
		return ServiceConfig{}, err
	}

	return cfg, nil
}

func applyEnvOverrides(cfg *ServiceConfig) error {
	if v, ok := lookupNonEmpty("TRACKER_LOG_LEVEL"); ok {
		level, err := parseLogLevel(v)
		if err != nil {
			return err
		}
		cfg.LogLevel = level
	}
	if v, ok := lookupNonEmpty("TRACKER_HEALTHCHECK_PORT"); ok {
		port, err := parsePort(v, "TRACKER_HEALTHCHECK_PORT")
		if err != nil {
			return err
		}
		cfg.HealthcheckPort = port
	}
	if v, ok := lookupNonEmpty("TRACKER_BUS_HOST"); ok {
		cfg.Bus.Host = v
	}
	if v, ok := lookupNonEmpty("TRACKER_BUS_PORT"); ok {
		port, err := parsePort(v, "TRACKER_BUS_PORT")
		if err != nil {
			return err
		}
		cfg.Bus.Port = port
	}
	if v, ok := lookupNonEmpty("TRACKER_BUS_INSECURE"); ok {
		b, err := parseBool(v, "TRACKER_BUS_INSECURE")
		if err != nil {
			return err
		}
		cfg.Bus.Insecure = b
	}
	if v, ok := lookupNonEmpty("TRACKER_BUS_TLS_CA"); ok {
		ensureTLS(cfg).CACertPath = v
	}
	if v, ok := lookupNonEmpty("TRACKER_BUS_TLS_CERT"); ok {
		ensureTLS(cfg).ClientCertPath = v
	}
	if v, ok := lookupNonEmpty("TRACKER_BUS_TLS_KEY"); ok {
		ensureTLS(cfg).ClientKeyPath = v
	}
	if v, ok := lookupNonEmpty("TRACKER_BUS_TLS_VERIFY"); ok {
		b, err := parseBool(v, "TRACKER_BUS_TLS_VERIFY")
		if err != nil {
			return err
		}
		ensureTLS(cfg).VerifyServer = b
	}
	if v, ok := lookupNonEmpty("TRACKER_SCENES_SOURCE"); ok {
		source, err := parseScenesSource(v)
		if err != nil {
			return err
		}
		cfg.Scenes.Source = source
	}
	if v, ok := lookupNonEmpty("TRACKER_SCENES_FILE_PATH"); ok {
		cfg.Scenes.FilePath = v
	}
	if v, ok := lookupNonEmpty("TRACKER_SCHEMA_VALIDATION"); ok {
		b, err := parseBool(v, "TRACKER_SCHEMA_VALIDATION")
		if err != nil {
			return err
		}
		cfg.SchemaValidation = b
	}
	return nil
}

func ensureTLS(cfg *ServiceConfig) *BusTLS {
	if cfg.Bus.TLS == nil {
		cfg.Bus.TLS = &BusTLS{}
	}
	return cfg.Bus.TLS
}

// lookupNonEmpty returns an environment variable's value, treating an
// empty value the same as unset (matching spec.md §6's "empty values
// treated as unset").
func lookupNonEmpty(name string) (string, bool) {
	v, ok := os.LookupEnv(name)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

func parseLogLevel(level string) (string, error) {
	if !validLogLevels[level] {
		return "", errs.NewConfigError("invalid TRACKER_LOG_LEVEL "+strconv.Quote(level)+" (must be trace|debug|info|warning|warn|error)", nil)
	}
	return level, nil
}

func parsePort(s, source string) (int, error) {
	port, err := strconv.Atoi(s)
	if err != nil {
		return 0, errs.NewConfigError("invalid "+source+" "+strconv.Quote(s), err)
	}
	if port < minPort || port > maxPort {
		return 0, errs.NewConfigError(source+" out of range "+strconv.Quote(s)+" (must be 1024-65535)", nil)
	}
	return port, nil
}

func parseBool(s, source string) (bool, error) {
	b, err := strconv.ParseBool(s)
	if err != nil {
		return false, errs.NewConfigError("invalid "+source+" "+strconv.Quote(s), err)
	}
	return b, nil
}

func parseScenesSource(s string) (ScenesSource, error) {
	switch strings.ToLower(s) {
	case string(ScenesSourceFile):
		return ScenesSourceFile, nil
	case string(ScenesSourceAPI):
		return ScenesSourceAPI, nil
	default:
		return "", errs.NewConfigError("invalid TRACKER_SCENES_SOURCE "+strconv.Quote(s)+" (must be file|api)", nil)
	}
}

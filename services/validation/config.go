// Copyright (C) 2026 Emberwell AI (oss@emberwell.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package validation

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// configValidate is the shared validator instance for Config.
var configValidate = validator.New()

// Duration parses YAML duration strings ("90s", "30m", "1h"). Bare
// integers are taken as seconds.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
//
// Integer nodes must be checked by tag: yaml will happily decode the
// scalar 90 into a string, and time.ParseDuration rejects "90".
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	if value.Tag == "!!int" {
		var seconds int64
		if err := value.Decode(&seconds); err != nil {
			return fmt.Errorf("invalid duration value: %w", err)
		}
		*d = Duration(time.Duration(seconds) * time.Second)
		return nil
	}
	var s string
	if err := value.Decode(&s); err != nil {
		return fmt.Errorf("invalid duration value: %w", err)
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// StageOverride tunes one registered stage without code changes.
type StageOverride struct {
	// TimeoutMS overrides the per-stage timeout. 0 keeps the default.
	TimeoutMS int `yaml:"timeout_ms" validate:"gte=0,lte=5000"`

	// Priority overrides dispatch ordering. Higher runs first.
	Priority int `yaml:"priority"`
}

// CacheConfig controls the fingerprint verdict cache.
type CacheConfig struct {
	// Enabled turns caching on. Default: true.
	Enabled bool `yaml:"enabled"`

	// TTL is how long cached verdicts stay valid. Default: 1h.
	TTL Duration `yaml:"ttl"`

	// Backend selects the store: "memory" or "badger".
	Backend string `yaml:"backend" validate:"omitempty,oneof=memory badger"`

	// Path is the BadgerDB directory. Required for the badger backend.
	Path string `yaml:"path"`

	// MaxEntries bounds the in-memory store. Default: 4096.
	MaxEntries int `yaml:"max_entries" validate:"gte=0"`
}

// Config is the service configuration, loaded from YAML.
//
// # Validation
//
// Uses go-playground/validator tags. TimeoutMS outside [50,5000] is
// rejected outright rather than clamped: a config file asking for an
// out-of-range deadline is a deployment mistake worth failing on,
// unlike a per-request value which is clamped.
type Config struct {
	// ListenAddr is the HTTP listen address for serve mode.
	ListenAddr string `yaml:"listen_addr"`

	// TimeoutMS is the default overall validation deadline.
	TimeoutMS int `yaml:"timeout_ms" validate:"omitempty,gte=50,lte=5000"`

	// StrictMode applies tightened thresholds to every request that
	// does not set its own.
	StrictMode bool `yaml:"strict_mode"`

	// Scope is the default validation scope label.
	Scope string `yaml:"scope"`

	// InterventionThreshold is the crisis level at and above which
	// immediate intervention is flagged. Default: high.
	InterventionThreshold string `yaml:"intervention_threshold" validate:"omitempty,oneof=low moderate high severe critical"`

	// Cache configures the fingerprint verdict cache.
	Cache CacheConfig `yaml:"cache"`

	// Stages holds per-stage overrides keyed by stage id.
	Stages map[string]StageOverride `yaml:"stages" validate:"omitempty,dive"`

	// OTLPEndpoint enables trace export when non-empty
	// (host:port of an OTLP gRPC collector).
	OTLPEndpoint string `yaml:"otlp_endpoint"`

	// LogLevel is debug, info, warn, or error.
	LogLevel string `yaml:"log_level" validate:"omitempty,oneof=debug info warn error"`

	// LogJSON switches stderr logging to JSON format.
	LogJSON bool `yaml:"log_json"`
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() Config {
	return Config{
		ListenAddr: ":8085",
		TimeoutMS:  200,
		Cache: CacheConfig{
			Enabled:    true,
			TTL:        Duration(time.Hour),
			Backend:    "memory",
			MaxEntries: 4096,
		},
		InterventionThreshold: "high",
		LogLevel:              "info",
	}
}

// LoadConfig reads, parses, and validates a YAML config file. Missing
// fields keep their defaults, and an empty path returns the defaults
// outright so binaries run without a config file.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks the configuration against its constraints.
func (c *Config) Validate() error {
	if err := configValidate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if c.Cache.Enabled && c.Cache.Backend == "badger" && c.Cache.Path == "" {
		return fmt.Errorf("invalid config: cache backend badger requires a path")
	}
	return nil
}

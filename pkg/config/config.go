// Package config provides the unified configuration for the pooling
// engine. A single EngineConfig structure covers the registry, its cull
// cadence, per-template bin definitions, and the ambient logging and
// observability settings.
//
// Example usage:
//
//	cfg := config.NewEngineConfig("main")
//	cfg.Pooling.CullInterval = 10 * time.Second
//
//	if err := cfg.Validate(); err != nil {
//	    log.Fatal(err)
//	}
package config

import (
	"time"

	"github.com/ajitpratap0/warren/pkg/errors"
)

// EngineConfig is the configuration for one registry instance and the
// bins it should register at startup.
type EngineConfig struct {
	// Name identifies the registry instance
	Name string `yaml:"name" json:"name"`

	// Pooling settings control pool behavior and the cull cadence
	Pooling PoolingConfig `yaml:"pooling" json:"pooling"`

	// Bins defines templates to register at startup
	Bins []BinConfig `yaml:"bins" json:"bins"`

	// Logging settings for the engine's structured logger
	Logging LoggingConfig `yaml:"logging" json:"logging"`

	// Observability settings for metrics exposure
	Observability ObservabilityConfig `yaml:"observability" json:"observability"`
}

// PoolingConfig contains pool-wide policy settings.
type PoolingConfig struct {
	// CullInterval is the cadence of the periodic cull pass
	CullInterval time.Duration `yaml:"cull_interval" json:"cull_interval"`
	// DefaultCapacity is the idle-instance ceiling for bins that do not
	// set their own
	DefaultCapacity int `yaml:"default_capacity" json:"default_capacity"`
	// Container names the grouping context idle instances park under
	Container string `yaml:"container" json:"container"`
}

// BinConfig defines one template registration.
type BinConfig struct {
	// TemplateID is the template's stable identity token
	TemplateID uint64 `yaml:"template_id" json:"template_id"`
	// Template is the template's unique name
	Template string `yaml:"template" json:"template"`
	// Capacity overrides the pooling default when positive
	Capacity int `yaml:"capacity" json:"capacity"`
}

// LoggingConfig contains logger settings.
type LoggingConfig struct {
	Level       string `yaml:"level" json:"level"`
	Development bool   `yaml:"development" json:"development"`
	Encoding    string `yaml:"encoding" json:"encoding"`
}

// ObservabilityConfig contains metrics settings.
type ObservabilityConfig struct {
	// EnableMetrics toggles Prometheus metric recording
	EnableMetrics bool `yaml:"enable_metrics" json:"enable_metrics"`
	// MetricsAddr is the listen address for the metrics endpoint
	MetricsAddr string `yaml:"metrics_addr" json:"metrics_addr"`
}

// NewEngineConfig returns a config with production defaults.
func NewEngineConfig(name string) *EngineConfig {
	return &EngineConfig{
		Name: name,
		Pooling: PoolingConfig{
			CullInterval:    5 * time.Second,
			DefaultCapacity: 16,
			Container:       name + "/pool",
		},
		Logging: LoggingConfig{
			Level:    "info",
			Encoding: "json",
		},
		Observability: ObservabilityConfig{
			EnableMetrics: true,
			MetricsAddr:   ":9090",
		},
	}
}

// Validate checks the configuration for inconsistencies.
func (c *EngineConfig) Validate() error {
	if c.Name == "" {
		return errors.New(errors.ErrorTypeConfig, "registry name is required")
	}
	if c.Pooling.CullInterval < 0 {
		return errors.New(errors.ErrorTypeConfig, "cull_interval must not be negative")
	}
	if c.Pooling.DefaultCapacity < 0 {
		return errors.New(errors.ErrorTypeConfig, "default_capacity must not be negative")
	}

	seenNames := make(map[string]bool, len(c.Bins))
	seenIDs := make(map[uint64]bool, len(c.Bins))
	for _, bin := range c.Bins {
		if bin.Template == "" {
			return errors.New(errors.ErrorTypeConfig, "bin template name is required")
		}
		if seenNames[bin.Template] {
			return errors.Newf(errors.ErrorTypeConfig, "duplicate bin template %q", bin.Template)
		}
		if seenIDs[bin.TemplateID] {
			return errors.Newf(errors.ErrorTypeConfig, "duplicate bin template id %d", bin.TemplateID)
		}
		seenNames[bin.Template] = true
		seenIDs[bin.TemplateID] = true
		if bin.Capacity < 0 {
			return errors.Newf(errors.ErrorTypeConfig, "bin %q capacity must not be negative", bin.Template)
		}
	}
	return nil
}

// CapacityFor returns the effective idle capacity for a bin definition.
func (c *EngineConfig) CapacityFor(bin BinConfig) int {
	if bin.Capacity > 0 {
		return bin.Capacity
	}
	return c.Pooling.DefaultCapacity
}

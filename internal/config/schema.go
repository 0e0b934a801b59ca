// Package config handles YAML configuration loading, environment variable
// expansion, and structural validation for tgrelay.
package config

import (
	"gopkg.in/yaml.v3"

	"github.com/flemzord/tgrelay/internal/tracing"
)

// Config is the top-level configuration structure.
type Config struct {
	// Version is the config format version. Currently only "1" is supported.
	Version string `yaml:"version"`

	// Modules maps module IDs to their raw YAML configuration.
	// Keys must match registered module IDs (e.g. "channel.telegram").
	Modules map[string]yaml.Node `yaml:"modules"`

	// Tracing enables OTLP span export when an endpoint is set.
	Tracing *tracing.Config `yaml:"tracing,omitempty"`

	// Path is the file the configuration was loaded from.
	Path string `yaml:"-"`
}

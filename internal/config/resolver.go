package config

import (
	"fmt"

	"github.com/flemzord/tgrelay/internal/core"
)

// Resolve returns the configured module IDs in start order: every module
// follows the configured modules it declares in ModuleInfo.After, and ties
// are broken by ID.
func Resolve(cfg *Config) ([]string, error) {
	ids := make([]string, 0, len(cfg.Modules))
	for id := range cfg.Modules {
		ids = append(ids, id)
	}
	order, err := core.StartOrder(ids)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return order, nil
}

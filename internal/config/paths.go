package config

import (
	"errors"
	"os"
	"path/filepath"
)

// FileName is the default configuration file name.
const FileName = "tgrelay.yaml"

// ErrNotFound is returned by Find when no candidate file exists.
var ErrNotFound = errors.New("config: no configuration file found")

// SearchPaths returns the candidate config locations in lookup order:
// $XDG_CONFIG_HOME/tgrelay, ~/.config/tgrelay, then the working directory.
func SearchPaths() []string {
	var paths []string
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		paths = append(paths, filepath.Join(xdg, "tgrelay", FileName))
	}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "tgrelay", FileName))
	}
	return append(paths, FileName)
}

// Find returns explicit when set, otherwise the first search path that
// exists.
func Find(explicit string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}
	for _, p := range SearchPaths() {
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			return p, nil
		}
	}
	return "", ErrNotFound
}

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Options selects the files Load reads.
type Options struct {
	// Path is the configuration file. Empty means the first of SearchPaths
	// that exists.
	Path string

	// EnvFile is a dotenv file loaded into the process environment before
	// expansion. Empty means a .env beside the configuration file, then one
	// in the working directory, if either exists. Variables already set in
	// the environment win.
	EnvFile string
}

// UnresolvedError lists ${VAR} references that have neither an environment
// value nor a default.
type UnresolvedError struct {
	Path  string
	Names []string
}

func (e *UnresolvedError) Error() string {
	return fmt.Sprintf("config: %s: unresolved variables: %s", e.Path, strings.Join(e.Names, ", "))
}

// varRef matches ${NAME} and ${NAME:-default}.
var varRef = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(:-[^}]*)?\}`)

// Load locates the configuration and its dotenv file, expands variable
// references and decodes the result. Unknown top-level keys are rejected so
// a misspelt "modules" is not silently ignored.
func Load(opts Options) (*Config, error) {
	path, err := Find(opts.Path)
	if err != nil {
		return nil, err
	}
	if err := loadEnvFile(opts.EnvFile, path); err != nil {
		return nil, err
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}
	expanded, missing := expand(raw, os.LookupEnv)
	if len(missing) > 0 {
		return nil, &UnresolvedError{Path: path, Names: missing}
	}

	dec := yaml.NewDecoder(bytes.NewReader(expanded))
	dec.KnownFields(true)
	var cfg Config
	if err := dec.Decode(&cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("config: %s is empty", path)
		}
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	cfg.Path = path
	return &cfg, nil
}

// loadEnvFile applies the dotenv file chosen by explicit, or the default
// candidates next to cfgPath and in the working directory.
func loadEnvFile(explicit, cfgPath string) error {
	if explicit != "" {
		if err := godotenv.Load(explicit); err != nil {
			return fmt.Errorf("config: loading env file %s: %w", explicit, err)
		}
		return nil
	}
	for _, candidate := range []string{filepath.Join(filepath.Dir(cfgPath), ".env"), ".env"} {
		info, err := os.Stat(candidate)
		if err != nil || info.IsDir() {
			continue
		}
		if err := godotenv.Load(candidate); err != nil {
			return fmt.Errorf("config: loading env file %s: %w", candidate, err)
		}
		return nil
	}
	return nil
}

// expand substitutes variable references in raw using lookup. It returns the
// sorted, de-duplicated names that could not be resolved; those references
// are left in place.
func expand(raw []byte, lookup func(string) (string, bool)) ([]byte, []string) {
	var missing []string
	out := varRef.ReplaceAllFunc(raw, func(ref []byte) []byte {
		m := varRef.FindSubmatch(ref)
		if v, ok := lookup(string(m[1])); ok {
			return []byte(v)
		}
		if m[2] != nil {
			return m[2][len(":-"):]
		}
		missing = append(missing, string(m[1]))
		return ref
	})
	slices.Sort(missing)
	return out, slices.Compact(missing)
}

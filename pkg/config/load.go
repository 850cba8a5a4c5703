package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
)

// configRelPath is the configuration file location relative to a root
// directory (project working directory or home directory).
const configRelPath = ".claude/hooks.yaml"

// Load resolves the effective configuration for the given project working
// directory; an empty cwd means the process working directory. Resolution
// order: project file, then the user-level file in the home directory, then
// the built-in empty default. A missing file at one level falls through to
// the next; a file that exists but fails to parse or validate is an error,
// never silently skipped.
func Load(cwd string) (*Config, error) {
	log := slog.Default().With("component", "config")

	paths := candidatePaths(cwd)
	for _, path := range paths {
		cfg, err := LoadFile(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, err
		}
		log.Debug("configuration loaded", "path", path, "rules", len(cfg.Rules))
		return cfg, nil
	}

	log.Debug("no configuration file found, using empty default")
	return Default(), nil
}

// LoadFile reads, parses and validates a single configuration file.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to read configuration %s: %w", path, err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("invalid configuration %s: %w", path, err)
	}
	return cfg, nil
}

// candidatePaths returns the resolution chain for cwd, highest precedence
// first. An empty cwd resolves against the process working directory.
func candidatePaths(cwd string) []string {
	if cwd == "" {
		if wd, err := os.Getwd(); err == nil {
			cwd = wd
		}
	}
	var paths []string
	if cwd != "" {
		paths = append(paths, filepath.Join(cwd, configRelPath))
	}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, configRelPath))
	}
	return paths
}

// ProjectPath returns the project-level configuration path for cwd.
func ProjectPath(cwd string) string {
	return filepath.Join(cwd, configRelPath)
}

// UserPath returns the user-level configuration path.
func UserPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve home directory: %w", err)
	}
	return filepath.Join(home, configRelPath), nil
}

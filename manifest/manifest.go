// Package manifest handles ripley.toml tooling configuration and the pack
// metadata records that travel with containers.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Manifest represents a ripley.toml configuration for the container tools.
type Manifest struct {
	Project    Project    `toml:"project"`
	Containers []string   `toml:"containers"`
	Inspection Inspection `toml:"inspection"`

	// Dir is the directory containing the ripley.toml file (set at load time).
	Dir string `toml:"-"`
}

// Project contains project metadata.
type Project struct {
	Name    string `toml:"name"`
	Version string `toml:"version"`
}

// Inspection configures how the inspector presents containers.
type Inspection struct {
	WarmupPercent int  `toml:"warmup-percent"`
	ShowFunctions bool `toml:"show-functions"`
	ShowStrings   bool `toml:"show-strings"`
}

// Load parses a ripley.toml file from the given directory.
func Load(dir string) (*Manifest, error) {
	path := filepath.Join(dir, "ripley.toml")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	var m Manifest
	if err := toml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}

	m.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}

	if m.Inspection.WarmupPercent < 0 || m.Inspection.WarmupPercent > 100 {
		return nil, fmt.Errorf("%s: warmup-percent %d outside 0-100", path, m.Inspection.WarmupPercent)
	}

	return &m, nil
}

// FindAndLoad walks up from startDir to find a ripley.toml file, then loads
// and returns the manifest. Returns nil if no manifest is found.
func FindAndLoad(startDir string) (*Manifest, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, "ripley.toml")
		if _, err := os.Stat(path); err == nil {
			return Load(dir)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return nil, nil
		}
		dir = parent
	}
}

// Package manifest loads batch-aggregation job manifests for the CLI.
//
// A manifest names the log directory and the dates to aggregate, so that an
// operator can replay several days in one synchronous run:
//
//	log_dir: /var/log/app
//	dates:
//	  - "2024-01-01"
//	  - "2024-01-02"
//	delay: 0s
package manifest

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/srmlabs/logmill/pkg/logset"
)

// Manifest describes a batch aggregation run.
type Manifest struct {
	// LogDir is the directory holding rotation files. Default: "logs".
	LogDir string `yaml:"log_dir" json:"log_dir"`

	// Dates are the ISO calendar dates to aggregate, one job each.
	Dates []string `yaml:"dates" json:"dates"`

	// Delay is an optional per-job delay (duration string, e.g. "15s").
	Delay string `yaml:"delay,omitempty" json:"delay,omitempty"`

	// RateLimit is the maximum rotation-file reads per second. 0 = unlimited.
	RateLimit float64 `yaml:"rate_limit,omitempty" json:"rate_limit,omitempty"`
}

// ApplyDefaults fills optional fields.
func (m *Manifest) ApplyDefaults() {
	if strings.TrimSpace(m.LogDir) == "" {
		m.LogDir = "logs"
	}
}

// Validate checks the manifest for structural problems.
func (m *Manifest) Validate() error {
	if len(m.Dates) == 0 {
		return errors.New("manifest must list at least one date")
	}
	for _, d := range m.Dates {
		if _, err := logset.ParseDate(d); err != nil {
			return fmt.Errorf("manifest date: %w", err)
		}
	}
	if m.Delay != "" {
		if _, err := time.ParseDuration(m.Delay); err != nil {
			return fmt.Errorf("manifest delay: %w", err)
		}
	}
	if m.RateLimit < 0 {
		return errors.New("manifest rate_limit must be >= 0")
	}
	return nil
}

// ParsedDelay returns the delay as a duration; zero when unset.
func (m *Manifest) ParsedDelay() time.Duration {
	if m.Delay == "" {
		return 0
	}
	d, err := time.ParseDuration(m.Delay)
	if err != nil {
		return 0
	}
	return d
}

// Load reads and validates a manifest from the given file path.
//
// The file format is determined by extension: .yaml/.yml for YAML, .json for
// JSON. If the extension is unrecognized, YAML is attempted first, then JSON.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("manifest file not found: %s", path)
		}
		return nil, fmt.Errorf("failed to read manifest file: %w", err)
	}
	return LoadFromBytes(data, path)
}

// LoadFromBytes parses and validates a manifest from raw bytes. The path
// parameter is used for format detection and error messages.
func LoadFromBytes(data []byte, path string) (*Manifest, error) {
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, errors.New("manifest file is empty")
	}

	m, err := parse(data, path)
	if err != nil {
		return nil, err
	}

	m.ApplyDefaults()
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

func parse(data []byte, path string) (*Manifest, error) {
	var m Manifest
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("parse manifest YAML: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("parse manifest JSON: %w", err)
		}
	default:
		if yerr := yaml.Unmarshal(data, &m); yerr != nil {
			if jerr := json.Unmarshal(data, &m); jerr != nil {
				return nil, fmt.Errorf("parse manifest: %w", yerr)
			}
		}
	}
	return &m, nil
}

// Package config holds the run configuration surface: concurrency ceiling,
// per-device timeout, retry budget, and the settings for the external
// collaborators (SMTP, file server). Values come from an optional YAML file
// with flag overrides on top; credentials come from the environment, loaded
// from a .env-style file.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/netsweep/netsweep/pkg/util"
)

// Defaults applied when neither file nor flags set a value.
const (
	DefaultConcurrency   = 6
	DefaultDeviceTimeout = 90 * time.Second
	DefaultRetries       = 2
)

// Duration wraps time.Duration so YAML can carry values like "90s" or "2m".
type Duration time.Duration

// UnmarshalYAML parses a Go duration string.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the plain time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d Duration) String() string { return time.Duration(d).String() }

// Config is the full configuration object handed to a run. Read-only once
// loaded; every worker receives the same value.
type Config struct {
	Concurrency   int           `yaml:"concurrency"`
	DeviceTimeout Duration      `yaml:"device_timeout"`
	Retries       int           `yaml:"retries"`

	// NeighborExclude is the interface-name pattern whose neighbor records
	// are dropped from results (access-point sub-interfaces).
	NeighborExclude string `yaml:"neighbor_exclude"`

	// Modem credentials for per-modem interrogation on ETTP sites,
	// referenced by environment key like the inventory's device rows.
	ModemUserEnv string `yaml:"modem_user_env"`
	ModemPassEnv string `yaml:"modem_pass_env"`

	Mail       Mail       `yaml:"mail"`
	FileServer FileServer `yaml:"file_server"`
}

// Mail configures report delivery over SMTP.
type Mail struct {
	Host       string   `yaml:"host"`
	Port       int      `yaml:"port"`
	From       string   `yaml:"from"`
	PassEnv    string   `yaml:"pass_env"`
	Recipients []string `yaml:"recipients"`
}

// FileServer configures SFTP upload of finished reports.
type FileServer struct {
	Host    string `yaml:"host"`
	Port    int    `yaml:"port"`
	User    string `yaml:"user"`
	PassEnv string `yaml:"pass_env"`
	BaseDir string `yaml:"base_dir"`
}

// Default returns a Config carrying only defaults.
func Default() *Config {
	return &Config{
		Concurrency:   DefaultConcurrency,
		DeviceTimeout: Duration(DefaultDeviceTimeout),
		Retries:       DefaultRetries,
		ModemUserEnv:  "USER1",
		ModemPassEnv:  "PW3",
	}
}

// Load reads the YAML config file at path on top of defaults. A missing
// file is not an error when path is empty.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, cfg.Validate()
}

// Validate checks the values a run depends on. Invalid configuration fails
// the run before any device is dispatched.
func (c *Config) Validate() error {
	var v util.ValidationBuilder
	v.Add(c.Concurrency >= 1, fmt.Sprintf("concurrency must be at least 1, got %d", c.Concurrency))
	v.Add(c.DeviceTimeout > 0, fmt.Sprintf("device_timeout must be positive, got %s", c.DeviceTimeout))
	v.Add(c.Retries >= 0, fmt.Sprintf("retries must not be negative, got %d", c.Retries))
	return v.Build()
}

// Package config provides configuration loading for specsync.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/frederic-klein/specsync/internal/requirement"
)

// DefaultFile is the configuration file looked up in the package directory.
const DefaultFile = ".specsync.yaml"

// Config represents the complete specsync configuration.
type Config struct {
	Target TargetConfig `yaml:"target"`
	// Ignore replaces the default ignore list when non-empty.
	Ignore []string `yaml:"ignore"`
	// ExtraIgnore is appended to the ignore list.
	ExtraIgnore []string `yaml:"extra_ignore"`
}

// TargetConfig describes the environment the package is built for.
type TargetConfig struct {
	// PythonVersion is the major.minor interpreter version (default: 3.6)
	PythonVersion string `yaml:"python_version"`
	// Platform is the sys.platform value (default: linux)
	Platform string `yaml:"platform"`
	// Machine is the platform.machine value (default: x86_64)
	Machine string `yaml:"machine"`
}

// DefaultIgnore lists build and lint tooling that never becomes an RPM
// runtime or build dependency.
var DefaultIgnore = []string{
	"python-coverage",
	"python-discover",
	"python-distribute",
	"python-doc8",
	"python-flake8",
	"python-hacking",
	"python-nose",
	"python-openstackdocstheme",
	"python-oslosphinx",
	"python-pep8",
	"python-pylint",
	"python-reno",
	"python-setuptools",
	"python-sphinx",
}

// DefaultTarget is the environment markers are evaluated against.
var DefaultTarget = TargetConfig{
	PythonVersion: "3.6",
	Platform:      "linux",
	Machine:       "x86_64",
}

// DefaultConfig returns a Config with the default target and ignore list.
func DefaultConfig() *Config {
	return &Config{
		Target: DefaultTarget,
		Ignore: append([]string(nil), DefaultIgnore...),
	}
}

var pythonVersionRe = regexp.MustCompile(`^\d+\.\d+$`)

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if !pythonVersionRe.MatchString(c.Target.PythonVersion) {
		return fmt.Errorf("target.python_version must look like 3.6, got %q", c.Target.PythonVersion)
	}
	if c.Target.Platform == "" {
		return fmt.Errorf("target.platform is required")
	}
	if c.Target.Machine == "" {
		return fmt.Errorf("target.machine is required")
	}
	for _, name := range c.IgnoreList() {
		if strings.TrimSpace(name) == "" {
			return fmt.Errorf("ignore list contains an empty name")
		}
	}
	return nil
}

// Merge merges another config into this one (other takes precedence for
// non-zero values).
func (c *Config) Merge(other *Config) {
	if other == nil {
		return
	}

	if other.Target.PythonVersion != "" {
		c.Target.PythonVersion = other.Target.PythonVersion
	}
	if other.Target.Platform != "" {
		c.Target.Platform = other.Target.Platform
	}
	if other.Target.Machine != "" {
		c.Target.Machine = other.Target.Machine
	}

	if len(other.Ignore) > 0 {
		c.Ignore = other.Ignore
	}
	c.ExtraIgnore = append(c.ExtraIgnore, other.ExtraIgnore...)
}

// IgnoreList returns Ignore followed by ExtraIgnore.
func (c *Config) IgnoreList() []string {
	list := make([]string, 0, len(c.Ignore)+len(c.ExtraIgnore))
	list = append(list, c.Ignore...)
	return append(list, c.ExtraIgnore...)
}

// IgnoreSet returns the lowercased ignore list as a set.
func (c *Config) IgnoreSet() map[string]bool {
	set := make(map[string]bool)
	for _, name := range c.IgnoreList() {
		set[strings.ToLower(name)] = true
	}
	return set
}

// Environment returns the marker environment of the target.
func (t TargetConfig) Environment() requirement.Environment {
	return requirement.NewEnvironment(t.PythonVersion, t.Platform, t.Machine)
}

// LoadFromFile loads configuration from a YAML file on top of the defaults.
// Unknown keys are rejected.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var file Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	config := DefaultConfig()
	config.Merge(&file)
	return config, nil
}

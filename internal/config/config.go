package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"

	"pyvm/internal/limits"
)

// FileName is the configuration file Find looks for.
const FileName = "pyvm.toml"

type Config struct {
	Limits LimitsConfig `toml:"limits"`
	Log    LogConfig    `toml:"log"`
	Output OutputConfig `toml:"output"`

	// Path is the file the configuration was read from, empty for defaults.
	Path string `toml:"-"`
}

type LimitsConfig struct {
	MaxDepth  int   `toml:"max_depth"`
	MaxSteps  int64 `toml:"max_steps"`
	MaxMemory int64 `toml:"max_memory"`
}

type LogConfig struct {
	Verbosity int    `toml:"verbosity"`
	File      string `toml:"file"`
}

type OutputConfig struct {
	Color bool `toml:"color"`
}

func Default() *Config {
	return &Config{
		Limits: LimitsConfig{MaxDepth: limits.DefaultMaxDepth},
		Output: OutputConfig{Color: true},
	}
}

// RunLimits converts the [limits] table for the interpreter.
func (c *Config) RunLimits() limits.Limits {
	return limits.Limits{
		MaxDepth:  c.Limits.MaxDepth,
		MaxSteps:  c.Limits.MaxSteps,
		MaxMemory: c.Limits.MaxMemory,
	}
}

// Parse reads a configuration document on top of the defaults. Keys the
// configuration does not know are rejected.
func Parse(data string) (*Config, error) {
	c := Default()
	md, err := toml.Decode(data, c)
	if err != nil {
		return nil, errors.Wrap(err, "config")
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, errors.Errorf("config: unknown keys: %s", strings.Join(keys, ", "))
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "config: cannot read %s", path)
	}
	c, err := Parse(string(data))
	if err != nil {
		return nil, errors.Wrap(err, path)
	}
	c.Path = path
	return c, nil
}

// Find walks up from startDir looking for FileName. It returns "" when
// no directory up to the root has one.
func Find(startDir string) (string, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", errors.Wrapf(err, "config: cannot resolve %s", startDir)
	}
	for {
		path := filepath.Join(dir, FileName)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", nil
		}
		dir = parent
	}
}

// FindAndLoad loads the nearest FileName above startDir, or the defaults
// when there is none.
func FindAndLoad(startDir string) (*Config, error) {
	path, err := Find(startDir)
	if err != nil {
		return nil, err
	}
	if path == "" {
		return Default(), nil
	}
	return Load(path)
}

func (c *Config) validate() error {
	switch {
	case c.Limits.MaxDepth < 0:
		return errors.Errorf("config: limits.max_depth must not be negative, got %d", c.Limits.MaxDepth)
	case c.Limits.MaxSteps < 0:
		return errors.Errorf("config: limits.max_steps must not be negative, got %d", c.Limits.MaxSteps)
	case c.Limits.MaxMemory < 0:
		return errors.Errorf("config: limits.max_memory must not be negative, got %d", c.Limits.MaxMemory)
	case c.Log.Verbosity < 0:
		return errors.Errorf("config: log.verbosity must not be negative, got %d", c.Log.Verbosity)
	}
	return nil
}

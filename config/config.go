// Package config loads the optional .dopy.yaml project settings.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"runtime"
	"strconv"

	"gopkg.in/yaml.v3"
)

// FileName is looked up in the working directory when no path is given.
const FileName = ".dopy.yaml"

// Config holds settings for the CLI glue. None of them change how source is
// rewritten; they only pick the interpreter, the parallelism and which
// directories are walked.
type Config struct {
	// Python is the interpreter used by `dopy run`.
	Python string `yaml:"python"`
	// Jobs bounds the number of files transpiled in parallel.
	Jobs int `yaml:"jobs"`
	// Exclude lists directory names skipped when walking a tree.
	Exclude []string `yaml:"exclude"`
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		Python:  "python3",
		Jobs:    runtime.NumCPU(),
		Exclude: []string{".git", "__pycache__", ".venv", "venv", "node_modules"},
	}
}

// Load reads path, or FileName in the working directory when path is empty,
// on top of the defaults, then applies DOPY_PYTHON and DOPY_JOBS. A missing
// default file is not an error; a missing explicit path is.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = FileName
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist) && !explicit:
	default:
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if cfg.Jobs < 1 {
		cfg.Jobs = 1
	}
	if cfg.Python == "" {
		cfg.Python = Default().Python
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if py := os.Getenv("DOPY_PYTHON"); py != "" {
		c.Python = py
	}
	if jobs := os.Getenv("DOPY_JOBS"); jobs != "" {
		n, err := strconv.Atoi(jobs)
		if err != nil {
			return fmt.Errorf("DOPY_JOBS: %w", err)
		}
		c.Jobs = n
	}
	return nil
}

// Excluded reports whether a directory with the given base name is skipped.
func (c *Config) Excluded(name string) bool {
	for _, ex := range c.Exclude {
		if ex == name {
			return true
		}
	}
	return false
}

package config

import (
	"os"

	"dario.cat/mergo"
	"gopkg.in/yaml.v3"
)

// Load reads the YAML configuration file at path, expands ${VAR}/$VAR
// references against the process environment, merges the result onto
// Default() (file values win, but absent fields keep their default), and
// validates the merged result.
func Load(path string) (RecorderConfig, error) {
	cfg := Default()

	raw, err := os.ReadFile(path)
	if err != nil {
		return RecorderConfig{}, &LoadError{Path: path, Err: err}
	}

	expanded := ExpandEnv(raw)

	var fromFile RecorderConfig
	if err := yaml.Unmarshal(expanded, &fromFile); err != nil {
		return RecorderConfig{}, &LoadError{Path: path, Err: err}
	}

	if err := mergo.Merge(&cfg, fromFile, mergo.WithOverride); err != nil {
		return RecorderConfig{}, &LoadError{Path: path, Err: err}
	}

	if err := cfg.ValidateAll(); err != nil {
		return RecorderConfig{}, err
	}
	return cfg, nil
}

// LoadOrDefault behaves like Load, but returns Default() unchanged (still
// validated) when path does not exist, matching the teacher's fail-open
// startup pattern of running with built-ins when no config file is
// present.
func LoadOrDefault(path string) (RecorderConfig, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg := Default()
		if err := cfg.ValidateAll(); err != nil {
			return RecorderConfig{}, err
		}
		return cfg, nil
	}
	return Load(path)
}

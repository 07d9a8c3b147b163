package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// Config holds CLI-only configuration (spec.md's own compiler core takes
// no configuration at all). Precedence: environment variables > config
// file > defaults.
type Config struct {
	Log     LogConfig     `toml:"log"`
	Compile CompileConfig `toml:"compile"`
}

// LogConfig controls the CLI's zerolog setup.
type LogConfig struct {
	Level string `toml:"level"`
}

// CompileConfig controls the default behavior of `compile run`/`compile
// watch` absent an explicit flag.
type CompileConfig struct {
	FailOnWarnings bool `toml:"fail_on_warnings"`
}

// Load builds a Config from defaults, optionally overlaid by a TOML file,
// then by environment variables (which always win).
func Load(configPath string) (*Config, error) {
	cfg := &Config{
		Log: LogConfig{Level: "info"},
		Compile: CompileConfig{
			FailOnWarnings: false,
		},
	}

	if err := cfg.loadFile(configPath); err != nil {
		return nil, err
	}
	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) loadFile(configPath string) error {
	path := resolveConfigPath(configPath)
	if path == "" {
		return nil
	}
	if _, err := toml.DecodeFile(path, c); err != nil {
		return fmt.Errorf("reading config file %s: %w", path, err)
	}
	return nil
}

// resolveConfigPath picks the config file to use, in order of precedence:
// an explicit --config flag, the RELAYBOT_COMPILER_CONFIG env var, or
// ./compiler.toml in the current directory. Returns "" if none is found
// (the config file is optional; defaults + env still apply).
func resolveConfigPath(explicit string) string {
	if explicit != "" {
		return explicit
	}
	if p := os.Getenv("RELAYBOT_COMPILER_CONFIG"); p != "" {
		return p
	}
	if _, err := os.Stat("compiler.toml"); err == nil {
		return "compiler.toml"
	}
	return ""
}

func (c *Config) applyEnv() {
	envOverride("RELAYBOT_COMPILER_LOG_LEVEL", &c.Log.Level)
	envOverrideBool("RELAYBOT_COMPILER_FAIL_ON_WARNINGS", &c.Compile.FailOnWarnings)
}

func envOverride(key string, dst *string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}

func envOverrideBool(key string, dst *bool) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return
	}
	*dst = v == "1" || v == "true" || v == "TRUE"
}

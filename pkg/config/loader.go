package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Load loads configuration from a layered set of sources.
//
// The loading order is:
//  1. Built-in defaults
//  2. YAML config file (explicit path, MODELSTREAM_CONFIG env, ./modelstream.yaml,
//     $HOME/.config/modelstream/config.yaml)
//  3. Environment variable overrides
//  4. File reference resolution (_file suffix)
//  5. Validation
func Load(configPath string) (*Config, error) {
	cfg := Defaults()

	filePath := discoverConfigFile(configPath)
	if filePath != "" {
		if err := loadYAMLFile(filePath, &cfg); err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", filePath, err)
		}
	}
	mergeBuiltinProviders(&cfg)

	applyEnvOverrides(&cfg)

	if err := resolveFileReferences(&cfg); err != nil {
		return nil, fmt.Errorf("resolving file references: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return &cfg, nil
}

// discoverConfigFile finds the config file path using the discovery order:
// 1. Explicit configPath argument
// 2. MODELSTREAM_CONFIG environment variable
// 3. ./modelstream.yaml in the current directory
// 4. $HOME/.config/modelstream/config.yaml
//
// Returns empty string if no config file is found.
func discoverConfigFile(configPath string) string {
	if configPath != "" {
		return configPath
	}

	if envPath := os.Getenv("MODELSTREAM_CONFIG"); envPath != "" {
		return envPath
	}

	candidates := []string{"modelstream.yaml"}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".config", "modelstream", "config.yaml"))
	}
	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// loadYAMLFile reads and parses a YAML file into the Config struct.
// Fields not present in the YAML retain their current (default) values.
func loadYAMLFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// mergeBuiltinProviders fills fields a YAML provider entry left empty from
// the built-in entry of the same key, and names unnamed providers after
// their key.
func mergeBuiltinProviders(cfg *Config) {
	builtin := BuiltinProviders()
	for key, p := range cfg.Providers {
		if b, ok := builtin[key]; ok {
			if p.Name == "" {
				p.Name = b.Name
			}
			if p.BaseURL == "" {
				p.BaseURL = b.BaseURL
			}
			if p.WireAPI == "" {
				p.WireAPI = b.WireAPI
			}
			if p.EnvKey == "" {
				p.EnvKey = b.EnvKey
			}
			if p.EnvKeyInstructions == "" {
				p.EnvKeyInstructions = b.EnvKeyInstructions
			}
		}
		if p.Name == "" {
			p.Name = key
		}
		cfg.Providers[key] = p
	}
}

// applyEnvOverrides maps environment variables to config fields.
// Values that fail to parse are ignored and the previous value is kept.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("MODELSTREAM_MODEL"); v != "" {
		cfg.Model = v
	}
	if v := os.Getenv("MODELSTREAM_PROVIDER"); v != "" {
		cfg.Provider = v
	}
	if v := os.Getenv("MODELSTREAM_REQUEST_MAX_RETRIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.RequestMaxRetries = n
		}
	}
	if v := os.Getenv("MODELSTREAM_STREAM_IDLE_TIMEOUT_MS"); v != "" {
		if ms, err := strconv.ParseUint(v, 10, 63); err == nil {
			cfg.StreamIdleTimeout = time.Duration(ms) * time.Millisecond
		}
	}
	if v := os.Getenv("MODELSTREAM_SSE_FIXTURE"); v != "" {
		cfg.SSEFixture = v
	}
	if v := os.Getenv("MODELSTREAM_REASONING_EFFORT"); v != "" {
		cfg.Reasoning.Effort = v
	}
	if v := os.Getenv("MODELSTREAM_METRICS_ADDR"); v != "" {
		cfg.Metrics.Addr = v
	}
}

// resolveFileReferences reads _file fields and populates the corresponding value fields.
// If the value field is empty and the file field is set, the file is read,
// whitespace is trimmed, and the value field is populated.
func resolveFileReferences(cfg *Config) error {
	for key, p := range cfg.Providers {
		if p.KeyFile != "" && p.Key == "" {
			val, err := readSecretFile(p.KeyFile)
			if err != nil {
				return fmt.Errorf("providers.%s.api_key_file: %w", key, err)
			}
			p.Key = val
			cfg.Providers[key] = p
		}
	}
	return nil
}

// readSecretFile reads a file and returns its content with surrounding whitespace trimmed.
func readSecretFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

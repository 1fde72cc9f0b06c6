// Package config provides unified configuration for the modelstream client.
//
// Configuration is loaded with a layered approach:
//  1. Built-in defaults (including the built-in provider table)
//  2. YAML config file (discovered or explicitly specified)
//  3. Environment variable overrides (MODELSTREAM_ prefix)
//  4. File reference resolution (_file suffix fields)
//  5. Validation
package config

import (
	"os"
	"strings"
	"time"

	"github.com/rhuss/modelstream/pkg/api"
)

// WireAPI names the backend protocol a provider speaks.
type WireAPI string

const (
	// WireResponses is the incremental "responses" protocol (SSE).
	WireResponses WireAPI = "responses"

	// WireChat is the Chat Completions protocol (SSE deltas).
	WireChat WireAPI = "chat"

	// WireGemini is the single-shot generateContent protocol.
	WireGemini WireAPI = "gemini"
)

// Config holds all configuration for the modelstream client.
type Config struct {
	Model             string                  `yaml:"model"`
	Provider          string                  `yaml:"provider"` // key into Providers, default: "openai"
	Providers         map[string]ProviderInfo `yaml:"providers"`
	RequestMaxRetries int                     `yaml:"request_max_retries"` // default: 4
	StreamIdleTimeout time.Duration           `yaml:"stream_idle_timeout"` // default: 300s
	SSEFixture        string                  `yaml:"sse_fixture"`         // responses wire only
	Reasoning         ReasoningConfig         `yaml:"reasoning"`
	Debug             DebugConfig             `yaml:"debug"`
	Metrics           MetricsConfig           `yaml:"metrics"`
}

// ReasoningConfig holds the reasoning parameters sent to reasoning-capable
// models on the responses wire.
type ReasoningConfig struct {
	Effort  string `yaml:"effort"`  // "low", "medium", "high", default: "medium"
	Summary string `yaml:"summary"` // "auto", "concise", "detailed", "none", default: "auto"
}

// DebugConfig holds debug logging settings.
type DebugConfig struct {
	Categories string `yaml:"categories"` // comma-separated, see pkg/debug
	Level      string `yaml:"level"`      // ERROR, WARN, INFO, DEBUG, TRACE
}

// MetricsConfig holds Prometheus metrics endpoint settings.
type MetricsConfig struct {
	Addr string `yaml:"addr"` // empty disables the endpoint
	Path string `yaml:"path"` // default: "/metrics"
}

// ProviderInfo describes one model provider endpoint.
type ProviderInfo struct {
	Name               string  `yaml:"name"`
	BaseURL            string  `yaml:"base_url"`
	WireAPI            WireAPI `yaml:"wire_api"`
	EnvKey             string  `yaml:"env_key"`
	EnvKeyInstructions string  `yaml:"env_key_instructions"`
	Key                string  `yaml:"api_key"`
	KeyFile            string  `yaml:"api_key_file"` // _file variant for api_key
}

// APIKey returns the credential for the provider. An explicit api_key wins;
// otherwise the variable named by EnvKey is read. A provider without an
// EnvKey needs no credential and yields "". A configured but unset variable
// yields an *api.EnvVarError carrying the provider's instructions.
func (p ProviderInfo) APIKey() (string, error) {
	if p.Key != "" {
		return p.Key, nil
	}
	if p.EnvKey == "" {
		return "", nil
	}
	v := strings.TrimSpace(os.Getenv(p.EnvKey))
	if v == "" {
		return "", &api.EnvVarError{Var: p.EnvKey, Instructions: p.EnvKeyInstructions}
	}
	return v, nil
}

// ActiveProvider returns the provider selected by c.Provider.
func (c *Config) ActiveProvider() (ProviderInfo, bool) {
	p, ok := c.Providers[c.Provider]
	return p, ok
}

// BuiltinProviders returns the provider table available without any
// configuration file.
func BuiltinProviders() map[string]ProviderInfo {
	return map[string]ProviderInfo{
		"openai": {
			Name:               "OpenAI",
			BaseURL:            "https://api.openai.com/v1",
			WireAPI:            WireResponses,
			EnvKey:             "OPENAI_API_KEY",
			EnvKeyInstructions: "Create an API key (https://platform.openai.com) and export it as an environment variable.",
		},
		"openrouter": {
			Name:    "OpenRouter",
			BaseURL: "https://openrouter.ai/api/v1",
			WireAPI: WireChat,
			EnvKey:  "OPENROUTER_API_KEY",
		},
		"gemini": {
			Name:               "Gemini",
			BaseURL:            "https://generativelanguage.googleapis.com/v1beta",
			WireAPI:            WireGemini,
			EnvKey:             "GEMINI_API_KEY",
			EnvKeyInstructions: "Create an API key in Google AI Studio and export it as an environment variable.",
		},
	}
}

// Defaults returns a Config with all default values filled in.
func Defaults() Config {
	return Config{
		Model:             "codex-mini-latest",
		Provider:          "openai",
		Providers:         BuiltinProviders(),
		RequestMaxRetries: 4,
		StreamIdleTimeout: 300 * time.Second,
		Reasoning: ReasoningConfig{
			Effort:  "medium",
			Summary: "auto",
		},
		Metrics: MetricsConfig{
			Path: "/metrics",
		},
	}
}

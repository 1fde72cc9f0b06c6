package config

import (
	"errors"
	"fmt"
	"net/url"
	"sort"
)

// Validate checks the configuration for required fields and valid values.
// Returns an error with a descriptive field path on failure.
func (c *Config) Validate() error {
	var errs []error

	if c.Model == "" {
		errs = append(errs, fmt.Errorf("model is required"))
	}

	if c.RequestMaxRetries < 0 {
		errs = append(errs, fmt.Errorf("request_max_retries must be >= 0, got %d", c.RequestMaxRetries))
	}

	if c.StreamIdleTimeout <= 0 {
		errs = append(errs, fmt.Errorf("stream_idle_timeout must be > 0, got %v", c.StreamIdleTimeout))
	}

	if _, ok := c.Providers[c.Provider]; !ok {
		errs = append(errs, fmt.Errorf("provider %q is not defined in providers", c.Provider))
	}

	// Sorted so the joined error is stable.
	keys := make([]string, 0, len(c.Providers))
	for key := range c.Providers {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		p := c.Providers[key]
		switch p.WireAPI {
		case WireResponses, WireChat, WireGemini:
			// valid
		default:
			errs = append(errs, fmt.Errorf("providers.%s.wire_api must be \"responses\", \"chat\", or \"gemini\", got %q", key, p.WireAPI))
		}
		if p.BaseURL == "" {
			errs = append(errs, fmt.Errorf("providers.%s.base_url is required", key))
		} else if u, err := url.Parse(p.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, fmt.Errorf("providers.%s.base_url must be an absolute URL, got %q", key, p.BaseURL))
		}
	}

	switch c.Reasoning.Effort {
	case "low", "medium", "high", "":
		// valid
	default:
		errs = append(errs, fmt.Errorf("reasoning.effort must be \"low\", \"medium\", or \"high\", got %q", c.Reasoning.Effort))
	}

	switch c.Reasoning.Summary {
	case "auto", "concise", "detailed", "none", "":
		// valid
	default:
		errs = append(errs, fmt.Errorf("reasoning.summary must be \"auto\", \"concise\", \"detailed\", or \"none\", got %q", c.Reasoning.Summary))
	}

	return errors.Join(errs...)
}

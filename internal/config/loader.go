// Package config loads conductor's YAML configuration and overlays environment
// variables, following the env-expand-then-strict-decode pattern the gateway
// config loader uses.
package config

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Load reads a YAML config file, expands ${VAR} references against the
// process environment, and strictly decodes it into a Config. A missing
// path is not an error: Load returns Default() so the server can run off
// environment variables alone.
func Load(path string) (*Config, error) {
	cfg := Default()
	if strings.TrimSpace(path) == "" {
		applyEnvOverrides(cfg)
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			applyEnvOverrides(cfg)
			return cfg, nil
		}
		return nil, err
	}

	expanded := os.ExpandEnv(string(data))
	decoder := yaml.NewDecoder(bytes.NewReader([]byte(expanded)))
	decoder.KnownFields(true)
	if err := decoder.Decode(cfg); err != nil && err != io.EOF {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := decoder.Decode(&struct{}{}); err != io.EOF {
		return nil, fmt.Errorf("parse config %s: expected a single YAML document", path)
	}

	applyEnvOverrides(cfg)
	return cfg, nil
}

// applyEnvOverrides lets deployment environment variables win over file
// values for the handful of settings that are commonly injected by process
// supervisors rather than checked into a config file.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("CATALOG_PATH"); v != "" {
		cfg.CatalogPath = v
	}
	if v := os.Getenv("KNOWLEDGE_CATALOG_PATH"); v != "" {
		cfg.KnowledgeCatalogPath = v
	}
	if v := os.Getenv("SESSIONS_PATH"); v != "" {
		cfg.Sessions.Path = v
	}
	if v := os.Getenv("SESSIONS_DSN"); v != "" {
		cfg.Sessions.DSN = v
	}
	if v := os.Getenv("SESSIONS_BACKEND"); v != "" {
		cfg.Sessions.Backend = v
	}
	if v := os.Getenv("LLM_PROVIDER"); v != "" {
		cfg.LLM.DefaultProvider = v
	}
	if v := os.Getenv("LLM_API_KEY"); v != "" {
		p := cfg.LLM.Providers[cfg.LLM.DefaultProvider]
		p.APIKey = v
		if cfg.LLM.Providers == nil {
			cfg.LLM.Providers = map[string]LLMProviderConfig{}
		}
		cfg.LLM.Providers[cfg.LLM.DefaultProvider] = p
	}
	if v := os.Getenv("WEB_SEARCH_API_KEY"); v != "" {
		cfg.Tools.WebSearch.BraveAPIKey = v
	}
	if v := os.Getenv("PORT"); v != "" {
		fmt.Sscanf(v, "%d", &cfg.Server.HTTPPort)
	}
}

// Package config provides configuration loading for answerd.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

// envPrefix namespaces answerd environment variables.
const envPrefix = "ANSWERD_"

// Load loads configuration from an optional YAML file, then overrides with
// environment variables.
//
// Precedence (highest to lowest):
//  1. Environment variables (ANSWERD_SERVER_PORT, ANSWERD_COMPLETION_API_KEY, ...)
//  2. YAML config file (if configPath is non-empty and the file exists)
//  3. Hardcoded defaults
//
// Environment variables are mapped section-first: the first underscore-separated
// token selects the section, the remainder is the field name.
//
//	ANSWERD_SERVER_PORT               -> server.port
//	ANSWERD_PIPELINE_TOP_K            -> pipeline.top_k
//	ANSWERD_EMBEDDINGS_BASE_URL       -> embeddings.base_url
//	ANSWERD_VECTORSTORE_PROVIDER      -> vectorstore.provider
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			content, err := os.ReadFile(configPath)
			if err != nil {
				return nil, fmt.Errorf("reading config file %s: %w", configPath, err)
			}
			if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("parsing config file %s: %w", configPath, err)
			}
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", transformEnv), nil); err != nil {
		return nil, fmt.Errorf("loading environment variables: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// transformEnv maps ANSWERD_SECTION_FIELD_NAME to section.field_name.
// The section is the first underscore-separated token; underscores in the
// field name are preserved (pipeline.top_k, embeddings.base_url).
func transformEnv(s string) string {
	lower := strings.ToLower(strings.TrimPrefix(s, envPrefix))
	parts := strings.SplitN(lower, "_", 2)
	if len(parts) == 1 {
		return lower
	}

	// chromem and qdrant settings nest one level deeper under vectorstore
	if parts[0] == "vectorstore" {
		rest := strings.SplitN(parts[1], "_", 2)
		if len(rest) == 2 && (rest[0] == "chromem" || rest[0] == "qdrant") {
			return "vectorstore." + rest[0] + "." + rest[1]
		}
	}

	return parts[0] + "." + parts[1]
}

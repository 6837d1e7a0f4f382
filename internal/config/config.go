package config

import (
	_ "embed"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed policy.yaml
var policyYAML []byte

type Config struct {
	Store     StoreConfig
	Extractor ExtractorConfig
	Auth      AuthConfig
}

type StoreConfig struct {
	Driver       string // "postgres", "sqlite" or "memory" (default sqlite)
	URL          string // PostgreSQL connection URL
	Path         string // SQLite database file path (default facegate.db)
	MaxOpenConns int    // Maximum open connections (default 25)
	MaxIdleConns int    // Maximum idle connections (default 5)
}

type ExtractorConfig struct {
	URL string // defaults to http://localhost:8000
}

type AuthConfig struct {
	TokenSecret    string        // HMAC signing secret; empty disables credential issuance
	TokenTTL       time.Duration // credential lifetime
	MatchThreshold float64       // maximum accepted match distance
	MatchIndex     string        // "hnsw" enables the approximate candidate index
}

type policyConfig struct {
	Match struct {
		Threshold float64 `yaml:"threshold"`
	} `yaml:"match"`
	Token struct {
		TTL string `yaml:"ttl"`
	} `yaml:"token"`
}

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

// envFloat reads an environment variable and parses it as a positive float.
func envFloat(key string, defaultVal float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f > 0 {
		return f
	}
	return defaultVal
}

// envDuration reads an environment variable and parses it as a positive duration.
func envDuration(key string, defaultVal time.Duration) time.Duration {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if d, err := time.ParseDuration(s); err == nil && d > 0 {
		return d
	}
	return defaultVal
}

// envString reads an environment variable with a fallback default.
func envString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func Load() *Config {
	var policy policyConfig
	if err := yaml.Unmarshal(policyYAML, &policy); err != nil {
		// The policy file is embedded, so this cannot happen in practice.
		panic("failed to unmarshal embedded policy.yaml: " + err.Error())
	}
	ttl, err := time.ParseDuration(policy.Token.TTL)
	if err != nil {
		panic("invalid token ttl in embedded policy.yaml: " + err.Error())
	}

	return &Config{
		Store: StoreConfig{
			Driver:       envString("STORE_DRIVER", "sqlite"),
			URL:          os.Getenv("DATABASE_URL"),
			Path:         envString("SQLITE_PATH", "facegate.db"),
			MaxOpenConns: envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns: envInt("DATABASE_MAX_IDLE_CONNS", 5),
		},
		Extractor: ExtractorConfig{
			URL: os.Getenv("EXTRACTOR_URL"),
		},
		Auth: AuthConfig{
			TokenSecret:    os.Getenv("TOKEN_SECRET"),
			TokenTTL:       envDuration("TOKEN_TTL", ttl),
			MatchThreshold: envFloat("MATCH_THRESHOLD", policy.Match.Threshold),
			MatchIndex:     os.Getenv("MATCH_INDEX"),
		},
	}
}

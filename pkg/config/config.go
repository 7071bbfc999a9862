// Copyright 2025 Certen Protocol

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Retriever kinds selectable through CERT_RETRIEVER.
const (
	RetrieverMemory   = "memory"
	RetrieverHTTP     = "http"
	RetrieverPostgres = "postgres"
)

// Config holds all configuration for the certificate verifier service.
type Config struct {
	// Retriever Configuration
	RetrieverKind string // "memory", "http" or "postgres"
	AggregatorURL string // base URL of the certificate aggregator (http retriever)
	DatabaseURL   string // Postgres connection URL (postgres retriever)
	HTTPTimeout   time.Duration

	// Cache Configuration
	CacheEnabled bool   // wrap the retriever in a read-through cache
	CacheBackend string // "memdb" or "goleveldb"
	CacheDir     string // directory for the goleveldb cache files

	// Genesis Key Configuration
	GenesisKeyFile string // path to the trusted genesis key YAML file
	GenesisKeyHex  string // inline hex key, overrides the file when set

	// Walk Configuration
	MaxWalkSteps int // 0 means unbounded

	// Server Configuration
	ListenAddr  string
	MetricsAddr string

	// Service Configuration
	ValidatorID string
	NetworkName string
	LogLevel    string

	// Firestore Configuration (audit trail of validation events)
	FirestoreEnabled        bool
	FirebaseProjectID       string
	FirebaseCredentialsFile string
}

// Load reads configuration from environment variables. Optional
// settings carry safe defaults; Validate reports what is missing for
// the selected retriever.
func Load() (*Config, error) {
	cfg := &Config{
		RetrieverKind: getEnv("CERT_RETRIEVER", RetrieverMemory),
		AggregatorURL: getEnv("AGGREGATOR_URL", ""),
		DatabaseURL:   getEnv("DATABASE_URL", ""),
		HTTPTimeout:   getEnvDuration("HTTP_TIMEOUT", 30*time.Second),

		CacheEnabled: getEnvBool("CACHE_ENABLED", false),
		CacheBackend: getEnv("CACHE_BACKEND", "goleveldb"),
		CacheDir:     getEnv("CACHE_DIR", "./data/cache"),

		GenesisKeyFile: getEnv("GENESIS_KEY_FILE", ""),
		GenesisKeyHex:  getEnv("GENESIS_VERIFICATION_KEY", ""),

		MaxWalkSteps: getEnvInt("MAX_WALK_STEPS", 0),

		ListenAddr:  getEnv("API_HOST", "0.0.0.0") + ":" + getEnv("API_PORT", "8080"),
		MetricsAddr: getEnv("API_HOST", "0.0.0.0") + ":" + getEnv("METRICS_PORT", "9090"),

		ValidatorID: getEnv("VALIDATOR_ID", "verifier-default"),
		NetworkName: getEnv("NETWORK_NAME", "testnet"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),

		FirestoreEnabled:        getEnvBool("FIRESTORE_ENABLED", false),
		FirebaseProjectID:       getEnv("FIREBASE_PROJECT_ID", ""),
		FirebaseCredentialsFile: getEnv("GOOGLE_APPLICATION_CREDENTIALS", ""),
	}

	return cfg, nil
}

// Validate checks that the configuration is complete for the selected
// retriever and genesis key source.
func (c *Config) Validate() error {
	var errors []string

	switch c.RetrieverKind {
	case RetrieverMemory:
	case RetrieverHTTP:
		if c.AggregatorURL == "" {
			errors = append(errors, "AGGREGATOR_URL is required when CERT_RETRIEVER=http")
		}
	case RetrieverPostgres:
		if c.DatabaseURL == "" {
			errors = append(errors, "DATABASE_URL is required when CERT_RETRIEVER=postgres")
		}
	default:
		errors = append(errors, fmt.Sprintf("CERT_RETRIEVER=%q is not one of memory, http, postgres", c.RetrieverKind))
	}

	if c.GenesisKeyFile == "" && c.GenesisKeyHex == "" {
		errors = append(errors, "GENESIS_KEY_FILE or GENESIS_VERIFICATION_KEY is required")
	}

	if c.FirestoreEnabled && c.FirebaseProjectID == "" {
		errors = append(errors, "FIREBASE_PROJECT_ID is required when FIRESTORE_ENABLED=true")
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(errors, "\n  - "))
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

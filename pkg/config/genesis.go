// Copyright 2025 Certen Protocol
//
// Trusted genesis key loading. The genesis verification key is the
// root of trust for every chain validation, so it lives in an
// explicit, operator-managed YAML file rather than a bare environment
// variable. Values support ${VAR} environment substitution.

package config

import (
	"encoding/hex"
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"

	"github.com/certen/mithril-verifier/pkg/entities"
)

// GenesisKeyFile is the on-disk shape of the trusted genesis key
// configuration.
type GenesisKeyFile struct {
	Genesis GenesisKeySettings `yaml:"genesis"`
}

// GenesisKeySettings names the network a key is trusted for and the
// key itself, hex-encoded.
type GenesisKeySettings struct {
	Network         string `yaml:"network"`
	VerificationKey string `yaml:"verification_key"`
}

var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// substituteEnvVars replaces ${VAR} references with their environment
// values; unset variables substitute to empty.
func substituteEnvVars(data []byte) []byte {
	return envVarPattern.ReplaceAllFunc(data, func(match []byte) []byte {
		name := envVarPattern.FindSubmatch(match)[1]
		return []byte(os.Getenv(string(name)))
	})
}

// LoadGenesisKeyFile parses the trusted genesis key YAML at path.
func LoadGenesisKeyFile(path string) (*GenesisKeyFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read genesis key file: %w", err)
	}

	var file GenesisKeyFile
	if err := yaml.Unmarshal(substituteEnvVars(data), &file); err != nil {
		return nil, fmt.Errorf("config: parse genesis key file: %w", err)
	}
	if file.Genesis.VerificationKey == "" {
		return nil, fmt.Errorf("config: genesis key file %s carries no verification_key", path)
	}
	return &file, nil
}

// GenesisVerificationKey resolves the configured genesis key: the
// inline hex value wins over the file when both are set.
func (c *Config) GenesisVerificationKey() (entities.GenesisVerificationKey, error) {
	keyHex := c.GenesisKeyHex
	if keyHex == "" {
		if c.GenesisKeyFile == "" {
			return nil, fmt.Errorf("config: no genesis verification key configured")
		}
		file, err := LoadGenesisKeyFile(c.GenesisKeyFile)
		if err != nil {
			return nil, err
		}
		keyHex = file.Genesis.VerificationKey
	}

	key, err := hex.DecodeString(keyHex)
	if err != nil {
		return nil, fmt.Errorf("config: decode genesis verification key: %w", err)
	}
	return entities.GenesisVerificationKey(key), nil
}

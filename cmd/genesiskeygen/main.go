// Genesis Key Generation CLI
// Generates the Ed25519 genesis key pair that bootstraps trust for a
// certificate chain: the public half as trusted YAML configuration,
// the private half to a local file. This is the only place a genesis
// private key is ever produced; the verifier only ever verifies.

package main

import (
	"encoding/hex"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/certen/mithril-verifier/pkg/config"
	"github.com/certen/mithril-verifier/pkg/genesissig"
)

func main() {
	outDir := flag.String("out-dir", ".", "directory to write genesis.yaml and genesis.key into")
	network := flag.String("network", "testnet", "network name recorded in the trusted configuration")
	flag.Parse()

	if err := run(*outDir, *network); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(outDir, network string) error {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	vk, priv, err := genesissig.GenerateKey()
	if err != nil {
		return fmt.Errorf("generate genesis key pair: %w", err)
	}

	file := config.GenesisKeyFile{
		Genesis: config.GenesisKeySettings{
			Network:         network,
			VerificationKey: hex.EncodeToString(vk),
		},
	}
	yamlBytes, err := yaml.Marshal(&file)
	if err != nil {
		return fmt.Errorf("marshal trusted configuration: %w", err)
	}

	yamlPath := filepath.Join(outDir, "genesis.yaml")
	if err := os.WriteFile(yamlPath, yamlBytes, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", yamlPath, err)
	}

	keyPath := filepath.Join(outDir, "genesis.key")
	if err := os.WriteFile(keyPath, []byte(hex.EncodeToString(priv)), 0o600); err != nil {
		return fmt.Errorf("write %s: %w", keyPath, err)
	}

	fmt.Printf("Trusted configuration written to %s\n", yamlPath)
	fmt.Printf("Private key written to %s - keep it offline\n", keyPath)
	return nil
}

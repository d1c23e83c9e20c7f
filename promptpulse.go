package main

import (
	_ "embed"
	"fmt"
	"os"

	cli "github.com/neboloop/promptpulse/cmd/promptpulse"
	"github.com/neboloop/promptpulse/internal/config"

	"github.com/joho/godotenv"
)

//go:embed etc/promptpulse.yaml
var embeddedConfig []byte

func main() {
	// Load .env file if present (ignore error if not found)
	_ = godotenv.Load()

	// Fail early if the embedded defaults don't parse
	if _, err := config.LoadFromBytes(embeddedConfig); err != nil {
		fmt.Printf("Failed to load embedded config: %v\n", err)
		os.Exit(1)
	}

	if err := cli.SetupRootCmd(embeddedConfig).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/neboloop/promptpulse/internal/config"
	"github.com/neboloop/promptpulse/internal/defaults"
	"github.com/neboloop/promptpulse/internal/logging"
)

// Shared CLI flags (used across multiple command files)
var (
	cfgFile string
	verbose bool
	jsonOut bool
)

// ServerConfig holds the loaded configuration (set before any command runs)
var ServerConfig *config.Config

// DataDir is the resolved data directory.
var DataDir string

// baseConfig is the embedded default configuration.
var baseConfig []byte

// SetupRootCmd configures the root command with all subcommands and flags
func SetupRootCmd(base []byte) *cobra.Command {
	baseConfig = base

	rootCmd := &cobra.Command{
		Use:   "promptpulse",
		Short: "PromptPulse - scheduled prompts for claude.ai",
		Long: `PromptPulse periodically opens claude.ai in a browser tab, types your prompt,
sends it, waits for the reply and closes the tab.

Just type 'promptpulse' to start the daemon (same as 'promptpulse serve').`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return loadConfig()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: <data dir>/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "print JSON instead of text")

	rootCmd.AddCommand(ServeCmd())
	rootCmd.AddCommand(RunCmd())
	rootCmd.AddCommand(SettingsCmd())
	rootCmd.AddCommand(StatusCmd())
	rootCmd.AddCommand(RunsCmd())
	rootCmd.AddCommand(DoctorCmd())
	rootCmd.AddCommand(TokenCmd())

	return rootCmd
}

func loadConfig() error {
	dir, err := defaults.EnsureDataDir()
	if err != nil {
		return fmt.Errorf("initialize data directory: %w", err)
	}
	DataDir = dir

	c, err := config.Load(baseConfig, configPath(), dir)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if verbose {
		c.Log.Level = "debug"
	}
	logging.Setup(os.Stderr, c.Log.Level)
	ServerConfig = &c
	return nil
}

func configPath() string {
	if cfgFile != "" {
		return cfgFile
	}
	return filepath.Join(DataDir, defaults.ConfigFile)
}

// Package defaults resolves the promptpulse data directory and seeds it with
// the embedded user configuration template.
//
// Platform paths:
//
//	macOS:   ~/Library/Application Support/PromptPulse/
//	Windows: %AppData%\PromptPulse\
//	Linux:   ~/.config/promptpulse/
//
// Override with PROMPTPULSE_DATA_DIR environment variable.
package defaults

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

//go:embed dotpromptpulse/*
var defaultFiles embed.FS

const (
	// ConfigFile is the user configuration overlay inside the data directory.
	ConfigFile = "config.yaml"
	// DatabaseFile is the SQLite database inside the data directory.
	DatabaseFile = "promptpulse.db"
	// ProfileDir holds the dedicated browser profile.
	ProfileDir = "browser-profile"
)

// DataDir returns the platform-appropriate data directory.
// Set PROMPTPULSE_DATA_DIR to override.
func DataDir() (string, error) {
	if dir := os.Getenv("PROMPTPULSE_DATA_DIR"); dir != "" {
		return dir, nil
	}

	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine config directory: %w", err)
	}

	// Linux: lowercase per XDG convention
	if runtime.GOOS == "linux" {
		return filepath.Join(configDir, "promptpulse"), nil
	}
	return filepath.Join(configDir, "PromptPulse"), nil
}

// EnsureDataDir creates the data directory if it doesn't exist
// and copies default files if they're missing.
func EnsureDataDir() (string, error) {
	dir, err := DataDir()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create data directory: %w", err)
	}
	if err := copyDefaults(dir, false); err != nil {
		return "", err
	}
	return dir, nil
}

// Path joins name onto the data directory.
func Path(name string) (string, error) {
	dir, err := DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, name), nil
}

// Reset replaces the user config files with the embedded templates.
// The database is preserved.
func Reset(dir string) error {
	return copyDefaults(dir, true)
}

func copyDefaults(dir string, overwrite bool) error {
	return fs.WalkDir(defaultFiles, "dotpromptpulse", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path == "dotpromptpulse" {
			return nil
		}

		// embed.FS always uses forward slashes.
		relPath := strings.TrimPrefix(path, "dotpromptpulse/")
		destPath := filepath.Join(dir, relPath)

		if d.IsDir() {
			return os.MkdirAll(destPath, 0755)
		}

		if !overwrite {
			if _, err := os.Stat(destPath); err == nil {
				return nil
			}
		}

		data, err := defaultFiles.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read embedded %s: %w", path, err)
		}
		if err := os.WriteFile(destPath, data, 0644); err != nil {
			return fmt.Errorf("failed to write %s: %w", destPath, err)
		}
		return nil
	})
}

// GetDefault returns the content of a default file by name.
func GetDefault(name string) ([]byte, error) {
	return defaultFiles.ReadFile("dotpromptpulse/" + name)
}

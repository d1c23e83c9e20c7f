package cli

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/neboloop/promptpulse/internal/browser"
	"github.com/neboloop/promptpulse/internal/db"
	"github.com/neboloop/promptpulse/internal/keyring"
)

// DoctorCmd creates the doctor command for health checks
func DoctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check the installation and diagnose issues",
		Long: `Run diagnostics on your PromptPulse installation.

Checks:
  - Data directory and config file
  - Database
  - Chrome executable (and the DevTools endpoint for the playwright driver)
  - OS keychain for the API signing secret
  - Whether the daemon is answering`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDoctor(cmd.Context())
		},
	}
}

type checkResult struct {
	name    string
	status  string // "ok", "warn", "error"
	message string
}

func runDoctor(ctx context.Context) error {
	fmt.Println(titleStyle.Render("PromptPulse Doctor"))
	fmt.Println()

	var results []checkResult
	results = append(results, checkConfig()...)
	results = append(results, checkDatabase())
	results = append(results, checkBrowser()...)
	results = append(results, checkKeychain())
	results = append(results, checkDaemon(ctx))

	okCount, warnCount, errorCount := 0, 0, 0
	for _, r := range results {
		switch r.status {
		case "ok":
			fmt.Printf("%s %s: %s\n", okStyle.Render("✓"), r.name, r.message)
			okCount++
		case "warn":
			fmt.Printf("%s %s: %s\n", warnStyle.Render("⚠"), r.name, r.message)
			warnCount++
		case "error":
			fmt.Printf("%s %s: %s\n", errStyle.Render("✗"), r.name, r.message)
			errorCount++
		}
	}

	fmt.Println()
	fmt.Printf("Summary: %s", okStyle.Render(fmt.Sprintf("%d passed", okCount)))
	if warnCount > 0 {
		fmt.Printf("  %s", warnStyle.Render(fmt.Sprintf("%d warnings", warnCount)))
	}
	if errorCount > 0 {
		fmt.Printf("  %s", errStyle.Render(fmt.Sprintf("%d errors", errorCount)))
	}
	fmt.Println()

	if errorCount > 0 {
		return fmt.Errorf("%d checks failed", errorCount)
	}
	return nil
}

func checkConfig() []checkResult {
	results := []checkResult{{name: "Data Directory", status: "ok", message: DataDir}}

	path := configPath()
	if _, err := os.Stat(path); err != nil {
		results = append(results, checkResult{name: "Config File", status: "warn", message: path + " not found, using built-in defaults"})
	} else {
		results = append(results, checkResult{name: "Config File", status: "ok", message: path})
	}
	return results
}

func checkDatabase() checkResult {
	store, err := db.NewSQLite(ServerConfig.Database.SQLitePath)
	if err != nil {
		return checkResult{name: "Database", status: "error", message: err.Error()}
	}
	defer store.Close()
	if err := store.GetDB().Ping(); err != nil {
		return checkResult{name: "Database", status: "error", message: err.Error()}
	}
	return checkResult{name: "Database", status: "ok", message: ServerConfig.Database.SQLitePath}
}

func checkBrowser() []checkResult {
	cfg := ServerConfig.Browser
	exe, err := browser.FindChromeExecutable(cfg.ExecutablePath)
	if err != nil {
		return []checkResult{{name: "Browser", status: "error", message: err.Error() + " (set Browser.ExecutablePath)"}}
	}
	results := []checkResult{{name: "Browser", status: "ok", message: fmt.Sprintf("%s (%s, driver %s)", exe.Path, exe.Kind, cfg.Driver)}}

	if cfg.Driver == browser.DriverPlaywright {
		if browser.IsChromeReachable(cfg.CDPURL(), 2*time.Second) {
			results = append(results, checkResult{name: "DevTools", status: "ok", message: cfg.CDPURL()})
		} else {
			results = append(results, checkResult{name: "DevTools", status: "warn", message: cfg.CDPURL() + " not answering (Chrome is started on first run)"})
		}
	}
	return results
}

func checkKeychain() checkResult {
	if !ServerConfig.Auth.Enabled {
		return checkResult{name: "API Auth", status: "warn", message: "disabled; the local API accepts any caller"}
	}
	if os.Getenv("PROMPTPULSE_API_SECRET") != "" {
		return checkResult{name: "API Auth", status: "ok", message: "secret from PROMPTPULSE_API_SECRET"}
	}
	if !keyring.Available() {
		return checkResult{name: "API Auth", status: "error", message: "OS keychain unavailable; set PROMPTPULSE_API_SECRET"}
	}
	return checkResult{name: "API Auth", status: "ok", message: "secret in OS keychain"}
}

func checkDaemon(ctx context.Context) checkResult {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	url := ServerConfig.BaseURL() + "/health"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return checkResult{name: "Daemon", status: "error", message: err.Error()}
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return checkResult{name: "Daemon", status: "warn", message: "not running (start it with 'promptpulse serve')"}
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return checkResult{name: "Daemon", status: "warn", message: fmt.Sprintf("%s answered %d", url, resp.StatusCode)}
	}
	return checkResult{name: "Daemon", status: "ok", message: ServerConfig.BaseURL()}
}

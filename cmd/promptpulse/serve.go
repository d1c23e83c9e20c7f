package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/neboloop/promptpulse/internal/config"
	"github.com/neboloop/promptpulse/internal/logging"
	"github.com/neboloop/promptpulse/internal/server"
	"github.com/neboloop/promptpulse/internal/svc"
)

// ServeCmd creates the serve command (scheduler + local API)
func ServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the scheduler and the local API",
		Long: `Start the PromptPulse daemon: the recurring alarm, the browser automation,
and the local HTTP API (REST, websocket and MCP).`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}
}

func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

func runServe(parent context.Context) error {
	lockFile, err := acquireLock(DataDir)
	if err != nil {
		return fmt.Errorf("%w (only one daemon per data directory)", err)
	}
	defer releaseLock(lockFile)

	ctx, cancel := signalContext(parent)
	defer cancel()

	svcCtx, err := svc.NewServiceContext(*ServerConfig, DataDir)
	if err != nil {
		return err
	}
	defer svcCtx.Close()

	watcher, err := config.Watch(baseConfig, configPath(), DataDir, svcCtx.ApplyConfig)
	if err != nil {
		logging.Warn("config hot reload disabled", "error", err)
	} else {
		defer watcher.Close()
	}

	if err := svcCtx.Start(ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	printStartupBanner(svcCtx)

	return server.Run(ctx, svcCtx, server.ServerOptions{Quiet: !verbose})
}

func printStartupBanner(svcCtx *svc.ServiceContext) {
	c := svcCtx.Config()
	fmt.Println()
	fmt.Println(titleStyle.Render("  PromptPulse is running"))
	fmt.Println()
	fmt.Printf("  %s %s\n", labelStyle.Render("API:      "), c.BaseURL()+"/api/v1")
	if c.MCP.Enabled {
		fmt.Printf("  %s %s\n", labelStyle.Render("MCP:      "), c.BaseURL()+"/mcp")
	}
	if next := svcCtx.Scheduler.Next(); next != nil {
		fmt.Printf("  %s %s\n", labelStyle.Render("Next run: "), next.ScheduledAt.Local().Format("Mon 15:04"))
	}
	fmt.Printf("  %s %s\n", labelStyle.Render("Data:     "), mutedStyle.Render(DataDir))
	fmt.Println()
	fmt.Println(mutedStyle.Render("  Press Ctrl+C to stop"))
	fmt.Println()
}

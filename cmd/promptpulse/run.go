package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/neboloop/promptpulse/internal/db"
	"github.com/neboloop/promptpulse/internal/launcher"
	"github.com/neboloop/promptpulse/internal/svc"
)

// openLocal builds a service for one-shot commands. The API is not served,
// so no signing secret is needed.
func openLocal() (*svc.ServiceContext, error) {
	c := *ServerConfig
	c.Auth.Enabled = false
	return svc.NewServiceContext(c, DataDir)
}

// RunCmd creates the run command (one immediate run, no daemon)
func RunCmd() *cobra.Command {
	var prompt, model string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Send the prompt once, right now",
		Long: `Open the chat page, send the prompt and wait for the reply without starting
the daemon. Quiet hours are ignored.

Examples:
  promptpulse run
  promptpulse run --prompt "What's new today?" --model claude-3-5-haiku-20241022`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext(cmd.Context())
			defer cancel()

			svcCtx, err := openLocal()
			if err != nil {
				return err
			}
			defer svcCtx.Close()

			run, err := svcCtx.Launcher.Run(ctx, launcher.Request{
				Trigger: db.TriggerManual,
				Prompt:  prompt,
				Model:   model,
			})
			if run != nil {
				printRun(run)
			}
			return err
		},
	}

	cmd.Flags().StringVar(&prompt, "prompt", "", "prompt to send (default: stored setting)")
	cmd.Flags().StringVar(&model, "model", "", "model identifier (default: stored setting)")
	return cmd
}

func printRun(run *db.Run) {
	if jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		enc.Encode(run)
		return
	}
	fmt.Printf("%s %s\n", labelStyle.Render("Run:     "), run.ID)
	fmt.Printf("%s %s\n", labelStyle.Render("Status:  "), statusStyle(run.Status).Render(run.Status))
	fmt.Printf("%s %s\n", labelStyle.Render("Model:   "), run.Model)
	if run.EditorKind != "" {
		fmt.Printf("%s %s\n", labelStyle.Render("Editor:  "), run.EditorKind)
	}
	if run.SubmitMethod != "" {
		fmt.Printf("%s %s\n", labelStyle.Render("Submit:  "), run.SubmitMethod)
	}
	fmt.Printf("%s %t\n", labelStyle.Render("Response:"), run.ResponseDetected)
	if run.Error != "" {
		fmt.Printf("%s %s\n", labelStyle.Render("Error:   "), errStyle.Render(run.Error))
	}
}

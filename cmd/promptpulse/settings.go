package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/neboloop/promptpulse/internal/settings"
)

// SettingsCmd creates the settings command group
func SettingsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show or change the prompt settings",
	}
	cmd.AddCommand(settingsShowCmd(), settingsSetCmd(), settingsResetCmd())
	return cmd
}

func settingsShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the stored settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			svcCtx, err := openLocal()
			if err != nil {
				return err
			}
			defer svcCtx.Close()

			set, err := svcCtx.Settings.Load(cmd.Context())
			if err != nil {
				return err
			}
			printSettings(set)
			return nil
		},
	}
}

func settingsSetCmd() *cobra.Command {
	var (
		prompt, model string
		quiet         string
		start, end    int
	)

	cmd := &cobra.Command{
		Use:   "set",
		Short: "Change one or more settings",
		Long: `Change the stored settings. Only the flags you pass are changed.

Examples:
  promptpulse settings set --prompt "Good morning"
  promptpulse settings set --quiet on --quiet-start 22 --quiet-end 7`,
		RunE: func(cmd *cobra.Command, args []string) error {
			var p settings.Patch
			flags := cmd.Flags()
			if flags.Changed("prompt") {
				p.Prompt = &prompt
			}
			if flags.Changed("model") {
				p.Model = &model
			}
			if flags.Changed("quiet") {
				on, err := parseSwitch(quiet)
				if err != nil {
					return err
				}
				p.QuietHoursEnabled = &on
			}
			if flags.Changed("quiet-start") {
				p.QuietStartHour = &start
			}
			if flags.Changed("quiet-end") {
				p.QuietEndHour = &end
			}
			if p.Empty() {
				return fmt.Errorf("nothing to change; see --help")
			}

			svcCtx, err := openLocal()
			if err != nil {
				return err
			}
			defer svcCtx.Close()

			set, err := svcCtx.Settings.Update(cmd.Context(), p)
			if err != nil {
				return err
			}
			printSettings(set)
			return nil
		},
	}

	cmd.Flags().StringVar(&prompt, "prompt", "", "prompt text")
	cmd.Flags().StringVar(&model, "model", "", "model identifier")
	cmd.Flags().StringVar(&quiet, "quiet", "", "quiet hours on|off")
	cmd.Flags().IntVar(&start, "quiet-start", settings.DefaultStartHour, "quiet hours start (0-23)")
	cmd.Flags().IntVar(&end, "quiet-end", settings.DefaultEndHour, "quiet hours end (0-23)")
	return cmd
}

func settingsResetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Restore the default settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			svcCtx, err := openLocal()
			if err != nil {
				return err
			}
			defer svcCtx.Close()

			set, err := svcCtx.Settings.Reset(cmd.Context())
			if err != nil {
				return err
			}
			printSettings(set)
			return nil
		},
	}
}

func parseSwitch(s string) (bool, error) {
	switch s {
	case "on", "yes":
		return true, nil
	case "off", "no":
		return false, nil
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("expected on or off, got %q", s)
	}
	return b, nil
}

func printSettings(set settings.Settings) {
	if jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		enc.Encode(set)
		return
	}
	quiet := mutedStyle.Render("off")
	if set.QuietHoursEnabled {
		quiet = okStyle.Render("on") + " " + set.Window().String()
	}
	fmt.Printf("%s %q\n", labelStyle.Render("Prompt:     "), set.Prompt)
	fmt.Printf("%s %s\n", labelStyle.Render("Model:      "), set.Model)
	fmt.Printf("%s %s\n", labelStyle.Render("Quiet hours:"), quiet)
}

package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/neboloop/promptpulse/internal/db"
	"github.com/neboloop/promptpulse/internal/status"
)

// StatusCmd creates the status command
func StatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the next run and quiet-hours state",
		RunE: func(cmd *cobra.Command, args []string) error {
			svcCtx, err := openLocal()
			if err != nil {
				return err
			}
			defer svcCtx.Close()

			st, err := svcCtx.Status(cmd.Context())
			if err != nil {
				return err
			}
			printStatus(st)
			return nil
		},
	}
}

func printStatus(st status.Status) {
	if jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		enc.Encode(st)
		return
	}
	text := st.Text
	if st.Active {
		text = okStyle.Render(text)
	} else {
		text = warnStyle.Render(text)
	}
	fmt.Printf("%s %s\n", labelStyle.Render("Status:  "), text)
	if st.NextRun != nil {
		fmt.Printf("%s %s %s\n", labelStyle.Render("Next run:"), st.Countdown,
			mutedStyle.Render("("+st.NextRun.Local().Format("Mon 15:04")+", "+st.AlarmKind+")"))
	}
	if st.QuietWindow != "" {
		fmt.Printf("%s %s\n", labelStyle.Render("Quiet:   "), st.QuietWindow)
	}
}

// RunsCmd creates the runs command
func RunsCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recent automation runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			svcCtx, err := openLocal()
			if err != nil {
				return err
			}
			defer svcCtx.Close()

			runs, err := svcCtx.DB.ListRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}
			printRuns(runs)
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of runs to show")
	return cmd
}

func printRuns(runs []db.Run) {
	if jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		enc.Encode(runs)
		return
	}
	if len(runs) == 0 {
		fmt.Println(mutedStyle.Render("No runs yet."))
		return
	}

	w := tabwriter.NewWriter(lipgloss.DefaultRenderer().Output(), 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, titleStyle.Render("Started")+"\t"+titleStyle.Render("Trigger")+"\t"+
		titleStyle.Render("Status")+"\t"+titleStyle.Render("Model")+"\t"+titleStyle.Render("Took")+"\t")
	for _, r := range runs {
		took := "-"
		if r.FinishedAt != nil {
			took = r.FinishedAt.Sub(r.StartedAt).Round(time.Second).String()
		}
		fmt.Fprintln(w, mutedStyle.Render(r.StartedAt.Local().Format("Jan 02 15:04"))+"\t"+
			r.Trigger+"\t"+
			statusStyle(r.Status).Render(r.Status)+"\t"+
			r.Model+"\t"+
			took+"\t")
	}
	w.Flush()
}

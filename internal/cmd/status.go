package cmd

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/gemini-nvim/ide-companion/internal/discovery"
	"github.com/gemini-nvim/ide-companion/internal/style"
)

var statusCmd = &cobra.Command{
	Use:     "status",
	GroupID: GroupDiag,
	Short:   "List published bridges",
	Long: `List the bridges advertised in the discovery directory.

Each running bridge publishes a descriptor file; this command shows
them with the owning pid, port, workspace and whether the process is
still alive. Stale entries are cleaned up automatically by running
bridges, or on demand with 'gemini-companion clean'.

Examples:
  gemini-companion status
  gemini-companion status --plain`,
	RunE: runStatus,
}

var statusPlain bool

func init() {
	statusCmd.Flags().BoolVar(&statusPlain, "plain", false, "Tab-separated output without styling")

	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	dir := discovery.Dir()
	bridges, err := discovery.List(dir)
	if err != nil {
		return fmt.Errorf("reading discovery directory: %w", err)
	}

	plain := statusPlain || !term.IsTerminal(int(os.Stdout.Fd()))
	if plain {
		for _, b := range bridges {
			fmt.Printf("%d\t%d\t%s\t%s\n", b.PID, b.Port, b.WorkspacePath, liveness(b))
		}
		return nil
	}

	if len(bridges) == 0 {
		fmt.Println(style.Dim.Render("No bridges published."))
		return nil
	}

	table := style.NewTable(
		style.Column{Name: "PID", Width: 8, Align: style.AlignRight},
		style.Column{Name: "PORT", Width: 6, Align: style.AlignRight},
		style.Column{Name: "WORKSPACE", Width: 40},
		style.Column{Name: "AGE", Width: 8},
		style.Column{Name: "STATE", Width: 6},
	)
	for _, b := range bridges {
		table.AddRow(
			strconv.Itoa(b.PID),
			strconv.Itoa(b.Port),
			b.WorkspacePath,
			age(b.ModTime),
			liveness(b),
		)
	}

	fmt.Println(style.Bold.Render("Published Bridges"))
	fmt.Printf("  %s %s\n", style.Info.Render("Directory:"), dir)
	fmt.Print(table.Render())

	if dead := countDead(bridges); dead > 0 {
		style.PrintWarning("%d descriptor(s) belong to dead processes; run 'gemini-companion clean'", dead)
	}
	return nil
}

func countDead(bridges []discovery.Bridge) int {
	dead := 0
	for _, b := range bridges {
		if !b.Alive {
			dead++
		}
	}
	return dead
}

func liveness(b discovery.Bridge) string {
	if b.Alive {
		return "live"
	}
	return "dead"
}

func age(t time.Time) string {
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%ds", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d.Minutes()))
	default:
		return fmt.Sprintf("%dh", int(d.Hours()))
	}
}

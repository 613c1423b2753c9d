package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gemini-nvim/ide-companion/internal/discovery"
	"github.com/gemini-nvim/ide-companion/internal/style"
)

var cleanCmd = &cobra.Command{
	Use:     "clean",
	GroupID: GroupDiag,
	Short:   "Remove stale discovery files",
	Long: `Scan the discovery directory and remove files left behind by
bridges that are no longer running, plus anything older than 24 hours.

Running bridges do this automatically on startup; clean forces a scan
without starting one.`,
	RunE: runClean,
}

func init() {
	rootCmd.AddCommand(cleanCmd)
}

func runClean(cmd *cobra.Command, args []string) error {
	dir := discovery.Dir()

	before, err := discovery.List(dir)
	if err != nil {
		return fmt.Errorf("reading discovery directory: %w", err)
	}

	if err := discovery.Reap(dir); err != nil {
		return fmt.Errorf("reaping %s: %w", dir, err)
	}

	after, err := discovery.List(dir)
	if err != nil {
		return fmt.Errorf("reading discovery directory: %w", err)
	}

	removed := len(before) - len(after)
	if removed < 0 {
		removed = 0
	}
	fmt.Printf("%s Removed %d stale descriptor(s), %d remaining\n",
		style.SuccessPrefix, removed, len(after))
	return nil
}

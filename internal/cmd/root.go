// Package cmd implements the gemini-companion CLI.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/gemini-nvim/ide-companion/internal/style"
)

// Version and Build are set at link time.
var (
	Version = "0.1.0"
	Build   = "dev"
)

// Command group IDs.
const (
	GroupBridge = "bridge"
	GroupDiag   = "diag"
)

var rootCmd = &cobra.Command{
	Use:   "gemini-companion",
	Short: "Bridge between Neovim and the Gemini CLI",
	Long: `gemini-companion is a per-editor side-car that connects a running
Neovim instance to the Gemini CLI.

It attaches to the Neovim RPC socket, tracks open files, cursor
position and visual selections, and serves that context to the CLI
over a localhost MCP endpoint. The CLI can also drive native diff
views in the editor through the openDiff and closeDiff tools.

Typically started from Neovim itself, one bridge per editor instance.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.AddGroup(&cobra.Group{ID: GroupBridge, Title: "Bridge Commands:"})
	rootCmd.AddGroup(&cobra.Group{ID: GroupDiag, Title: "Diagnostics:"})
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", style.ErrorPrefix, err)
		return 1
	}
	return 0
}

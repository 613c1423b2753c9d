// Package style provides consistent terminal styling using Lipgloss.
package style

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

var (
	Bold    = lipgloss.NewStyle().Bold(true)
	Dim     = lipgloss.NewStyle().Faint(true)
	Success = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	Warning = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	Error   = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	Info    = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
)

var (
	SuccessPrefix = Success.Render("✓")
	WarningPrefix = Warning.Render("!")
	ErrorPrefix   = Error.Render("✗")
)

// PrintWarning prints a formatted warning line to stdout.
func PrintWarning(format string, args ...any) {
	fmt.Printf("%s %s\n", WarningPrefix, fmt.Sprintf(format, args...))
}

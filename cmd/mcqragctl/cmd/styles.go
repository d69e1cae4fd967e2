package cmd

import (
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
)

// styles holds the static output styles used by subcommand Run funcs.
// Unlike the teacher's asitop-inspired TUI palette, this CLI never
// redraws in place — every style is applied once per printed line.
type styles struct {
	Header  lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
	Dim     lipgloss.Style
}

func defaultStyles() styles {
	return styles{
		Header:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("154")),
		Success: lipgloss.NewStyle().Foreground(lipgloss.Color("154")),
		Warning: lipgloss.NewStyle().Foreground(lipgloss.Color("220")),
		Error:   lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
		Dim:     lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
	}
}

func plainStyles() styles {
	plain := lipgloss.NewStyle()
	return styles{Header: plain, Success: plain, Warning: plain, Error: plain, Dim: plain}
}

// resolveStyles picks the styled or plain palette based on whether
// stdout is a terminal, unless noColor forces plain output.
func resolveStyles(noColor bool) styles {
	if noColor {
		return plainStyles()
	}
	if fd := os.Stdout.Fd(); isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd) {
		return defaultStyles()
	}
	return plainStyles()
}

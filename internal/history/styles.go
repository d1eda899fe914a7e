package history

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

// Style definitions.
var (
	// TitleStyle for headers.
	TitleStyle = lipgloss.NewStyle().Bold(true)

	// HelpStyle for help text.
	HelpStyle = lipgloss.NewStyle().Faint(true)

	// ErrorStyle for error messages.
	ErrorStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))

	ActiveTabStyle = lipgloss.NewStyle().
			Bold(true).
			Underline(true).
			Padding(0, 1)

	InactiveTabStyle = lipgloss.NewStyle().
				Faint(true).
				Padding(0, 1)
)

// FormatPnL renders a trade result with a sign and a direction marker.
func FormatPnL(pnl float64) string {
	switch {
	case pnl > 0:
		return fmt.Sprintf("+%.2f ▲", pnl)
	case pnl < 0:
		return fmt.Sprintf("%.2f ▼", pnl)
	default:
		return "0.00"
	}
}

package tui

import "github.com/charmbracelet/lipgloss"

// Theme holds the styles used by every view
type Theme struct {
	Dark bool

	Title    lipgloss.Style
	Muted    lipgloss.Style
	Done     lipgloss.Style
	Check    lipgloss.Style
	Selected lipgloss.Style
	Success  lipgloss.Style
	Error    lipgloss.Style
	Info     lipgloss.Style
	Panel    lipgloss.Style
	Focused  lipgloss.Style
}

// NewTheme builds the dark or light palette
func NewTheme(dark bool) Theme {
	fg, muted, accent, border := lipgloss.Color("252"), lipgloss.Color("244"), lipgloss.Color("12"), lipgloss.Color("8")
	if !dark {
		fg, muted, accent, border = lipgloss.Color("235"), lipgloss.Color("243"), lipgloss.Color("25"), lipgloss.Color("250")
	}

	panel := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(border).
		Padding(0, 1)

	return Theme{
		Dark:     dark,
		Title:    lipgloss.NewStyle().Bold(true).Foreground(accent),
		Muted:    lipgloss.NewStyle().Foreground(muted),
		Done:     lipgloss.NewStyle().Foreground(muted).Strikethrough(true),
		Check:    lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
		Selected: lipgloss.NewStyle().Bold(true).Foreground(fg),
		Success:  lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
		Error:    lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true),
		Info:     lipgloss.NewStyle().Foreground(accent),
		Panel:    panel,
		Focused:  panel.BorderForeground(accent),
	}
}

// Toggle returns the opposite palette
func (t Theme) Toggle() Theme {
	return NewTheme(!t.Dark)
}

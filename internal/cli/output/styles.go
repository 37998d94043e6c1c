package output

import (
	"io"

	"github.com/charmbracelet/lipgloss"
)

// Styles holds the lipgloss styles used by the CLI.
type Styles struct {
	Header  lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
	Info    lipgloss.Style
	Muted   lipgloss.Style
	Bold    lipgloss.Style
	NodeID  lipgloss.Style
}

// NewStyles creates styles bound to w. Without a terminal every style is
// plain so piped output carries no escape sequences.
func NewStyles(w io.Writer, isTTY bool) *Styles {
	re := lipgloss.NewRenderer(w)
	if !isTTY {
		plain := re.NewStyle()
		return &Styles{
			Header:  plain,
			Success: plain,
			Warning: plain,
			Error:   plain,
			Info:    plain,
			Muted:   plain,
			Bold:    plain,
			NodeID:  plain,
		}
	}

	return &Styles{
		Header:  re.NewStyle().Bold(true).Underline(true),
		Success: re.NewStyle().Foreground(lipgloss.Color("10")),
		Warning: re.NewStyle().Foreground(lipgloss.Color("11")),
		Error:   re.NewStyle().Foreground(lipgloss.Color("9")).Bold(true),
		Info:    re.NewStyle().Foreground(lipgloss.Color("12")),
		Muted:   re.NewStyle().Foreground(lipgloss.Color("8")),
		Bold:    re.NewStyle().Bold(true),
		NodeID:  re.NewStyle().Foreground(lipgloss.Color("14")),
	}
}

package output

import "github.com/charmbracelet/lipgloss"

// ANSI 256-color palette.
const (
	ColorPrimary = lipgloss.Color("39")
	ColorSuccess = lipgloss.Color("42")
	ColorWarning = lipgloss.Color("214")
	ColorDanger  = lipgloss.Color("196")
	ColorMuted   = lipgloss.Color("245")
)

// Box styles.
var (
	HeaderBox = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorPrimary).
			Padding(0, 1).
			MarginBottom(1)

	FooterBox = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorMuted).
			Padding(0, 1).
			MarginTop(1)
)

// Text styles.
var (
	LabelStyle = lipgloss.NewStyle().Foreground(ColorMuted)
	ValueStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("255"))
	MutedStyle = lipgloss.NewStyle().Foreground(ColorMuted)
	SizeStyle  = lipgloss.NewStyle().Foreground(ColorPrimary).Bold(true)
	DBStyle    = lipgloss.NewStyle().Foreground(ColorSuccess).Bold(true)

	// StatusOK and StatusFailed color dump/restore result lines.
	StatusOK     = lipgloss.NewStyle().Foreground(ColorSuccess)
	StatusFailed = lipgloss.NewStyle().Foreground(ColorDanger)
	WarningStyle = lipgloss.NewStyle().Foreground(ColorWarning)

	TableHeaderStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(ColorMuted).
				PaddingRight(2)
)

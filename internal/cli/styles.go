// Package cli renders trex's command line output with lipgloss.
package cli

import (
	"github.com/charmbracelet/lipgloss"
)

// Fossil green, the TRex accent.
var (
	AccentColor = lipgloss.Color("#7BC96F")
	MutedColor  = lipgloss.Color("#666666")
	BorderColor = lipgloss.Color("#333")
)

var (
	// SubtleStyle formats secondary details such as paths and hints.
	SubtleStyle = lipgloss.NewStyle().Foreground(MutedColor)

	TableHeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(AccentColor).PaddingRight(2)
	TableCellStyle   = lipgloss.NewStyle().PaddingRight(2)

	promptStyle = lipgloss.NewStyle().Bold(true).Foreground(AccentColor)
)

// Icons.
const (
	SuccessIcon = "✓"
	ErrorIcon   = "✗"
	WarningIcon = "⚠️"
	InfoIcon    = "ℹ️"
	TRexIcon    = "🦖"
	EyeIcon     = "👁️"
	FolderIcon  = "🗄️"
)

type messageKind struct {
	style lipgloss.Style
	icon  string
}

func (k messageKind) render(message string) string {
	return k.style.Render(k.icon + " " + message)
}

var (
	successMessage = messageKind{icon: SuccessIcon, style: lipgloss.NewStyle().Foreground(lipgloss.Color("#4ECDC4"))}
	errorMessage   = messageKind{icon: ErrorIcon, style: lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B"))}
	warningMessage = messageKind{icon: WarningIcon, style: lipgloss.NewStyle().Foreground(lipgloss.Color("#FFE66D"))}
	infoMessage    = messageKind{icon: InfoIcon, style: lipgloss.NewStyle().Foreground(lipgloss.Color("#95E1D3"))}
)

// FormatSuccess formats a success message with icon.
func FormatSuccess(message string) string { return successMessage.render(message) }

// FormatError formats an error message with icon.
func FormatError(message string) string { return errorMessage.render(message) }

// FormatWarning formats a warning message with icon.
func FormatWarning(message string) string { return warningMessage.render(message) }

// FormatInfo formats an info message with icon.
func FormatInfo(message string) string { return infoMessage.render(message) }

// FormatPrompt formats a question awaiting input.
func FormatPrompt(prompt string) string {
	return promptStyle.Render(prompt + " → ")
}

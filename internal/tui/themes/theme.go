// Package themes holds the color schemes of the watch mode interface.
package themes

import (
	"sort"

	"github.com/charmbracelet/lipgloss"
)

// Palette is the handful of colors a theme is derived from.
type Palette struct {
	Accent  lipgloss.Color
	Text    lipgloss.Color
	Subtext lipgloss.Color
	Surface lipgloss.Color
	Border  lipgloss.Color
	Green   lipgloss.Color
	Yellow  lipgloss.Color
	Red     lipgloss.Color
	Blue    lipgloss.Color
}

// Theme is the set of styles the status screen renders with.
type Theme struct {
	Name string

	Title     lipgloss.Style
	Label     lipgloss.Style
	Value     lipgloss.Style
	Excerpt   lipgloss.Style
	Frame     lipgloss.Style
	Hint      lipgloss.Style
	Watching  lipgloss.Style
	Paused    lipgloss.Style
	Ready     lipgloss.Style
	Idle      lipgloss.Style
	Failure   lipgloss.Style
	Highlight lipgloss.Color
}

// LabelWidth is the column the status values line up on.
const LabelWidth = 10

// New derives a theme from a palette.
func New(name string, p Palette) Theme {
	bold := lipgloss.NewStyle().Bold(true)
	return Theme{
		Name:      name,
		Title:     bold.Foreground(p.Accent).MarginBottom(1),
		Label:     lipgloss.NewStyle().Foreground(p.Subtext).Width(LabelWidth),
		Value:     lipgloss.NewStyle().Foreground(p.Text),
		Excerpt:   lipgloss.NewStyle().Foreground(p.Text).Background(p.Surface).Padding(0, 1),
		Frame:     lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(p.Border).Padding(1, 2),
		Hint:      lipgloss.NewStyle().Foreground(p.Subtext).Faint(true),
		Watching:  bold.Foreground(p.Green),
		Paused:    bold.Foreground(p.Yellow),
		Ready:     bold.Foreground(p.Blue),
		Idle:      lipgloss.NewStyle().Foreground(p.Subtext).Italic(true),
		Failure:   bold.Foreground(p.Red),
		Highlight: p.Accent,
	}
}

var registry = map[string]Theme{
	"default": New("default", Palette{
		Accent:  "#7BC96F",
		Text:    "#fafafa",
		Subtext: "#a3a3a3",
		Surface: "#262626",
		Border:  "#404040",
		Green:   "#10b981",
		Yellow:  "#f59e0b",
		Red:     "#ef4444",
		Blue:    "#3b82f6",
	}),
	"catppuccin-mocha": New("catppuccin-mocha", Palette{
		Accent:  "#a6e3a1",
		Text:    "#cdd6f4",
		Subtext: "#a6adc8",
		Surface: "#313244",
		Border:  "#45475a",
		Green:   "#a6e3a1",
		Yellow:  "#f9e2af",
		Red:     "#f38ba8",
		Blue:    "#89dceb",
	}),
	"catppuccin-latte": New("catppuccin-latte", Palette{
		Accent:  "#40a02b",
		Text:    "#4c4f69",
		Subtext: "#6c6f85",
		Surface: "#e6e9ef",
		Border:  "#bcc0cc",
		Green:   "#40a02b",
		Yellow:  "#df8e1d",
		Red:     "#d20f39",
		Blue:    "#1e66f5",
	}),
}

// Default is used when no theme is named.
var Default = registry["default"]

// GetTheme returns a theme by name, falling back to Default.
func GetTheme(name string) Theme {
	if t, ok := registry[name]; ok {
		return t
	}
	return Default
}

// Names lists the registered themes.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

package ui

import "github.com/charmbracelet/lipgloss"

// Adaptive colors pick the darker shade on light terminal backgrounds.
var (
	green = lipgloss.AdaptiveColor{Light: "#168D40", Dark: "#1ED760"}
	ink   = lipgloss.AdaptiveColor{Light: "#FFFFFF", Dark: "#121212"}
	red   = lipgloss.AdaptiveColor{Light: "#C0392B", Dark: "#FF6B6B"}
	amber = lipgloss.AdaptiveColor{Light: "#B26B00", Dark: "#F5A623"}
	muted = lipgloss.AdaptiveColor{Light: "#8A8A8A", Dark: "#6C6C6C"}
)

// palette groups the styles used by the views.
type palette struct {
	title lipgloss.Style
	ok    lipgloss.Style
	err   lipgloss.Style
	warn  lipgloss.Style
	help  lipgloss.Style
}

var styles = palette{
	title: lipgloss.NewStyle().Bold(true).Foreground(ink).Background(green).Padding(0, 1).MarginBottom(1),
	ok:    lipgloss.NewStyle().Bold(true).Foreground(green),
	err:   lipgloss.NewStyle().Bold(true).Foreground(red),
	warn:  lipgloss.NewStyle().Foreground(amber),
	help:  lipgloss.NewStyle().Foreground(muted),
}

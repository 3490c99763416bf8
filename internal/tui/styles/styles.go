// Package styles holds the lipgloss styles shared by the agent-chat
// terminal output and the watch view.
package styles

import (
	"hash/fnv"
	"time"

	"github.com/charmbracelet/lipgloss"
)

var (
	// Colors - all colors meet WCAG AA contrast (4.5:1) on dark backgrounds
	PrimaryColor   = lipgloss.Color("#A78BFA") // Purple
	SecondaryColor = lipgloss.Color("#10B981") // Green
	WarningColor   = lipgloss.Color("#F59E0B") // Amber
	ErrorColor     = lipgloss.Color("#F87171") // Red
	MutedColor     = lipgloss.Color("#9CA3AF") // Gray
	TextColor      = lipgloss.Color("#F9FAFB") // Light text
	BorderColor    = lipgloss.Color("#6B7280") // Gray

	// Convenience styles for colors
	Primary   = lipgloss.NewStyle().Foreground(PrimaryColor)
	Secondary = lipgloss.NewStyle().Foreground(SecondaryColor)
	Warning   = lipgloss.NewStyle().Foreground(WarningColor)
	Error     = lipgloss.NewStyle().Foreground(ErrorColor)
	Muted     = lipgloss.NewStyle().Foreground(MutedColor)
	Text      = lipgloss.NewStyle().Foreground(TextColor)

	Title = lipgloss.NewStyle().
		Bold(true).
		Foreground(PrimaryColor)

	// TableHeader styles the header row of list output.
	TableHeader = lipgloss.NewStyle().
			Bold(true).
			Underline(true).
			Foreground(MutedColor)

	// Label styles the leading word of a result line ("Locked", "Focus set:").
	Label = lipgloss.NewStyle().
		Bold(true).
		Foreground(SecondaryColor)

	// Footer is the lock strip under the watch view.
	Footer = lipgloss.NewStyle().
		Border(lipgloss.NormalBorder(), true, false, false, false).
		BorderForeground(BorderColor).
		Foreground(MutedColor)

	HelpKey = lipgloss.NewStyle().
		Bold(true).
		Foreground(PrimaryColor)

	HelpText = lipgloss.NewStyle().
			Foreground(MutedColor)
)

// authorColors are assigned to message authors by name hash.
var authorColors = []lipgloss.Color{
	"#60A5FA", // Blue
	"#34D399", // Emerald
	"#F472B6", // Pink
	"#FBBF24", // Yellow
	"#A78BFA", // Purple
	"#FB923C", // Orange
	"#2DD4BF", // Teal
	"#F87171", // Red
}

// AuthorColor returns a stable color for a session name, so one author is
// rendered in the same color across runs and processes.
func AuthorColor(name string) lipgloss.Color {
	h := fnv.New32a()
	_, _ = h.Write([]byte(name))
	return authorColors[h.Sum32()%uint32(len(authorColors))]
}

// Author returns the style for a message author.
func Author(name string) lipgloss.Style {
	return lipgloss.NewStyle().Bold(true).Foreground(AuthorColor(name))
}

// RemainingColor picks a color for a lock's remaining lifetime: muted when
// plenty is left, amber near expiry.
func RemainingColor(remaining time.Duration) lipgloss.Color {
	if remaining < time.Minute {
		return WarningColor
	}
	return MutedColor
}

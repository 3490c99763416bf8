// Package util provides small text helpers for terminal output.
package util

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
)

const ellipsis = "..."

// Truncate shortens s to at most maxWidth terminal columns, ending it with
// "..." when anything was cut. ANSI escape sequences are preserved and do
// not count toward the width, and wide characters count as two columns.
func Truncate(s string, maxWidth int) string {
	if maxWidth <= len(ellipsis) {
		return ellipsis
	}
	if lipgloss.Width(s) <= maxWidth {
		return s
	}
	return ansi.Truncate(s, maxWidth, ellipsis)
}

// OneLine collapses runs of whitespace, including newlines, into single
// spaces so a message body fits on one row.
func OneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Plural returns "1 message" or "n messages" style counts.
func Plural(n int, singular, plural string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, singular)
	}
	return fmt.Sprintf("%d %s", n, plural)
}

// Remaining renders a lock or focus lifetime compactly: "45s", "4m05s",
// "1h02m". Negative durations render as "expired".
func Remaining(d time.Duration) string {
	if d <= 0 {
		return "expired"
	}
	d = d.Round(time.Second)
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%ds", int(d/time.Second))
	case d < time.Hour:
		return fmt.Sprintf("%dm%02ds", int(d/time.Minute), int(d%time.Minute/time.Second))
	default:
		return fmt.Sprintf("%dh%02dm", int(d/time.Hour), int(d%time.Hour/time.Minute))
	}
}

// PadRight pads s with spaces to width columns, measuring ANSI-styled text
// by its visible width.
func PadRight(s string, width int) string {
	if w := lipgloss.Width(s); w < width {
		return s + strings.Repeat(" ", width-w)
	}
	return s
}

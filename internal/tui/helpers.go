package tui

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// formatTime renders a relative timestamp. A nil time renders as "".
func formatTime(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	d := time.Since(*t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	}
}

// formatDue renders a due date as "due Jan 2".
func formatDue(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return "due " + t.Format("Jan 2")
}

// truncStr truncates a string to maxLen runes, appending an ellipsis if needed.
func truncStr(s string, maxLen int) string {
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	runes := []rune(s)
	return string(runes[:maxLen-1]) + "…"
}

// oneLine collapses newlines and runs of whitespace so list rows stay on a
// single line.
func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// shortID shows the first 8 characters of an id.
func shortID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8]
}

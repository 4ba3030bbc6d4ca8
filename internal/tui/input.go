package tui

import (
	"strings"
	"unicode/utf8"
)

// maxInputLen is the maximum number of runes allowed in form inputs.
const maxInputLen = 2000

// editRune processes a keystroke for inline text editing.
// Handles backspace (rune-aware) and single printable characters.
// Returns the text unchanged for non-printable keys (enter, esc, etc.).
// Input is clamped to maxInputLen runes.
func editRune(text string, key string) string {
	switch key {
	case "backspace":
		if len(text) > 0 {
			runes := []rune(text)
			return string(runes[:len(runes)-1])
		}
		return text
	case "space":
		key = " "
	}
	if utf8.RuneCountInString(key) == 1 {
		if utf8.RuneCountInString(text) >= maxInputLen {
			return text
		}
		return text + key
	}
	return text
}

// truncateToHeight limits output to maxLines newline-delimited lines.
// Returns the original string if it fits or maxLines is <= 0.
func truncateToHeight(s string, maxLines int) string {
	if maxLines <= 0 {
		return s
	}
	n := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			n++
			if n >= maxLines {
				return s[:i+1]
			}
		}
	}
	return s
}

// formField is one labeled text input of a form.
type formField struct {
	label  string
	value  string
	masked bool
}

// renderField draws a field with a cursor when focused. Masked fields show
// one bullet per rune.
func renderField(f formField, focused bool) string {
	value := f.value
	if f.masked {
		value = strings.Repeat("•", utf8.RuneCountInString(value))
	}
	label := inputPromptStyle.Render(f.label + ":")
	if !focused {
		return "     " + label + " " + dimStyle.Render(value)
	}
	return "   " + accentStyle.Render(">") + " " + label + " " + value + accentStyle.Render("_")
}

// renderForm draws every field, marking the focused one.
func renderForm(fields []formField, focus int) string {
	var sb strings.Builder
	for i, f := range fields {
		sb.WriteString(renderField(f, i == focus) + "\n")
	}
	return sb.String()
}

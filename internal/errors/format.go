package errors

import (
	"fmt"
	"strings"
)

// ANSI color codes for terminal output.
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
	colorGray   = "\033[90m"
	colorBold   = "\033[1m"
)

// colorEnabled controls whether ANSI colors are used.
var colorEnabled = true

// DisableColors disables ANSI color output.
func DisableColors() {
	colorEnabled = false
}

// EnableColors enables ANSI color output.
func EnableColors() {
	colorEnabled = true
}

func color(code, text string) string {
	if !colorEnabled {
		return text
	}
	return code + text + colorReset
}

// Format renders the error for terminal display: the coded headline,
// optional detail, the wrapped cause, and a suggestion line.
func Format(err error) string {
	se, ok := err.(*Error)
	if !ok {
		return err.Error()
	}

	var b strings.Builder

	headline := se.Message
	if se.Code != "" {
		headline = fmt.Sprintf("%s %s", color(colorBold+colorRed, se.Code), se.Message)
	}
	b.WriteString(headline)
	b.WriteString("\n")

	if se.Detail != "" {
		b.WriteString("\n")
		b.WriteString(se.Detail)
		b.WriteString("\n")
	}

	if se.Wrapped != nil {
		b.WriteString("\n")
		b.WriteString(color(colorGray, "caused by: "+se.Wrapped.Error()))
		b.WriteString("\n")
	}

	if se.Suggestion != "" {
		b.WriteString("\n")
		b.WriteString(color(colorCyan, "hint: ") + se.Suggestion)
		b.WriteString("\n")
	}

	return b.String()
}

package main

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	errorStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
)

// formatResult indents valid JSON and returns anything else unchanged.
func formatResult(result string) string {
	trimmed := strings.TrimSpace(result)
	if !json.Valid([]byte(trimmed)) {
		return result
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, []byte(trimmed), "", "  "); err != nil {
		return result
	}
	return buf.String()
}

package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"gopkg.in/yaml.v3"

	"github.com/mrz1836/osdep/internal/errors"
)

// reportStyles contains styling for text reports.
type reportStyles struct {
	header lipgloss.Style
	key    lipgloss.Style
	value  lipgloss.Style
	ok     lipgloss.Style
	fail   lipgloss.Style
	dim    lipgloss.Style
}

// newReportStyles creates styles for text reports.
func newReportStyles() *reportStyles {
	return &reportStyles{
		header: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#00D7FF")),
		key: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#00D7FF")),
		value: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFFFF")),
		ok: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#00FF87")), // Green for passing checks
		fail: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FF5F5F")), // Red for failures
		dim: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666")),
	}
}

// field is one key/value line of a text report.
type field struct {
	key   string
	value any
}

// writeReport prints a titled list of fields.
func writeReport(w io.Writer, title string, fields []field) {
	styles := newReportStyles()
	_, _ = fmt.Fprintln(w, styles.header.Render(title))
	for _, f := range fields {
		_, _ = fmt.Fprintf(w, "  %s: %s\n",
			styles.key.Render(f.key),
			styles.value.Render(fmt.Sprint(f.value)))
	}
}

// writeStructured encodes v as JSON or YAML.
func writeStructured(w io.Writer, format string, v any) error {
	switch format {
	case OutputJSON:
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(v)
	case OutputYAML:
		encoder := yaml.NewEncoder(w)
		encoder.SetIndent(2)
		if err := encoder.Encode(v); err != nil {
			return err
		}
		return encoder.Close()
	default:
		return fmt.Errorf("%w: %q", errors.ErrInvalidOutputFormat, format)
	}
}

// render writes v in the requested format, using text for the text format.
func render(w io.Writer, format string, v any, text func(io.Writer)) error {
	if format == OutputText || format == "" {
		text(w)
		return nil
	}
	return writeStructured(w, format, v)
}

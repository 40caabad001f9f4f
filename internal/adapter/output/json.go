package output

import (
	"encoding/json"
	"io"
)

// JSONFormatter formats reports as JSON.
type JSONFormatter struct {
	opts FormatterOptions
}

// NewJSONFormatter creates a new JSON formatter.
func NewJSONFormatter(opts FormatterOptions) *JSONFormatter {
	return &JSONFormatter{opts: opts}
}

// FormatPlay writes a playback report as a JSON object.
func (f *JSONFormatter) FormatPlay(w io.Writer, r PlayReport) error {
	return encodeJSON(w, r)
}

// FormatStatus writes a status report as a JSON object.
func (f *JSONFormatter) FormatStatus(w io.Writer, r StatusReport) error {
	return encodeJSON(w, r)
}

func encodeJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

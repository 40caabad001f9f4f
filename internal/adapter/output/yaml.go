package output

import (
	"io"

	"gopkg.in/yaml.v3"
)

// YAMLFormatter formats reports as YAML documents.
type YAMLFormatter struct {
	opts FormatterOptions
}

// NewYAMLFormatter creates a new YAML formatter.
func NewYAMLFormatter(opts FormatterOptions) *YAMLFormatter {
	return &YAMLFormatter{opts: opts}
}

// FormatPlay writes a playback report as YAML.
func (f *YAMLFormatter) FormatPlay(w io.Writer, r PlayReport) error {
	return encodeYAML(w, r)
}

// FormatStatus writes a status report as YAML.
func (f *YAMLFormatter) FormatStatus(w io.Writer, r StatusReport) error {
	return encodeYAML(w, r)
}

func encodeYAML(w io.Writer, v any) error {
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	if err := encoder.Encode(v); err != nil {
		return err
	}
	return encoder.Close()
}

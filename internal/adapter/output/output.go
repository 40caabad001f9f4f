// Package output provides formatters for playback results and status reports.
package output

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jmylchreest/earplay/internal/audio"
)

// Formatter writes reports in one output format.
type Formatter interface {
	// FormatPlay writes a playback report.
	FormatPlay(w io.Writer, r PlayReport) error
	// FormatStatus writes a status report.
	FormatStatus(w io.Writer, r StatusReport) error
}

// FormatType represents an output format type.
type FormatType string

const (
	FormatPlain FormatType = "plain"
	FormatJSON  FormatType = "json"
	FormatYAML  FormatType = "yaml"
)

// ParseFormat validates a user-supplied format name. "text" is accepted
// as an alias for plain.
func ParseFormat(s string) (FormatType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "plain", "text":
		return FormatPlain, nil
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unknown output format %q (want plain, json or yaml)", s)
	}
}

// NewFormatter creates a formatter for the specified format type.
func NewFormatter(format FormatType, opts FormatterOptions) Formatter {
	switch format {
	case FormatJSON:
		return NewJSONFormatter(opts)
	case FormatYAML:
		return NewYAMLFormatter(opts)
	case FormatPlain:
		fallthrough
	default:
		return NewPlainFormatter(opts)
	}
}

// FormatterOptions configures formatter behavior.
type FormatterOptions struct {
	Template string // Custom template for plain format
}

// PlayReport is the printable form of one playback request.
type PlayReport struct {
	SessionID string        `json:"session_id,omitempty" yaml:"session_id,omitempty"`
	URL       string        `json:"url" yaml:"url"`
	Outcome   string        `json:"outcome" yaml:"outcome"`
	Error     string        `json:"error,omitempty" yaml:"error,omitempty"`
	Via       string        `json:"via" yaml:"via"` // local, daemon
	Attempts  int           `json:"attempts,omitempty" yaml:"attempts,omitempty"`
	Remaining int           `json:"remaining,omitempty" yaml:"remaining,omitempty"`
	Codec     string        `json:"codec,omitempty" yaml:"codec,omitempty"`
	Bytes     int           `json:"bytes,omitempty" yaml:"bytes,omitempty"`
	Duration  time.Duration `json:"duration_ns,omitempty" yaml:"duration,omitempty"`
}

// OK reports whether playback started.
func (r PlayReport) OK() bool {
	return r.Outcome == string(audio.OutcomePlayed)
}

// FromResult converts a local playback result.
func FromResult(res audio.Result) PlayReport {
	r := PlayReport{
		SessionID: res.SessionID,
		URL:       res.URL,
		Outcome:   string(res.Outcome),
		Via:       "local",
		Attempts:  res.Attempts,
		Remaining: res.Remaining,
		Codec:     string(res.Codec),
		Bytes:     res.Bytes,
		Duration:  res.Duration,
	}
	if res.Err != nil {
		r.Error = res.Err.Error()
	}
	return r
}

// StatusReport describes the local installation and the daemon.
type StatusReport struct {
	Version      string    `json:"version" yaml:"version"`
	ConfigPath   string    `json:"config_path" yaml:"config_path"`
	PrefsPath    string    `json:"prefs_path" yaml:"prefs_path"`
	BaseURL      string    `json:"base_url" yaml:"base_url"`
	Volume       string    `json:"volume" yaml:"volume"`
	VolumeStored bool      `json:"volume_stored" yaml:"volume_stored"`
	PrefsUpdated time.Time `json:"prefs_updated,omitzero" yaml:"prefs_updated,omitempty"`
	Daemon       bool      `json:"daemon" yaml:"daemon"`
	DaemonVolume string    `json:"daemon_volume,omitempty" yaml:"daemon_volume,omitempty"`
}

package output

import (
	"fmt"
	"io"
	"strings"
	"text/template"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/dustin/go-humanize/english"
)

// PlainFormatter formats reports as human-readable text.
type PlainFormatter struct {
	opts     FormatterOptions
	template *template.Template
}

// NewPlainFormatter creates a new plain text formatter.
func NewPlainFormatter(opts FormatterOptions) *PlainFormatter {
	f := &PlainFormatter{opts: opts}

	// Parse custom template if provided
	if opts.Template != "" {
		tmpl, err := template.New("plain").Funcs(templateFuncs()).Parse(opts.Template)
		if err == nil {
			f.template = tmpl
		}
	}

	return f
}

// FormatPlay writes one line describing the playback, plus the error if any.
func (f *PlainFormatter) FormatPlay(w io.Writer, r PlayReport) error {
	if f.template != nil {
		return f.execute(w, r)
	}

	var sb strings.Builder
	if r.OK() {
		sb.WriteString(fmt.Sprintf("playing %s", r.URL))
		var details []string
		if r.Codec != "" {
			details = append(details, r.Codec)
		}
		if r.Bytes > 0 {
			details = append(details, humanize.Bytes(uint64(r.Bytes)))
		}
		if r.Duration > 0 {
			details = append(details, r.Duration.Round(10*time.Millisecond).String())
		}
		if r.Attempts > 0 {
			details = append(details, english.Plural(r.Attempts, "attempt", ""))
		}
		if len(details) > 0 {
			sb.WriteString(" (" + strings.Join(details, ", ") + ")")
		}
		if r.Via == "daemon" {
			sb.WriteString(" via earplayd")
		}
	} else {
		sb.WriteString(fmt.Sprintf("%s: %s", r.Outcome, r.URL))
		if r.Attempts > 0 {
			sb.WriteString(fmt.Sprintf(" after %s", english.Plural(r.Attempts, "attempt", "")))
		}
		if r.Error != "" {
			sb.WriteString("\n    " + r.Error)
		}
	}
	sb.WriteString("\n")

	_, err := io.WriteString(w, sb.String())
	return err
}

// FormatStatus writes one "key: value" line per field.
func (f *PlainFormatter) FormatStatus(w io.Writer, r StatusReport) error {
	if f.template != nil {
		return f.execute(w, r)
	}

	stored := "default"
	if r.VolumeStored {
		stored = "stored"
	}
	updated := "never"
	if !r.PrefsUpdated.IsZero() {
		updated = humanize.Time(r.PrefsUpdated)
	}
	daemon := "not running"
	if r.Daemon {
		daemon = "running"
		if r.DaemonVolume != "" {
			daemon += ", volume " + r.DaemonVolume
		}
	}

	lines := [][2]string{
		{"version", r.Version},
		{"config", r.ConfigPath},
		{"prefs", r.PrefsPath + " (updated " + updated + ")"},
		{"base url", r.BaseURL},
		{"volume", r.Volume + " (" + stored + ")"},
		{"daemon", daemon},
	}

	var sb strings.Builder
	for _, l := range lines {
		sb.WriteString(fmt.Sprintf("%-9s %s\n", l[0]+":", l[1]))
	}
	_, err := io.WriteString(w, sb.String())
	return err
}

func (f *PlainFormatter) execute(w io.Writer, data any) error {
	if err := f.template.Execute(w, data); err != nil {
		return err
	}
	_, err := io.WriteString(w, "\n")
	return err
}

// templateFuncs returns the helpers available to custom templates.
func templateFuncs() template.FuncMap {
	return template.FuncMap{
		"bytes": func(n int) string {
			return humanize.Bytes(uint64(max(n, 0)))
		},
		"ago": func(t time.Time) string {
			if t.IsZero() {
				return "never"
			}
			return humanize.Time(t)
		},
		"upper": strings.ToUpper,
	}
}

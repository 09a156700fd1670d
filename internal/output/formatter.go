package output

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/emmett/murmur/internal/history"
)

// Transcript is a single one-shot transcription result.
type Transcript struct {
	File       string        `json:"file,omitempty"`
	Provider   string        `json:"provider"`
	Text       string        `json:"text"`
	RawText    string        `json:"raw_text,omitempty"`
	Confidence float64       `json:"confidence,omitempty"`
	Latency    time.Duration `json:"latency"`
}

// Formatter is the interface for output formatters
type Formatter interface {
	WriteTranscript(t Transcript) error
	WriteHistory(entries []history.Entry) error
}

// NewFormatter returns the formatter for format ("text" or "json").
func NewFormatter(format string, w io.Writer) (Formatter, error) {
	switch format {
	case "", "text":
		return NewPlainTextFormatter(w), nil
	case "json":
		return NewJSONFormatter(w), nil
	default:
		return nil, fmt.Errorf("unknown output format %q (want text or json)", format)
	}
}

// JSONFormatter outputs in JSON format
type JSONFormatter struct {
	encoder *json.Encoder
}

func NewJSONFormatter(writer io.Writer) *JSONFormatter {
	encoder := json.NewEncoder(writer)
	encoder.SetIndent("", "  ")
	return &JSONFormatter{encoder: encoder}
}

func (j *JSONFormatter) WriteTranscript(t Transcript) error {
	return j.encoder.Encode(t)
}

// WriteHistory writes entries as one JSON array, empty rather than null.
func (j *JSONFormatter) WriteHistory(entries []history.Entry) error {
	if entries == nil {
		entries = []history.Entry{}
	}
	return j.encoder.Encode(entries)
}

// PlainTextFormatter outputs in plain text format
type PlainTextFormatter struct {
	writer io.Writer
}

func NewPlainTextFormatter(writer io.Writer) *PlainTextFormatter {
	return &PlainTextFormatter{writer: writer}
}

// WriteTranscript prints the text alone so it can be piped.
func (p *PlainTextFormatter) WriteTranscript(t Transcript) error {
	_, err := fmt.Fprintln(p.writer, t.Text)
	return err
}

func (p *PlainTextFormatter) WriteHistory(entries []history.Entry) error {
	if len(entries) == 0 {
		_, err := fmt.Fprintln(p.writer, "no transcripts recorded")
		return err
	}

	tw := tabwriter.NewWriter(p.writer, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TIME\tPROVIDER\tLATENCY\tTEXT")
	for _, e := range entries {
		text := e.Text
		if e.ErrorKind != "" {
			text = fmt.Sprintf("%s [%s]", text, e.ErrorKind)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
			e.CreatedAt.Local().Format("2006-01-02 15:04:05"),
			e.Provider,
			e.Latency.Round(time.Millisecond),
			text,
		)
	}
	return tw.Flush()
}

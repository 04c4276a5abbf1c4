// Package notes formats and exports meeting transcripts
package notes

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/navikt/zmeet/internal/models"
)

var (
	// ErrUnsupportedFormat is returned for export formats that cannot be produced
	ErrUnsupportedFormat = errors.New("unsupported export format")
	// ErrNotReady is returned when the transcript is not completed yet
	ErrNotReady = errors.New("transcript not ready")
)

// Format is an export file format
type Format string

const (
	FormatTXT  Format = "txt"
	FormatDOCX Format = "docx"
	FormatPDF  Format = "pdf"
)

// ParseFormat validates an export format name
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatTXT, FormatDOCX, FormatPDF:
		return f, nil
	default:
		return "", fmt.Errorf("%q: %w", s, ErrUnsupportedFormat)
	}
}

// DefaultSpeaker labels segments without a speaker
const DefaultSpeaker = "Speaker"

// Timestamp formats seconds as [mm:ss]. Minutes are not wrapped into hours.
func Timestamp(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	s := int(seconds)
	return fmt.Sprintf("[%02d:%02d]", s/60, s%60)
}

// Line renders one segment as "[mm:ss] speaker: text"
func Line(seg models.Segment) string {
	speaker := seg.Speaker
	if speaker == "" {
		speaker = DefaultSpeaker
	}
	return fmt.Sprintf("%s %s: %s", Timestamp(seg.Start), speaker, seg.Text)
}

// Text renders the whole transcript, one segment per line
func Text(n *models.MeetingNotes) string {
	if n == nil || len(n.Segments) == 0 {
		return ""
	}

	lines := make([]string, len(n.Segments))
	for i, seg := range n.Segments {
		lines[i] = Line(seg)
	}
	return strings.Join(lines, "\n")
}

// Preview returns the first limit lines of the transcript, followed by a
// summary line when segments were left out
func Preview(n *models.MeetingNotes, limit int) []string {
	if n == nil || len(n.Segments) == 0 {
		return []string{}
	}
	if limit <= 0 || limit > len(n.Segments) {
		limit = len(n.Segments)
	}

	lines := make([]string, 0, limit+1)
	for _, seg := range n.Segments[:limit] {
		lines = append(lines, Line(seg))
	}
	if rest := len(n.Segments) - limit; rest > 0 {
		lines = append(lines, fmt.Sprintf("... and %d more segments", rest))
	}
	return lines
}

// File is a rendered export
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// Renderer produces export files in formats zmeet does not render itself
type Renderer interface {
	Render(ctx context.Context, n *models.MeetingNotes, format Format) (*File, error)
}

// Exporter renders transcripts to downloadable files
type Exporter struct {
	remote Renderer
}

// NewExporter creates an exporter. remote may be nil, in which case only
// plain text exports are available.
func NewExporter(remote Renderer) *Exporter {
	return &Exporter{remote: remote}
}

// Supports reports whether the exporter can produce format
func (e *Exporter) Supports(format Format) bool {
	switch format {
	case FormatTXT:
		return true
	case FormatDOCX, FormatPDF:
		return e.remote != nil
	default:
		return false
	}
}

// Validate checks that n can be exported in format without rendering it
func (e *Exporter) Validate(n *models.MeetingNotes, format Format) error {
	if !e.Supports(format) {
		return fmt.Errorf("%s: %w", format, ErrUnsupportedFormat)
	}
	if n.TranscriptionStatus != models.TranscriptionCompleted || len(n.Segments) == 0 {
		return fmt.Errorf("notes %s: %w", n.ID, ErrNotReady)
	}
	return nil
}

// Export renders completed notes in the requested format
func (e *Exporter) Export(ctx context.Context, n *models.MeetingNotes, format Format) (*File, error) {
	if err := e.Validate(n, format); err != nil {
		return nil, err
	}

	if format == FormatTXT {
		return &File{
			Name:        FileName(n, format),
			ContentType: "text/plain; charset=utf-8",
			Data:        []byte(Text(n) + "\n"),
		}, nil
	}

	f, err := e.remote.Render(ctx, n, format)
	if err != nil {
		return nil, fmt.Errorf("render %s: %w", format, err)
	}
	if f.Name == "" {
		f.Name = FileName(n, format)
	}
	return f, nil
}

// FileName returns the download file name for notes in format
func FileName(n *models.MeetingNotes, format Format) string {
	return fmt.Sprintf("%s.%s", n.ID, format)
}

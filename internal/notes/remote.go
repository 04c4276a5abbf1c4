package notes

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/navikt/zmeet/internal/config"
	"github.com/navikt/zmeet/internal/models"
)

// maxExportSize caps the size of a rendered document
const maxExportSize = 50 << 20

var contentTypes = map[Format]string{
	FormatDOCX: "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	FormatPDF:  "application/pdf",
}

// renderRequest is the payload sent to the export service
type renderRequest struct {
	NotesID   string           `json:"notes_id"`
	MeetingID string           `json:"meeting_id"`
	Format    Format           `json:"format"`
	Lines     []string         `json:"lines"`
	Segments  []models.Segment `json:"segments"`
}

// RemoteRenderer delegates docx and pdf rendering to an external export service
type RemoteRenderer struct {
	baseURL    string
	httpClient *http.Client
}

// NewRemoteRenderer returns a renderer for the configured export service, or
// nil when no service is configured
func NewRemoteRenderer(cfg config.ExportConfig) *RemoteRenderer {
	if cfg.ServiceURL == "" {
		return nil
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &RemoteRenderer{
		baseURL:    strings.TrimRight(cfg.ServiceURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// NewExporterFromConfig creates an exporter that uses the export service
// when one is configured
func NewExporterFromConfig(cfg config.ExportConfig) *Exporter {
	if r := NewRemoteRenderer(cfg); r != nil {
		return NewExporter(r)
	}
	return NewExporter(nil)
}

// Render posts the transcript to {baseURL}/render/{format} and returns the file
func (r *RemoteRenderer) Render(ctx context.Context, n *models.MeetingNotes, format Format) (*File, error) {
	lines := make([]string, len(n.Segments))
	for i, seg := range n.Segments {
		lines[i] = Line(seg)
	}

	body, err := json.Marshal(renderRequest{
		NotesID:   n.ID,
		MeetingID: n.MeetingID,
		Format:    format,
		Lines:     lines,
		Segments:  n.Segments,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal render request: %w", err)
	}

	url := fmt.Sprintf("%s/render/%s", r.baseURL, format)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxExportSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("export service error (status %d): %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = contentTypes[format]
	}

	return &File{
		Name:        FileName(n, format),
		ContentType: contentType,
		Data:        data,
	}, nil
}

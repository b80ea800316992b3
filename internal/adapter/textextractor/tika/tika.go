// Package tika provides Apache Tika integration for text extraction.
//
// It extracts text content from PDF, Word, and plain text resumes.
// Extraction is best effort: unreadable content (image-only PDFs,
// corrupted DOC files) yields a descriptive placeholder string rather
// than an error, so the pipeline always has something to score.
package tika

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/fairyhunter13/candidate-screener/internal/domain"
	"github.com/fairyhunter13/candidate-screener/internal/observability"
	"github.com/fairyhunter13/candidate-screener/pkg/textx"
)

// Placeholder is returned when a document cannot be read. Callers detect
// it with domain.IsPlaceholderResumeText to decide on OCR escalation.
const Placeholder = domain.PlaceholderResumeText

// minUsableTextLen is the threshold below which extracted text is treated
// as unreadable content.
const minUsableTextLen = 20

// Client is a minimal Apache Tika HTTP client implementing domain.TextExtractor.
// It performs PUT /tika with Accept: text/plain to retrieve extracted text.
// See: https://tika.apache.org/server/ for API details.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New constructs a Tika client with a default timeout.
func New(baseURL string) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

// Extract uploads the document to the Tika server and returns plain text.
// It fails only for unsupported extensions and password-protected
// documents; any other extraction trouble yields the placeholder.
func (c *Client) Extract(ctx context.Context, filename string, data []byte) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	ct := contentTypeFromExt(ext)
	if ct == "" {
		return "", fmt.Errorf("op=tika.extract: %w: %s", domain.ErrUnsupportedFormat, ext)
	}

	lg := observability.LoggerFromContext(ctx)
	u := c.baseURL
	if u == "" {
		u = "http://localhost:9998"
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, u+"/tika", bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("op=tika.extract: %w", err)
	}
	req.Header.Set("Accept", "text/plain")
	req.Header.Set("Content-Type", ct)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		lg.Warn("tika unreachable, using placeholder text",
			slog.String("filename", filename), slog.Any("error", err))
		return Placeholder, nil
	}
	defer func() { _ = resp.Body.Close() }()

	// Tika reports encrypted documents as 422 Unprocessable Entity.
	if resp.StatusCode == http.StatusUnprocessableEntity {
		return "", fmt.Errorf("op=tika.extract: %w", domain.ErrProtectedDocument)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		lg.Warn("tika extraction failed, using placeholder text",
			slog.String("filename", filename), slog.Int("status", resp.StatusCode))
		return Placeholder, nil
	}

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return Placeholder, nil
	}
	// Sanitize control characters then collapse whitespace to single spaces
	sanitized := textx.SanitizeText(string(b))
	result := strings.Join(strings.Fields(sanitized), " ")
	if len(result) < minUsableTextLen {
		return Placeholder, nil
	}
	return result, nil
}

func contentTypeFromExt(ext string) string {
	switch ext {
	case ".pdf":
		return "application/pdf"
	case ".doc":
		return "application/msword"
	case ".docx":
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	case ".txt":
		return "text/plain"
	default:
		if ext != "" {
			if ct := mime.TypeByExtension(ext); strings.HasPrefix(ct, "text/") {
				return ct
			}
		}
	}
	return ""
}

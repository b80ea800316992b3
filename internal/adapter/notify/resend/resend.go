// Package resend implements the outbound mail port on the Resend HTTP API.
// Used downstream of analysis (rejection notices), never by the pipeline.
package resend

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/fairyhunter13/candidate-screener/internal/domain"
	"github.com/fairyhunter13/candidate-screener/internal/observability"
)

// Mailer implements domain.Mailer.
type Mailer struct {
	apiKey  string
	baseURL string
	from    string
	hc      *http.Client
}

// New constructs a Mailer. An empty apiKey produces a disabled mailer
// whose Send is a logged no-op.
func New(apiKey, baseURL, from string) *Mailer {
	return &Mailer{
		apiKey:  apiKey,
		baseURL: baseURL,
		from:    from,
		hc:      &http.Client{Timeout: 10 * time.Second},
	}
}

type sendRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html,omitempty"`
	Text    string   `json:"text,omitempty"`
}

// Send delivers one email.
func (m *Mailer) Send(ctx domain.Context, to, subject, body string, isHTML bool) error {
	lg := observability.LoggerFromContext(ctx)
	if m.apiKey == "" {
		lg.Info("mail disabled, dropping message",
			slog.String("to", to), slog.String("subject", subject))
		return nil
	}
	payload := sendRequest{From: m.from, To: []string{to}, Subject: subject}
	if isHTML {
		payload.HTML = body
	} else {
		payload.Text = body
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("op=resend.send: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.baseURL+"/emails", bytes.NewReader(b))
	if err != nil {
		return fmt.Errorf("op=resend.send: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+m.apiKey)
	req.Header.Set("Content-Type", "application/json")
	resp, err := m.hc.Do(req)
	if err != nil {
		return fmt.Errorf("op=resend.send: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		lg.Error("resend rejected message",
			slog.Int("status", resp.StatusCode), slog.String("body", string(snippet)))
		return fmt.Errorf("op=resend.send: status %d", resp.StatusCode)
	}
	return nil
}

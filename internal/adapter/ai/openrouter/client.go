// Package openrouter implements the AI client port against the
// OpenRouter chat-completions API (OpenAI compatible).
package openrouter

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	backoff "github.com/cenkalti/backoff/v4"

	"github.com/fairyhunter13/candidate-screener/internal/adapter/observability"
	"github.com/fairyhunter13/candidate-screener/internal/config"
	"github.com/fairyhunter13/candidate-screener/internal/domain"
)

// Client implements domain.AIClient. One request per Generate call; no
// streaming, no multi-turn state.
type Client struct {
	cfg config.Config
	hc  *http.Client
}

// New constructs a client with the configured timeout.
func New(cfg config.Config) *Client {
	timeout := cfg.AITimeout
	if timeout <= 0 {
		timeout = 90 * time.Second
	}
	return &Client{cfg: cfg, hc: &http.Client{Timeout: timeout}}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type chatResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Generate performs a single-shot completion and returns the raw model text.
// Transient provider failures (429, 5xx) are retried with exponential
// backoff; auth and other 4xx responses fail immediately.
func (c *Client) Generate(ctx domain.Context, prompt string) (string, error) {
	return c.chat(ctx, c.cfg.ScoringModel, []chatMessage{{Role: "user", Content: prompt}})
}

// GenerateVision sends a prompt plus an inline image to the configured
// vision model. Used by the OCR fallback for image-only PDFs.
func (c *Client) GenerateVision(ctx domain.Context, prompt string, image []byte, mime string) (string, error) {
	if c.cfg.VisionModel == "" {
		return "", fmt.Errorf("%w: VISION_MODEL not configured", domain.ErrInvalidArgument)
	}
	content := []map[string]any{
		{"type": "text", "text": prompt},
		{"type": "image_url", "image_url": map[string]string{
			"url": "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(image),
		}},
	}
	return c.chat(ctx, c.cfg.VisionModel, []chatMessage{{Role: "user", Content: content}})
}

func (c *Client) chat(ctx domain.Context, model string, messages []chatMessage) (string, error) {
	if c.cfg.OpenRouterAPIKey == "" {
		slog.Error("OpenRouter API key missing", slog.String("provider", "openrouter"))
		return "", fmt.Errorf("%w: OPENROUTER_API_KEY missing", domain.ErrUpstreamAuth)
	}
	body := map[string]any{
		"model":       model,
		"temperature": 0.2,
		"messages":    messages,
	}
	b, _ := json.Marshal(body)

	var out chatResponse
	op := func() error {
		start := time.Now()
		// Recreate request each attempt to avoid reusing consumed bodies
		r, _ := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.OpenRouterBaseURL+"/chat/completions", bytes.NewReader(b))
		r.Header.Set("Authorization", "Bearer "+c.cfg.OpenRouterAPIKey)
		r.Header.Set("Content-Type", "application/json")
		if c.cfg.OpenRouterReferer != "" {
			r.Header.Set("HTTP-Referer", c.cfg.OpenRouterReferer)
		}
		if c.cfg.OpenRouterTitle != "" {
			r.Header.Set("X-Title", c.cfg.OpenRouterTitle)
		}
		resp, err := c.hc.Do(r)
		observability.AIRequestsTotal.WithLabelValues("openrouter", "chat").Inc()
		observability.AIRequestDuration.WithLabelValues("openrouter", "chat").Observe(time.Since(start).Seconds())
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				return backoff.Permanent(fmt.Errorf("%w: %v", domain.ErrUpstreamTimeout, err))
			}
			return err
		}
		defer func() { _ = resp.Body.Close() }()
		bodyBytes, err := io.ReadAll(resp.Body)
		if err != nil {
			return err
		}
		switch {
		case resp.StatusCode == http.StatusTooManyRequests:
			// Retryable: let backoff handle retries
			slog.Warn("ai provider rate limited",
				slog.String("provider", "openrouter"),
				slog.Int("status", resp.StatusCode),
				slog.String("x_request_id", resp.Header.Get("X-Request-Id")))
			return fmt.Errorf("%w: chat status 429", domain.ErrUpstreamRateLimit)
		case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
			slog.Error("ai provider auth rejected",
				slog.String("provider", "openrouter"),
				slog.Int("status", resp.StatusCode),
				slog.String("body", snippet(bodyBytes)))
			return backoff.Permanent(fmt.Errorf("%w: chat status %d", domain.ErrUpstreamAuth, resp.StatusCode))
		case resp.StatusCode >= 400 && resp.StatusCode < 500:
			slog.Warn("ai provider 4xx",
				slog.String("provider", "openrouter"),
				slog.String("model", model),
				slog.Int("status", resp.StatusCode),
				slog.String("body", snippet(bodyBytes)))
			return backoff.Permanent(fmt.Errorf("chat status %d", resp.StatusCode))
		case resp.StatusCode < 200 || resp.StatusCode >= 300:
			// 5xx and others: retryable
			slog.Error("ai provider non-2xx",
				slog.String("provider", "openrouter"),
				slog.String("model", model),
				slog.Int("status", resp.StatusCode),
				slog.String("body", snippet(bodyBytes)))
			return fmt.Errorf("chat status %d", resp.StatusCode)
		}
		if err := json.Unmarshal(bodyBytes, &out); err != nil {
			return fmt.Errorf("%w: %v", domain.ErrSchemaInvalid, err)
		}
		return nil
	}

	expo := backoff.NewExponentialBackOff()
	expo.InitialInterval = 2 * time.Second
	expo.MaxInterval = 20 * time.Second
	expo.MaxElapsedTime = c.cfg.AITimeout
	if c.cfg.IsTest() {
		expo.InitialInterval = 10 * time.Millisecond
		expo.MaxElapsedTime = 2 * time.Second
	}
	if err := backoff.Retry(op, backoff.WithContext(expo, ctx)); err != nil {
		return "", fmt.Errorf("openrouter chat: %w", err)
	}
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("%w: empty choices", domain.ErrSchemaInvalid)
	}
	if out.Model != "" && out.Model != model {
		slog.Warn("model substitution detected",
			slog.String("requested_model", model),
			slog.String("actual_model", out.Model),
			slog.String("provider", "openrouter"))
	}
	return out.Choices[0].Message.Content, nil
}

func snippet(b []byte) string {
	if len(b) > 512 {
		b = b[:512]
	}
	return string(b)
}

package delivery

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"commissioner/internal/bet"
)

// ErrNoWebhook is returned when the user has not configured an endpoint
// URL. The caller treats it like any other delivery failure: the bet stays
// unposted.
var ErrNoWebhook = errors.New("no webhook URL configured")

// Client posts webhook messages. It carries no retry logic of its own; a
// non-2xx status or transport error is reported as a plain failure and the
// scheduler decides what to do with it.
type Client struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *slog.Logger
}

// NewClient creates a webhook client. The token bucket keeps bursts of due
// bets under the endpoint's rate ceiling (Discord webhooks allow ~30
// requests/minute).
func NewClient(requestsPerMinute int, logger *slog.Logger) *Client {
	if requestsPerMinute <= 0 {
		requestsPerMinute = 30
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		limiter:    rate.NewLimiter(rate.Limit(float64(requestsPerMinute)/60.0), 1),
		logger:     logger,
	}
}

// Send posts one message to the endpoint URL.
func (c *Client) Send(ctx context.Context, url string, msg Message) error {
	if url == "" {
		return ErrNoWebhook
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("webhook post: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 200))
		return fmt.Errorf("webhook returned %d: %s", resp.StatusCode, detail)
	}
	return nil
}

// PostBetAlert builds and sends the alert for one bet.
func (c *Client) PostBetAlert(ctx context.Context, b bet.Bet, s bet.Settings) error {
	return c.Send(ctx, s.WebhookURL, BetAlert(b, s))
}

// PostRecap builds and sends a recap. When useRecapWebhook is set and a
// separate recap URL is configured, that endpoint is used instead of the
// main one.
func (c *Client) PostRecap(ctx context.Context, sum bet.Summary, s bet.Settings, useRecapWebhook bool) error {
	url := s.WebhookURL
	if useRecapWebhook && s.RecapWebhookURL != "" {
		url = s.RecapWebhookURL
	}
	return c.Send(ctx, url, Recap(sum, s, time.Now()))
}

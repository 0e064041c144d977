// Package telegram is the thin platform transport: outbound messages and the
// long-polling update loop. No business logic lives here.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gozaobot/gozao/internal/retry"
)

const apiBase = "https://api.telegram.org"

type Client struct {
	token   string
	client  *http.Client
	base    string
	retries retry.Config
}

func NewClient(token string, retries retry.Config) *Client {
	return &Client{
		token:   token,
		client:  &http.Client{Timeout: 65 * time.Second},
		base:    apiBase,
		retries: retries,
	}
}

// Update is one inbound platform event, reduced to what the bot consumes.
type Update struct {
	UpdateID int64 `json:"update_id"`
	Message  *struct {
		From *struct {
			ID       int64  `json:"id"`
			Username string `json:"username"`
		} `json:"from"`
		Chat struct {
			ID int64 `json:"id"`
		} `json:"chat"`
		Text string `json:"text"`
	} `json:"message"`
}

// Send posts text to a chat, retrying transient failures.
func (c *Client) Send(ctx context.Context, chatID string, text string) error {
	return retry.WithRetry(ctx, c.retries, func() error {
		return c.sendOnce(ctx, chatID, text)
	})
}

func (c *Client) sendOnce(ctx context.Context, chatID, text string) error {
	payload := map[string]interface{}{
		"chat_id":                  chatID,
		"text":                     text,
		"disable_web_page_preview": true,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("error make JSON: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", c.base, c.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("error HTTP request: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			slog.Warn("failed to close response body", "error", err)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram API error: status %d", resp.StatusCode)
	}
	return nil
}

// Poll runs the long-polling loop, handing each update to handle. It returns
// when ctx is canceled. Poll errors are logged and backed off, never fatal.
func (c *Client) Poll(ctx context.Context, handle func(Update)) {
	var offset int64

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		updates, err := c.getUpdates(ctx, offset)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			slog.Warn("getUpdates failed", "error", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(5 * time.Second):
			}
			continue
		}

		for _, u := range updates {
			if u.UpdateID >= offset {
				offset = u.UpdateID + 1
			}
			handle(u)
		}
	}
}

func (c *Client) getUpdates(ctx context.Context, offset int64) ([]Update, error) {
	url := fmt.Sprintf("%s/bot%s/getUpdates?timeout=30&offset=%d", c.base, c.token, offset)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error HTTP request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("telegram API error: status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var parsed struct {
		OK     bool     `json:"ok"`
		Result []Update `json:"result"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("error parsing response: %w", err)
	}
	if !parsed.OK {
		return nil, fmt.Errorf("telegram API returned ok=false")
	}
	return parsed.Result, nil
}

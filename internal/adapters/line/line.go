package line

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const defaultBaseURL = "https://api.line.me"

// Channel pushes monitor notifications through the LINE Messaging API.
// The push endpoint is rate limited client-side; transient failures are
// retried once.
type Channel struct {
	base  string
	token string
	to    string
	hc    *http.Client
	rl    *rate.Limiter
}

// Option exists for tests to point the channel at a local server.
type Option func(*Channel)

func WithBaseURL(u string) Option {
	return func(c *Channel) { c.base = strings.TrimRight(u, "/") }
}

func New(channelAccessToken, to string, opts ...Option) (*Channel, error) {
	if channelAccessToken == "" {
		return nil, errors.New("LINE channel access token is empty")
	}
	if to == "" {
		return nil, errors.New("LINE recipient is empty")
	}
	c := &Channel{
		base:  defaultBaseURL,
		token: channelAccessToken,
		to:    to,
		hc:    &http.Client{Timeout: 30 * time.Second},
		rl:    rate.NewLimiter(rate.Limit(1), 1),
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

func (c *Channel) Name() string    { return "line" }
func (c *Channel) IsEnabled() bool { return true }

type pushRequest struct {
	To       string        `json:"to"`
	Messages []textMessage `json:"messages"`
}

type textMessage struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

func (c *Channel) Send(ctx context.Context, text string) error {
	if err := c.rl.Wait(ctx); err != nil {
		return err
	}
	body, err := json.Marshal(pushRequest{
		To:       c.to,
		Messages: []textMessage{{Type: "text", Text: text}},
	})
	if err != nil {
		return err
	}

	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost,
			c.base+"/v2/bot/message/push", bytes.NewReader(body))
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", "Bearer "+c.token)
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.hc.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			lastErr = err
			continue
		}

		if resp.StatusCode == http.StatusOK {
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			return nil
		}
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		resp.Body.Close()
		lastErr = fmt.Errorf("line push status %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
		if resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
			return lastErr // client error, retrying will not help
		}
	}
	return lastErr
}

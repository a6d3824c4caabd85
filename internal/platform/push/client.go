// Package push delivers reminder notifications through an Expo-compatible
// push HTTP API.
package push

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/phrazzld/scry-sprint/internal/redact"
	"github.com/phrazzld/scry-sprint/internal/service/reminder"
)

const (
	// DefaultBaseURL is the public Expo push endpoint host.
	DefaultBaseURL = "https://exp.host"
	sendPath       = "/--/api/v2/push/send"

	// errDeviceNotRegistered is the only ticket error that invalidates a
	// token. Everything else is retried by a later tick.
	errDeviceNotRegistered = "DeviceNotRegistered"
)

// Config configures the client.
type Config struct {
	BaseURL     string
	AccessToken string
	Timeout     time.Duration
}

// Client is a reminder.Transport backed by resty.
type Client struct {
	http   *resty.Client
	logger *slog.Logger
}

var _ reminder.Transport = (*Client)(nil)

// NewClient creates a Client.
func NewClient(cfg Config, logger *slog.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}

	c := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetHeader("Accept", "application/json").
		SetHeader("Content-Type", "application/json")
	if cfg.AccessToken != "" {
		c.SetAuthToken(cfg.AccessToken)
	}

	return &Client{
		http:   c,
		logger: logger.With(slog.String("component", "push_client")),
	}
}

type pushMessage struct {
	To    string         `json:"to"`
	Title string         `json:"title"`
	Body  string         `json:"body"`
	Data  map[string]any `json:"data,omitempty"`
	Sound string         `json:"sound,omitempty"`
}

type ticket struct {
	Status  string `json:"status"`
	ID      string `json:"id,omitempty"`
	Message string `json:"message,omitempty"`
	Details struct {
		Error string `json:"error,omitempty"`
	} `json:"details"`
}

type sendResponse struct {
	Data   []ticket `json:"data"`
	Errors []struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"errors,omitempty"`
}

// SendBatch posts msgs in one request. A non-2xx status or a request-level
// error fails the whole batch.
func (c *Client) SendBatch(ctx context.Context, msgs []reminder.Message) ([]reminder.SendResult, error) {
	if len(msgs) == 0 {
		return nil, nil
	}

	body := make([]pushMessage, len(msgs))
	for i, m := range msgs {
		body[i] = pushMessage{To: m.Token, Title: m.Title, Body: m.Body, Data: m.Data, Sound: "default"}
	}

	var out sendResponse
	res, err := c.http.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(&out).
		Post(sendPath)
	if err != nil {
		return nil, fmt.Errorf("push request failed: %s", redact.Error(err))
	}
	if res.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("push request returned status %d", res.StatusCode())
	}
	if len(out.Errors) > 0 {
		return nil, fmt.Errorf("push request rejected: %s: %s", out.Errors[0].Code, out.Errors[0].Message)
	}
	if len(out.Data) != len(msgs) {
		return nil, fmt.Errorf("push response has %d tickets for %d messages", len(out.Data), len(msgs))
	}

	results := make([]reminder.SendResult, len(out.Data))
	for i, t := range out.Data {
		results[i] = classify(t)
		if !results[i].OK() {
			c.logger.Warn("push ticket failed",
				slog.String("token", redact.Token(msgs[i].Token)),
				slog.String("kind", results[i].Kind.String()),
				slog.String("error", results[i].Error))
		}
	}
	return results, nil
}

func classify(t ticket) reminder.SendResult {
	if t.Status == "ok" {
		return reminder.SendResult{}
	}
	reason := t.Details.Error
	if reason == "" {
		reason = t.Message
	}
	if t.Details.Error == errDeviceNotRegistered {
		return reminder.SendResult{Kind: reminder.FailurePermanent, Error: reason}
	}
	return reminder.SendResult{Kind: reminder.FailureTransient, Error: reason}
}

package notify

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"
)

// PushConfig holds push-notification delivery configuration for an
// ntfy-compatible endpoint.
type PushConfig struct {
	URL            string        `yaml:"url"`             // topic URL, e.g. https://ntfy.example.com/alerts
	AccessToken    string        `yaml:"access_token"`    // optional bearer token
	ConnectTimeout time.Duration `yaml:"connect_timeout"` // default: 3s
	Timeout        time.Duration `yaml:"timeout"`         // default: 10s
}

// Validate validates the push configuration.
func (c *PushConfig) Validate() error {
	if c.URL == "" {
		return fmt.Errorf("push URL is required")
	}
	if !strings.HasPrefix(c.URL, "http://") && !strings.HasPrefix(c.URL, "https://") {
		return fmt.Errorf("push URL must be http(s)")
	}
	return nil
}

// PushSender delivers notifications over a single HTTP POST. Any
// transport error or non-2xx response counts as a failed delivery.
type PushSender struct {
	config     PushConfig
	httpClient *http.Client
}

// NewPushSender creates a new push sender.
func NewPushSender(config PushConfig) (*PushSender, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid push config: %w", err)
	}
	if config.ConnectTimeout <= 0 {
		config.ConnectTimeout = 3 * time.Second
	}
	if config.Timeout <= 0 {
		config.Timeout = 10 * time.Second
	}

	return &PushSender{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout: config.ConnectTimeout,
				}).DialContext,
			},
		},
	}, nil
}

// Name returns "push".
func (p *PushSender) Name() Channel {
	return ChannelPush
}

// Send posts the notification to the configured endpoint.
func (p *PushSender) Send(ctx context.Context, n *Notification) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.config.URL,
		strings.NewReader(n.Message))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	mapping := mapPriority(n.Priority)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	req.Header.Set("X-Title", fmt.Sprintf("[%s] %s", mapping.Label, n.Title))
	req.Header.Set("X-Priority", mapping.Push)
	req.Header.Set("X-Tags", mapping.Tag)
	if p.config.AccessToken != "" {
		req.Header.Set("Authorization", "Bearer "+p.config.AccessToken)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("push endpoint error: status %d, body: %s", resp.StatusCode, string(body))
	}
	return nil
}

// Close is a no-op for the push sender.
func (p *PushSender) Close() error {
	return nil
}

package outreach

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/google/uuid"

	"github.com/ignite/lead-engine/internal/pkg/httpretry"
)

// WebhookChannel delivers social outreach by posting messages to an
// automation endpoint (e.g. a Zapier or Make hook driving DMs). The
// endpoint owns platform delivery; this channel only hands off.
type WebhookChannel struct {
	name     string
	endpoint string
	client   httpretry.HTTPDoer
}

type webhookPayload struct {
	MessageID   string            `json:"message_id"`
	RecipientID string            `json:"recipient_id"`
	Subject     string            `json:"subject,omitempty"`
	Body        string            `json:"body"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// NewWebhookChannel creates a channel named name posting to endpoint.
// A nil client gets the default retrying HTTP client.
func NewWebhookChannel(name, endpoint string, client httpretry.HTTPDoer) *WebhookChannel {
	if client == nil {
		client = httpretry.NewRetryClient(nil, 3)
	}
	return &WebhookChannel{name: name, endpoint: endpoint, client: client}
}

func (c *WebhookChannel) Name() string { return c.name }

// Send posts the message as JSON. Server errors come back transient so the
// outer retry policy and breaker treat them as recoverable.
func (c *WebhookChannel) Send(ctx context.Context, recipientID string, msg Message) (Result, error) {
	payload := webhookPayload{
		MessageID:   uuid.NewString(),
		RecipientID: recipientID,
		Subject:     msg.Subject,
		Body:        msg.Body,
		Metadata:    msg.Metadata,
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return Result{}, fmt.Errorf("webhook %s: encode payload: %w", c.name, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(data))
	if err != nil {
		return Result{}, fmt.Errorf("webhook %s: build request: %w", c.name, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.GetBody = func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(data)), nil
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return Result{}, Transient(fmt.Errorf("webhook %s: %w", c.name, err))
	}
	defer func() {
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return Result{Channel: c.name, ProviderID: payload.MessageID}, nil
	case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
		return Result{}, Transient(fmt.Errorf("webhook %s: status %d", c.name, resp.StatusCode))
	default:
		return Result{}, fmt.Errorf("webhook %s: status %d", c.name, resp.StatusCode)
	}
}

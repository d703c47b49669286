// Package outreach defines the outbound channel contract and the resilience
// wrappers (retry, circuit breaker) every send flows through. Concrete
// channel implementations talk to external providers and must be safe to
// call more than once per logical message: the engine guarantees only
// at-least-once delivery.
package outreach

import "context"

// Message is the resolved content handed to a channel.
type Message struct {
	Subject  string            `json:"subject,omitempty"`
	Body     string            `json:"body"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Result reports the provider outcome of one send.
type Result struct {
	Channel    string `json:"channel"`
	ProviderID string `json:"provider_id,omitempty"`
}

// Channel delivers messages to a recipient over one outreach medium.
// Failures are surfaced as errors, transient ones wrapped via Transient so
// the retry layer can tell them apart from permanent rejections.
type Channel interface {
	Name() string
	Send(ctx context.Context, recipientID string, msg Message) (Result, error)
}

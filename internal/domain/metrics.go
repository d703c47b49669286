package domain

import "fmt"

// EmailMetrics holds the raw counters for one A/B variant.
type EmailMetrics struct {
	Sent         int `json:"sent"`
	Delivered    int `json:"delivered"`
	Opened       int `json:"opened"`
	Clicked      int `json:"clicked"`
	Replied      int `json:"replied"`
	Bounced      int `json:"bounced"`
	Unsubscribed int `json:"unsubscribed"`
}

// OpenRate is opened/delivered, 0 when nothing was delivered.
func (m EmailMetrics) OpenRate() float64 {
	if m.Delivered == 0 {
		return 0
	}
	return float64(m.Opened) / float64(m.Delivered)
}

// ClickRate is clicked/opened, 0 when nothing was opened.
func (m EmailMetrics) ClickRate() float64 {
	if m.Opened == 0 {
		return 0
	}
	return float64(m.Clicked) / float64(m.Opened)
}

// ReplyRate is replied/delivered, 0 when nothing was delivered.
func (m EmailMetrics) ReplyRate() float64 {
	if m.Delivered == 0 {
		return 0
	}
	return float64(m.Replied) / float64(m.Delivered)
}

// Increment adds value to the named counter. Unknown names are a validation
// error, surfaced immediately and never retried.
func (m *EmailMetrics) Increment(name string, value int) error {
	switch name {
	case "sent":
		m.Sent += value
	case "delivered":
		m.Delivered += value
	case "opened", MetricOpens:
		m.Opened += value
	case "clicked", MetricClicks:
		m.Clicked += value
	case "replied", MetricReplies:
		m.Replied += value
	case "bounced":
		m.Bounced += value
	case "unsubscribed":
		m.Unsubscribed += value
	default:
		return fmt.Errorf("invalid metric type %q", name)
	}
	return nil
}

// VariantType enumerates what an A/B test varies.
type VariantType string

const (
	VariantSubject    VariantType = "subject"
	VariantContent    VariantType = "content"
	VariantSendTime   VariantType = "send_time"
	VariantSenderName VariantType = "sender_name"
)

// ABTestVariant is one alternative in an A/B test campaign.
type ABTestVariant struct {
	Type    VariantType  `json:"variant_type"`
	Name    string       `json:"variant_name"`
	Content string       `json:"content"`
	Metrics EmailMetrics `json:"metrics"`
}

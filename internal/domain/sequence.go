package domain

import (
	"fmt"
	"time"
)

// SequenceStatus enumerates the states of a contact within a sequence.
// completed and unsubscribed are terminal.
type SequenceStatus string

const (
	SequenceActive       SequenceStatus = "active"
	SequenceCompleted    SequenceStatus = "completed"
	SequencePaused       SequenceStatus = "paused"
	SequenceUnsubscribed SequenceStatus = "unsubscribed"
)

// Terminal reports whether no transition can leave the status.
func (s SequenceStatus) Terminal() bool {
	return s == SequenceCompleted || s == SequenceUnsubscribed
}

// SequenceStep is one timed step in a drip sequence definition.
// When ABTest is set, Variants maps variant name to alternative content and
// the dispatched content is chosen uniformly at random at send time.
type SequenceStep struct {
	StepID     string            `json:"step_id"`
	TemplateID string            `json:"template_id,omitempty"`
	Subject    string            `json:"subject"`
	Content    string            `json:"content"`
	DelayDays  int               `json:"delay_days"`
	Conditions map[string]any    `json:"conditions,omitempty"`
	ABTest     bool              `json:"ab_test,omitempty"`
	Variants   map[string]string `json:"variants,omitempty"`
}

// Sequence is a named, ordered drip campaign definition.
type Sequence struct {
	ID        string         `json:"id"`
	Steps     []SequenceStep `json:"steps"`
	CreatedAt time.Time      `json:"created_at"`
}

// ContactSequenceState tracks one contact's progress through one sequence.
// Unlike the profile and plan values, state is mutable: the sequence manager
// owns it and serializes access.
type ContactSequenceState struct {
	ContactID     string         `json:"contact_id"`
	SequenceID    string         `json:"sequence_id"`
	CurrentStep   int            `json:"current_step"`
	Status        SequenceStatus `json:"status"`
	LastEmailDate time.Time      `json:"last_email_date"`
	NextEmailDate time.Time      `json:"next_email_date"`

	// EngagementMetrics holds the tracked counters: opens, clicks, replies.
	EngagementMetrics map[string]int `json:"engagement_metrics"`
	CustomData        map[string]any `json:"custom_data,omitempty"`

	// LastVariant is the A/B variant actually dispatched by the most recent
	// send, so later engagement updates attribute to the real variant.
	LastVariant string `json:"last_variant,omitempty"`
}

// Tracked sequence engagement metric names.
const (
	MetricOpens   = "opens"
	MetricClicks  = "clicks"
	MetricReplies = "replies"
)

// ValidSequenceMetric reports whether name is one of the tracked counters.
func ValidSequenceMetric(name string) bool {
	switch name {
	case MetricOpens, MetricClicks, MetricReplies:
		return true
	}
	return false
}

// StateKey derives the storage key for a contact's state in a sequence.
func StateKey(contactID, sequenceID string) string {
	return fmt.Sprintf("%s_%s", contactID, sequenceID)
}

package domain

import (
	"fmt"
	"time"
)

// Channel enumerates the outreach channels a plan can use.
type Channel string

const (
	ChannelEmail  Channel = "email"
	ChannelSocial Channel = "social"
)

// Frequency enumerates the contact cadences a plan can carry.
type Frequency string

const (
	FrequencyDaily   Frequency = "daily"
	FrequencyWeekly  Frequency = "weekly"
	FrequencyMonthly Frequency = "monthly"
)

// Interval returns the wall-clock gap between touchpoints for the frequency.
func (f Frequency) Interval() time.Duration {
	switch f {
	case FrequencyDaily:
		return 24 * time.Hour
	case FrequencyWeekly:
		return 7 * 24 * time.Hour
	default:
		return 30 * 24 * time.Hour
	}
}

// ApprovalStatus enumerates the maker-checker states of a plan.
type ApprovalStatus string

const (
	ApprovalPending  ApprovalStatus = "pending"
	ApprovalApproved ApprovalStatus = "approved"
	ApprovalRejected ApprovalStatus = "rejected"
)

// PlanInteraction records one execution pass of a plan across its channels.
type PlanInteraction struct {
	Timestamp time.Time         `json:"timestamp"`
	Channels  []Channel         `json:"channels"`
	Results   map[string]string `json:"results,omitempty"`
}

// EngagementPlan is the immutable per-lead decision of how and how often to
// reach out. Construction validates; no partially-valid plan can exist.
type EngagementPlan struct {
	LeadID             string             `json:"lead_id"`
	Channels           []Channel          `json:"channels"`
	Priority           int                `json:"priority"`
	Frequency          Frequency          `json:"frequency"`
	NextTouchpoint     time.Time          `json:"next_touchpoint"`
	ContentTypes       []string           `json:"content_types"`
	ApprovalStatus     ApprovalStatus     `json:"approval_status"`
	EngagementMetrics  map[string]float64 `json:"engagement_metrics,omitempty"`
	LastInteraction    *time.Time         `json:"last_interaction,omitempty"`
	InteractionHistory []PlanInteraction  `json:"interaction_history,omitempty"`
}

// NewEngagementPlan constructs a validated plan.
func NewEngagementPlan(leadID string, channels []Channel, priority int, freq Frequency, nextTouchpoint time.Time, contentTypes []string, metrics map[string]float64) (EngagementPlan, error) {
	if leadID == "" {
		return EngagementPlan{}, fmt.Errorf("%w: lead id is required", ErrInvalidPlan)
	}
	if len(channels) == 0 {
		return EngagementPlan{}, fmt.Errorf("%w: at least one channel is required", ErrInvalidPlan)
	}
	if priority < 1 || priority > 5 {
		return EngagementPlan{}, fmt.Errorf("%w: priority %d out of range [1,5]", ErrInvalidPlan, priority)
	}
	switch freq {
	case FrequencyDaily, FrequencyWeekly, FrequencyMonthly:
	default:
		return EngagementPlan{}, fmt.Errorf("%w: invalid frequency %q", ErrInvalidPlan, freq)
	}
	if metrics == nil {
		metrics = map[string]float64{}
	}
	return EngagementPlan{
		LeadID:            leadID,
		Channels:          append([]Channel(nil), channels...),
		Priority:          priority,
		Frequency:         freq,
		NextTouchpoint:    nextTouchpoint,
		ContentTypes:      append([]string(nil), contentTypes...),
		ApprovalStatus:    ApprovalPending,
		EngagementMetrics: metrics,
	}, nil
}

// WithApproval returns a copy of the plan with the given approval status.
func (p EngagementPlan) WithApproval(status ApprovalStatus) EngagementPlan {
	next := p
	next.ApprovalStatus = status
	return next
}

// WithInteraction returns a copy of the plan recording one execution pass.
func (p EngagementPlan) WithInteraction(in PlanInteraction) EngagementPlan {
	if in.Timestamp.IsZero() {
		in.Timestamp = time.Now().UTC()
	}
	history := make([]PlanInteraction, len(p.InteractionHistory), len(p.InteractionHistory)+1)
	copy(history, p.InteractionHistory)

	next := p
	next.InteractionHistory = append(history, in)
	ts := in.Timestamp
	next.LastInteraction = &ts
	next.NextTouchpoint = in.Timestamp.Add(p.Frequency.Interval())
	return next
}

// WithMetrics returns a copy of the plan with the metric map replaced.
// The input map is copied so the original plan stays untouched.
func (p EngagementPlan) WithMetrics(metrics map[string]float64) EngagementPlan {
	copied := make(map[string]float64, len(metrics))
	for k, v := range metrics {
		copied[k] = v
	}
	next := p
	next.EngagementMetrics = copied
	return next
}

// Metrics returns a mutable copy of the plan's metric map.
func (p EngagementPlan) Metrics() map[string]float64 {
	copied := make(map[string]float64, len(p.EngagementMetrics))
	for k, v := range p.EngagementMetrics {
		copied[k] = v
	}
	return copied
}

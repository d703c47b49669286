package sequence

import (
	"fmt"

	"github.com/ignite/lead-engine/internal/analytics"
	"github.com/ignite/lead-engine/internal/domain"
)

// StepPerformance reports per-step delivery and engagement counts.
type StepPerformance struct {
	Sent          int                        `json:"sent"`
	ABTestResults *analytics.CampaignResults `json:"ab_test_results,omitempty"`
}

// Performance is a sequence-wide rollup of contact progress and engagement.
type Performance struct {
	TotalContacts     int                        `json:"total_contacts"`
	ActiveContacts    int                        `json:"active_contacts"`
	CompletedContacts int                        `json:"completed_contacts"`
	TotalOpens        int                        `json:"total_opens"`
	TotalClicks       int                        `json:"total_clicks"`
	TotalReplies      int                        `json:"total_replies"`
	StepPerformance   map[string]StepPerformance `json:"step_performance"`
}

// Performance aggregates contact states and per-step A/B results for one
// sequence.
func (m *Manager) Performance(sequenceID string) (Performance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	seq, ok := m.sequences[sequenceID]
	if !ok {
		return Performance{}, fmt.Errorf("%w: %s", ErrSequenceNotFound, sequenceID)
	}

	perf := Performance{StepPerformance: make(map[string]StepPerformance, len(seq.Steps))}
	for _, state := range m.states {
		if state.SequenceID != sequenceID {
			continue
		}
		perf.TotalContacts++
		switch state.Status {
		case domain.SequenceActive:
			perf.ActiveContacts++
		case domain.SequenceCompleted:
			perf.CompletedContacts++
		}
		perf.TotalOpens += state.EngagementMetrics[domain.MetricOpens]
		perf.TotalClicks += state.EngagementMetrics[domain.MetricClicks]
		perf.TotalReplies += state.EngagementMetrics[domain.MetricReplies]
	}

	for i, step := range seq.Steps {
		sp := StepPerformance{}
		for _, state := range m.states {
			if state.SequenceID == sequenceID && state.CurrentStep > i {
				sp.Sent++
			}
		}
		if step.ABTest && m.analytics != nil {
			if results, err := m.analytics.CampaignResults(abCampaignID(sequenceID, step.StepID)); err == nil {
				sp.ABTestResults = &results
			}
		}
		perf.StepPerformance[step.StepID] = sp
	}
	return perf, nil
}

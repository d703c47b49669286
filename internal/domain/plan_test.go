package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validPlan(t *testing.T) EngagementPlan {
	t.Helper()
	plan, err := NewEngagementPlan(
		"owner@coffeeshop.com",
		[]Channel{ChannelEmail},
		3,
		FrequencyWeekly,
		time.Now().UTC().Add(7*24*time.Hour),
		[]string{"newsletter"},
		map[string]float64{"email_open_rate": 0},
	)
	require.NoError(t, err)
	return plan
}

func TestNewEngagementPlanValidation(t *testing.T) {
	now := time.Now().UTC()

	_, err := NewEngagementPlan("", []Channel{ChannelEmail}, 3, FrequencyWeekly, now, nil, nil)
	assert.ErrorIs(t, err, ErrInvalidPlan)

	_, err = NewEngagementPlan("lead@x.com", nil, 3, FrequencyWeekly, now, nil, nil)
	assert.ErrorIs(t, err, ErrInvalidPlan)

	_, err = NewEngagementPlan("lead@x.com", []Channel{ChannelEmail}, 0, FrequencyWeekly, now, nil, nil)
	assert.ErrorIs(t, err, ErrInvalidPlan)

	_, err = NewEngagementPlan("lead@x.com", []Channel{ChannelEmail}, 6, FrequencyWeekly, now, nil, nil)
	assert.ErrorIs(t, err, ErrInvalidPlan)

	_, err = NewEngagementPlan("lead@x.com", []Channel{ChannelEmail}, 3, Frequency("hourly"), now, nil, nil)
	assert.ErrorIs(t, err, ErrInvalidPlan)
}

func TestNewPlanStartsPending(t *testing.T) {
	plan := validPlan(t)
	assert.Equal(t, ApprovalPending, plan.ApprovalStatus)
}

func TestWithApprovalDoesNotMutate(t *testing.T) {
	plan := validPlan(t)
	approved := plan.WithApproval(ApprovalApproved)

	assert.Equal(t, ApprovalPending, plan.ApprovalStatus)
	assert.Equal(t, ApprovalApproved, approved.ApprovalStatus)
}

func TestWithInteractionAdvancesTouchpoint(t *testing.T) {
	plan := validPlan(t)
	sent := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

	updated := plan.WithInteraction(PlanInteraction{Timestamp: sent, Channels: []Channel{ChannelEmail}})

	assert.Empty(t, plan.InteractionHistory)
	require.Len(t, updated.InteractionHistory, 1)
	assert.Equal(t, sent.Add(7*24*time.Hour), updated.NextTouchpoint)
}

func TestFrequencyInterval(t *testing.T) {
	assert.Equal(t, 24*time.Hour, FrequencyDaily.Interval())
	assert.Equal(t, 7*24*time.Hour, FrequencyWeekly.Interval())
	assert.Equal(t, 30*24*time.Hour, FrequencyMonthly.Interval())
}

func TestMetricsReturnsCopy(t *testing.T) {
	plan := validPlan(t)

	m := plan.Metrics()
	m["email_open_rate"] = 0.9

	assert.Equal(t, 0.0, plan.Metrics()["email_open_rate"])
}

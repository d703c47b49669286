package engagement

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/lead-engine/internal/domain"
	"github.com/ignite/lead-engine/internal/outreach"
	"github.com/ignite/lead-engine/internal/storage"
)

type fakeSender struct {
	name    string
	failing bool
	sent    int
}

func (s *fakeSender) Name() string { return s.name }

func (s *fakeSender) Send(ctx context.Context, recipientID string, msg outreach.Message) (outreach.Result, error) {
	if s.failing {
		return outreach.Result{}, errors.New("provider down")
	}
	s.sent++
	return outreach.Result{Channel: s.name, ProviderID: s.name + "-1"}, nil
}

type recordingApprover struct {
	requests []string
}

func (a *recordingApprover) RequestApproval(ctx context.Context, plan domain.EngagementPlan) error {
	a.requests = append(a.requests, plan.LeadID)
	return nil
}

func profileWith(t *testing.T, raw domain.RawLead, engagement float64) domain.LeadProfile {
	t.Helper()
	p, err := domain.NewLeadProfile(raw, engagement, 0.5)
	require.NoError(t, err)
	return p
}

func fullRaw() domain.RawLead {
	return domain.RawLead{
		Email:        "owner@cafe.com",
		Name:         "Jamie",
		BusinessName: "The Cafe",
		Instagram:    "@cafe",
	}
}

func newTestEngine(senders map[domain.Channel]Sender, approver Approver) *Engine {
	return NewEngine(senders, nil, storage.NewMemoryStore(), approver, nil)
}

func TestAnalyzePreferences(t *testing.T) {
	e := newTestEngine(nil, nil)

	channels, freq := e.AnalyzePreferences(profileWith(t, fullRaw(), 0.9))
	assert.Equal(t, []domain.Channel{domain.ChannelEmail, domain.ChannelSocial}, channels)
	assert.Equal(t, domain.FrequencyDaily, freq)

	_, freq = e.AnalyzePreferences(profileWith(t, fullRaw(), 0.6))
	assert.Equal(t, domain.FrequencyWeekly, freq)

	_, freq = e.AnalyzePreferences(profileWith(t, fullRaw(), 0.3))
	assert.Equal(t, domain.FrequencyMonthly, freq)

	// Thresholds are exclusive.
	_, freq = e.AnalyzePreferences(profileWith(t, fullRaw(), 0.5))
	assert.Equal(t, domain.FrequencyMonthly, freq)

	noSocial := fullRaw()
	noSocial.Instagram = ""
	channels, _ = e.AnalyzePreferences(profileWith(t, noSocial, 0.5))
	assert.Equal(t, []domain.Channel{domain.ChannelEmail}, channels)
}

func TestCreatePlan(t *testing.T) {
	approver := &recordingApprover{}
	e := newTestEngine(nil, approver)

	plan, err := e.CreatePlan(context.Background(), profileWith(t, fullRaw(), 0.6))
	require.NoError(t, err)

	assert.Equal(t, "owner@cafe.com", plan.LeadID)
	assert.Equal(t, domain.ApprovalPending, plan.ApprovalStatus)
	assert.Equal(t, domain.FrequencyWeekly, plan.Frequency)
	// 1 + round(0.6*4) with no recent interaction.
	assert.Equal(t, 3, plan.Priority)
	assert.Contains(t, plan.ContentTypes, "personalized_email")
	assert.InDelta(t, 0.29, plan.EngagementMetrics["conversion_probability"], 1e-9)
	assert.Equal(t, []string{"owner@cafe.com"}, approver.requests)

	// The plan is cached and retrievable.
	cached, err := e.Plan(context.Background(), "owner@cafe.com")
	require.NoError(t, err)
	assert.Equal(t, plan.Priority, cached.Priority)
}

func TestCreatePlanRecentInteractionRaisesPriority(t *testing.T) {
	e := newTestEngine(nil, nil)

	p := profileWith(t, fullRaw(), 0.6).
		WithInteraction(domain.Interaction{Type: domain.InteractionEmailOpened})

	plan, err := e.CreatePlan(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, 4, plan.Priority)
}

func TestPriorityClamped(t *testing.T) {
	e := newTestEngine(nil, nil)

	now := time.Now().UTC()
	hot := profileWith(t, fullRaw(), 1.0)
	hot.LastInteraction = &now
	assert.Equal(t, 5, e.priority(hot))

	cold := profileWith(t, fullRaw(), 0.0)
	assert.Equal(t, 1, e.priority(cold))
}

func TestExecutePlanRequiresApproval(t *testing.T) {
	email := &fakeSender{name: "email"}
	e := newTestEngine(map[domain.Channel]Sender{domain.ChannelEmail: email}, nil)

	plan, err := e.CreatePlan(context.Background(), profileWith(t, fullRaw(), 0.6))
	require.NoError(t, err)

	same, ok := e.ExecutePlan(context.Background(), plan)
	assert.False(t, ok)
	assert.Equal(t, plan, same)
	assert.Zero(t, email.sent)
}

func TestExecutePlanSendsAllChannels(t *testing.T) {
	email := &fakeSender{name: "email"}
	social := &fakeSender{name: "social"}
	e := newTestEngine(map[domain.Channel]Sender{
		domain.ChannelEmail:  email,
		domain.ChannelSocial: social,
	}, nil)

	plan, err := e.CreatePlan(context.Background(), profileWith(t, fullRaw(), 0.6))
	require.NoError(t, err)
	plan, err = e.SetApproval(context.Background(), plan.LeadID, domain.ApprovalApproved)
	require.NoError(t, err)

	updated, ok := e.ExecutePlan(context.Background(), plan)
	require.True(t, ok)

	assert.Equal(t, 1, email.sent)
	assert.Equal(t, 1, social.sent)
	require.Len(t, updated.InteractionHistory, 1)
	assert.NotNil(t, updated.LastInteraction)
	assert.Greater(t, updated.EngagementMetrics["conversion_probability"],
		plan.EngagementMetrics["conversion_probability"])
}

func TestExecutePlanPartialFailure(t *testing.T) {
	email := &fakeSender{name: "email"}
	social := &fakeSender{name: "social", failing: true}
	e := newTestEngine(map[domain.Channel]Sender{
		domain.ChannelEmail:  email,
		domain.ChannelSocial: social,
	}, nil)

	plan, err := e.CreatePlan(context.Background(), profileWith(t, fullRaw(), 0.6))
	require.NoError(t, err)
	plan, err = e.SetApproval(context.Background(), plan.LeadID, domain.ApprovalApproved)
	require.NoError(t, err)

	same, ok := e.ExecutePlan(context.Background(), plan)
	assert.False(t, ok, "one failed channel fails the pass")
	assert.Empty(t, same.InteractionHistory)
	assert.Equal(t, 1, email.sent, "healthy channel still attempted")
}

func TestSetApprovalUnknownLead(t *testing.T) {
	e := newTestEngine(nil, nil)
	_, err := e.SetApproval(context.Background(), "ghost@x.com", domain.ApprovalApproved)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func duePlan(t *testing.T, leadID string, approved bool) domain.EngagementPlan {
	t.Helper()
	plan, err := domain.NewEngagementPlan(leadID, []domain.Channel{domain.ChannelEmail}, 3,
		domain.FrequencyWeekly, time.Now().UTC().Add(-time.Hour), []string{"educational"},
		map[string]float64{"conversion_probability": 0.2})
	require.NoError(t, err)
	if approved {
		plan = plan.WithApproval(domain.ApprovalApproved)
	}
	return plan
}

func TestExecuteDuePlans(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	sender := &fakeSender{name: "email"}
	e := NewEngine(map[domain.Channel]Sender{domain.ChannelEmail: sender}, nil, store, nil, nil)

	require.NoError(t, e.cachePlan(ctx, duePlan(t, "due-approved", true)))
	require.NoError(t, e.cachePlan(ctx, duePlan(t, "due-pending", false)))

	future := duePlan(t, "not-due", true)
	future.NextTouchpoint = time.Now().UTC().Add(time.Hour)
	require.NoError(t, e.cachePlan(ctx, future))

	report, err := e.ExecuteDuePlans(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Due, "pending and future plans are skipped")
	assert.Equal(t, 1, report.Succeeded)
	assert.Equal(t, 0, report.Failed)
	assert.Equal(t, 1, sender.sent)

	// The executed plan advanced its touchpoint, so the next sweep is a no-op.
	report, err = e.ExecuteDuePlans(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, report.Due)
}

func TestExecuteDuePlansCountsFailures(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	sender := &fakeSender{name: "email", failing: true}
	e := NewEngine(map[domain.Channel]Sender{domain.ChannelEmail: sender}, nil, store, nil, nil)

	require.NoError(t, e.cachePlan(ctx, duePlan(t, "due-approved", true)))

	report, err := e.ExecuteDuePlans(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Due)
	assert.Equal(t, 1, report.Failed)

	// The failed plan stays due for the next sweep.
	report, err = e.ExecuteDuePlans(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Due)
}

// flakySender fails with transient errors a set number of times, then
// succeeds.
type flakySender struct {
	name     string
	failures int
	calls    int
}

func (s *flakySender) Name() string { return s.name }

func (s *flakySender) Send(ctx context.Context, recipientID string, msg outreach.Message) (outreach.Result, error) {
	s.calls++
	if s.calls <= s.failures {
		return outreach.Result{}, outreach.Transient(errors.New("connection reset"))
	}
	return outreach.Result{Channel: s.name, ProviderID: s.name + "-1"}, nil
}

func fastRetry() outreach.RetryPolicy {
	return outreach.RetryPolicy{MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond}
}

func TestExecutePlanRetriesTransientSend(t *testing.T) {
	ctx := context.Background()
	sender := &flakySender{name: "email", failures: 1}
	e := NewEngine(map[domain.Channel]Sender{domain.ChannelEmail: sender}, nil, storage.NewMemoryStore(), nil, nil)
	e.retry = fastRetry()

	plan := duePlan(t, "lead-1", true)
	executed, ok := e.ExecutePlan(ctx, plan)
	assert.True(t, ok, "transient failure is retried within the pass")
	assert.Equal(t, 2, sender.calls)
	assert.Len(t, executed.InteractionHistory, 1)
}

func TestExecutePlanRetryExhaustion(t *testing.T) {
	ctx := context.Background()
	sender := &flakySender{name: "email", failures: 10}
	e := NewEngine(map[domain.Channel]Sender{domain.ChannelEmail: sender}, nil, storage.NewMemoryStore(), nil, nil)
	e.retry = fastRetry()

	_, ok := e.ExecutePlan(ctx, duePlan(t, "lead-1", true))
	assert.False(t, ok)
	assert.Equal(t, 3, sender.calls, "transient failures stop after the attempt cap")
}

// permSender always fails with a permanent error, counting attempts.
type permSender struct {
	calls int
}

func (s *permSender) Name() string { return "email" }

func (s *permSender) Send(ctx context.Context, recipientID string, msg outreach.Message) (outreach.Result, error) {
	s.calls++
	return outreach.Result{}, errors.New("invalid recipient")
}

func TestExecutePlanDoesNotRetryPermanentFailure(t *testing.T) {
	ctx := context.Background()
	sender := &permSender{}
	e := NewEngine(map[domain.Channel]Sender{domain.ChannelEmail: sender}, nil, storage.NewMemoryStore(), nil, nil)
	e.retry = fastRetry()

	_, ok := e.ExecutePlan(ctx, duePlan(t, "lead-1", true))
	assert.False(t, ok)
	assert.Equal(t, 1, sender.calls)
}

// Package engagement builds and executes per-lead engagement plans: channel
// and cadence selection from the profile, maker-checker approval, and
// concurrent multi-channel execution through the rate limiter and circuit
// breaker.
package engagement

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/ignite/lead-engine/internal/domain"
	"github.com/ignite/lead-engine/internal/outreach"
	"github.com/ignite/lead-engine/internal/pkg/logger"
	"github.com/ignite/lead-engine/internal/ratelimit"
	"github.com/ignite/lead-engine/internal/storage"
)

// Approver is the external maker-checker workflow. The engine raises an
// approval request at plan creation and only reads ApprovalStatus afterward.
type Approver interface {
	RequestApproval(ctx context.Context, plan domain.EngagementPlan) error
}

// ContentProvider produces the message for one channel and lead.
type ContentProvider interface {
	Message(ctx context.Context, channel domain.Channel, leadID string) (outreach.Message, error)
}

// Sender is what the engine dispatches through; satisfied by
// *outreach.Guard and by bare channels in tests.
type Sender interface {
	Name() string
	Send(ctx context.Context, recipientID string, msg outreach.Message) (outreach.Result, error)
}

// prefKey is the profile snapshot the preference analysis is memoized on.
type prefKey struct {
	leadID    string
	hasEmail  bool
	hasSocial bool
	score     float64
}

type prefResult struct {
	channels  []domain.Channel
	frequency domain.Frequency
}

// Engine creates, caches, and executes engagement plans.
type Engine struct {
	senders  map[domain.Channel]Sender
	limiter  *ratelimit.Limiter
	store    storage.Store
	approver Approver
	content  ContentProvider
	retry    outreach.RetryPolicy
	log      *logger.Logger

	prefMu    sync.Mutex
	prefCache map[prefKey]prefResult
}

// NewEngine wires the plan engine. The limiter and approver are optional;
// without a limiter sends are unmetered (tests), without an approver plans
// simply stay pending until approved externally.
func NewEngine(senders map[domain.Channel]Sender, limiter *ratelimit.Limiter, store storage.Store, approver Approver, content ContentProvider) *Engine {
	return &Engine{
		senders:   senders,
		limiter:   limiter,
		store:     store,
		approver:  approver,
		content:   content,
		retry:     outreach.DefaultRetryPolicy(),
		log:       logger.New("engagement"),
		prefCache: make(map[prefKey]prefResult),
	}
}

// AnalyzePreferences maps a profile snapshot to outreach channels and
// cadence. The result is memoized per snapshot: it is a pure function of
// the fields in prefKey.
func (e *Engine) AnalyzePreferences(p domain.LeadProfile) ([]domain.Channel, domain.Frequency) {
	key := prefKey{
		leadID:    p.Email,
		hasEmail:  p.Email != "",
		hasSocial: p.Instagram != "" || p.LinkedIn != "" || p.Facebook != "",
		score:     p.EngagementScore,
	}

	e.prefMu.Lock()
	if cached, ok := e.prefCache[key]; ok {
		e.prefMu.Unlock()
		return cached.channels, cached.frequency
	}
	e.prefMu.Unlock()

	var channels []domain.Channel
	if key.hasEmail {
		channels = append(channels, domain.ChannelEmail)
	}
	if key.hasSocial {
		channels = append(channels, domain.ChannelSocial)
	}

	var freq domain.Frequency
	switch {
	case p.EngagementScore > 0.8:
		freq = domain.FrequencyDaily
	case p.EngagementScore > 0.5:
		freq = domain.FrequencyWeekly
	default:
		freq = domain.FrequencyMonthly
	}

	e.prefMu.Lock()
	e.prefCache[key] = prefResult{channels: channels, frequency: freq}
	e.prefMu.Unlock()
	return channels, freq
}

// CreatePlan derives a validated plan from the profile, caches it, and
// raises an approval request. Construction cannot fail for a profile that
// passed admission validation.
func (e *Engine) CreatePlan(ctx context.Context, p domain.LeadProfile) (domain.EngagementPlan, error) {
	channels, freq := e.AnalyzePreferences(p)

	plan, err := domain.NewEngagementPlan(
		p.Email,
		channels,
		e.priority(p),
		freq,
		time.Now().UTC().Add(freq.Interval()),
		contentTypes(channels),
		map[string]float64{
			"email_open_rate":        0,
			"response_rate":          0,
			"social_engagement":      0,
			"conversion_probability": e.estimateConversion(p),
		},
	)
	if err != nil {
		return domain.EngagementPlan{}, err
	}

	if err := e.cachePlan(ctx, plan); err != nil {
		return domain.EngagementPlan{}, fmt.Errorf("cache plan: %w", err)
	}
	if e.approver != nil {
		if err := e.approver.RequestApproval(ctx, plan); err != nil {
			e.log.Error("approval request failed", "lead", plan.LeadID, "error", err)
		}
	}

	e.log.Info("created engagement plan",
		"lead", plan.LeadID, "priority", plan.Priority, "frequency", plan.Frequency)
	return plan, nil
}

// priority maps engagement score and interaction recency onto the 1..5
// scale.
func (e *Engine) priority(p domain.LeadProfile) int {
	pr := 1 + int(math.Round(p.EngagementScore*4))
	if p.LastInteraction != nil && time.Since(*p.LastInteraction) < 7*24*time.Hour {
		pr++
	}
	if pr < 1 {
		pr = 1
	}
	if pr > 5 {
		pr = 5
	}
	return pr
}

// estimateConversion seeds the plan's conversion-probability metric from
// the profile's score and recent activity.
func (e *Engine) estimateConversion(p domain.LeadProfile) float64 {
	est := 0.05 + 0.4*p.EngagementScore
	cutoff := time.Now().Add(-30 * 24 * time.Hour)
	for _, in := range p.InteractionHistory {
		if in.Timestamp.After(cutoff) {
			est += 0.02
		}
	}
	if est > 0.95 {
		est = 0.95
	}
	return est
}

func contentTypes(channels []domain.Channel) []string {
	var types []string
	for _, ch := range channels {
		switch ch {
		case domain.ChannelEmail:
			types = append(types, "personalized_email")
		case domain.ChannelSocial:
			types = append(types, "social_post")
		}
	}
	return types
}

// channelOutcome is one channel's result within an execution pass.
type channelOutcome struct {
	channel domain.Channel
	result  outreach.Result
	err     error
}

// ExecutePlan runs one pass of an approved plan: one send per channel,
// dispatched concurrently, each metered by the rate limiter and guarded by
// the channel's circuit breaker. One channel's failure never blocks the
// others; overall success requires every channel to succeed. On success the
// returned plan records the interaction and refreshed metrics and replaces
// the cached value.
func (e *Engine) ExecutePlan(ctx context.Context, plan domain.EngagementPlan) (domain.EngagementPlan, bool) {
	if plan.ApprovalStatus != domain.ApprovalApproved {
		e.log.Warn("cannot execute unapproved plan",
			"lead", plan.LeadID, "status", string(plan.ApprovalStatus))
		return plan, false
	}

	outcomes := make([]channelOutcome, len(plan.Channels))
	var wg sync.WaitGroup
	for i, ch := range plan.Channels {
		wg.Add(1)
		go func(i int, ch domain.Channel) {
			defer wg.Done()
			res, err := e.sendChannel(ctx, plan, ch)
			outcomes[i] = channelOutcome{channel: ch, result: res, err: err}
		}(i, ch)
	}
	wg.Wait()

	success := true
	results := make(map[string]string, len(outcomes))
	for _, oc := range outcomes {
		if oc.err != nil {
			success = false
			results[string(oc.channel)] = "failed: " + oc.err.Error()
			e.log.Error("channel execution failed",
				"lead", plan.LeadID, "channel", string(oc.channel), "error", oc.err)
			continue
		}
		results[string(oc.channel)] = "sent:" + oc.result.ProviderID
	}

	if !success {
		return plan, false
	}

	updated := plan.WithInteraction(domain.PlanInteraction{
		Timestamp: time.Now().UTC(),
		Channels:  plan.Channels,
		Results:   results,
	})
	metrics := updated.Metrics()
	metrics["conversion_probability"] = math.Min(0.95, metrics["conversion_probability"]+0.01)
	updated = updated.WithMetrics(metrics)

	if err := e.cachePlan(ctx, updated); err != nil {
		e.log.Error("failed to re-cache plan", "lead", plan.LeadID, "error", err)
	}
	return updated, true
}

func (e *Engine) sendChannel(ctx context.Context, plan domain.EngagementPlan, ch domain.Channel) (outreach.Result, error) {
	sender, ok := e.senders[ch]
	if !ok {
		return outreach.Result{}, fmt.Errorf("unsupported channel %q", ch)
	}
	if e.limiter != nil {
		if err := e.limiter.Allow(ctx, string(ch)); err != nil {
			return outreach.Result{}, err
		}
	}

	msg := outreach.Message{Body: "", Metadata: map[string]string{"lead_id": plan.LeadID}}
	if e.content != nil {
		m, err := e.content.Message(ctx, ch, plan.LeadID)
		if err != nil {
			return outreach.Result{}, fmt.Errorf("generate content: %w", err)
		}
		msg = m
	}

	// Transient connectivity failures are retried with backoff; rate-limit
	// and open-breaker errors are permanent for this pass.
	var res outreach.Result
	err := e.retry.Do(ctx, func(ctx context.Context) error {
		r, err := sender.Send(ctx, plan.LeadID, msg)
		if err != nil {
			return err
		}
		res = r
		return nil
	})
	return res, err
}

// PassReport summarizes one ExecuteDuePlans sweep.
type PassReport struct {
	Due       int `json:"due"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
}

// ExecuteDuePlans scans the cached plans and executes every approved plan
// whose next touchpoint has arrived. A failing plan is counted and left for
// the next sweep; it does not abort the pass.
func (e *Engine) ExecuteDuePlans(ctx context.Context) (PassReport, error) {
	keys, err := e.store.Keys(ctx, "plan:")
	if err != nil {
		return PassReport{}, fmt.Errorf("list plans: %w", err)
	}

	var report PassReport
	now := time.Now().UTC()
	for _, key := range keys {
		var plan domain.EngagementPlan
		if err := e.store.Get(ctx, key, &plan); err != nil {
			e.log.Error("failed to load plan", "key", key, "error", err)
			continue
		}
		if plan.ApprovalStatus != domain.ApprovalApproved || plan.NextTouchpoint.After(now) {
			continue
		}
		report.Due++
		if _, ok := e.ExecutePlan(ctx, plan); ok {
			report.Succeeded++
		} else {
			report.Failed++
		}
	}
	return report, nil
}

func planKey(leadID string) string { return "plan:" + leadID }

func (e *Engine) cachePlan(ctx context.Context, plan domain.EngagementPlan) error {
	return e.store.Set(ctx, planKey(plan.LeadID), plan)
}

// Plan loads the cached plan for a lead. Returns storage.ErrNotFound when
// no plan exists.
func (e *Engine) Plan(ctx context.Context, leadID string) (domain.EngagementPlan, error) {
	var plan domain.EngagementPlan
	err := e.store.Get(ctx, planKey(leadID), &plan)
	return plan, err
}

// SetApproval updates and re-caches a plan's approval status, for callers
// proxying the external approval decision back into the engine.
func (e *Engine) SetApproval(ctx context.Context, leadID string, status domain.ApprovalStatus) (domain.EngagementPlan, error) {
	plan, err := e.Plan(ctx, leadID)
	if err != nil {
		return domain.EngagementPlan{}, err
	}
	updated := plan.WithApproval(status)
	if err := e.cachePlan(ctx, updated); err != nil {
		return domain.EngagementPlan{}, err
	}
	return updated, nil
}

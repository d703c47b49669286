// Package sequence drives multi-step drip campaigns: per-contact state,
// delay-based progression, A/B variant assignment, and at-least-once step
// dispatch through the outreach stack.
package sequence

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/ignite/lead-engine/internal/analytics"
	"github.com/ignite/lead-engine/internal/content"
	"github.com/ignite/lead-engine/internal/domain"
	"github.com/ignite/lead-engine/internal/outreach"
	"github.com/ignite/lead-engine/internal/pkg/logger"
	"github.com/ignite/lead-engine/internal/ratelimit"
	"github.com/ignite/lead-engine/internal/storage"
)

// Lookup and transition sentinels.
var (
	ErrSequenceExists   = errors.New("sequence: already exists")
	ErrSequenceNotFound = errors.New("sequence: not found")
	ErrAlreadyEnrolled  = errors.New("sequence: contact already enrolled")
	ErrStateNotFound    = errors.New("sequence: contact not found in sequence")
	ErrInvalidMetric    = errors.New("sequence: invalid engagement metric")
	ErrTerminalState    = errors.New("sequence: state is terminal")
)

// Sender dispatches a resolved step to the outreach channel. Satisfied by
// *outreach.Guard.
type Sender interface {
	Name() string
	Send(ctx context.Context, recipientID string, msg outreach.Message) (outreach.Result, error)
}

// ProcessReport summarizes one ProcessDue pass.
type ProcessReport struct {
	Due       int `json:"due"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
}

// Manager owns sequence definitions and per-contact states. All map access
// is serialized through one mutex; sends happen outside the lock, and state
// only advances after a successful dispatch, so a failed step is retried on
// the next pass (at-least-once delivery).
type Manager struct {
	store     storage.Store
	sender    Sender
	limiter   *ratelimit.Limiter
	analytics *analytics.Aggregator
	templates *content.TemplateService
	log       *logger.Logger

	mu        sync.Mutex
	sequences map[string]domain.Sequence
	states    map[string]*domain.ContactSequenceState

	now  func() time.Time
	pick func(n int) int
}

// NewManager loads persisted sequences and states from the store.
func NewManager(ctx context.Context, store storage.Store, sender Sender, limiter *ratelimit.Limiter, agg *analytics.Aggregator) (*Manager, error) {
	m := &Manager{
		store:     store,
		sender:    sender,
		limiter:   limiter,
		analytics: agg,
		templates: content.NewTemplateService(),
		log:       logger.New("sequence"),
		sequences: make(map[string]domain.Sequence),
		states:    make(map[string]*domain.ContactSequenceState),
		now:       time.Now,
		pick:      rand.Intn,
	}

	if err := m.refresh(ctx); err != nil {
		return nil, err
	}
	return m, nil
}

// refresh reloads sequence definitions and contact states from the store,
// picking up sequences and enrollments written by other processes (the API
// server and the worker share one store).
func (m *Manager) refresh(ctx context.Context) error {
	seqKeys, err := m.store.Keys(ctx, "sequence:")
	if err != nil {
		return fmt.Errorf("list sequences: %w", err)
	}
	stateKeys, err := m.store.Keys(ctx, "seqstate:")
	if err != nil {
		return fmt.Errorf("list states: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, key := range seqKeys {
		var seq domain.Sequence
		if err := m.store.Get(ctx, key, &seq); err != nil {
			m.log.Warn("skipping unreadable sequence", "key", key, "error", err)
			continue
		}
		m.sequences[seq.ID] = seq
	}
	for _, key := range stateKeys {
		var st domain.ContactSequenceState
		if err := m.store.Get(ctx, key, &st); err != nil {
			m.log.Warn("skipping unreadable state", "key", key, "error", err)
			continue
		}
		m.states[domain.StateKey(st.ContactID, st.SequenceID)] = &st
	}
	return nil
}

func sequenceKey(id string) string  { return "sequence:" + id }
func stateStoreKey(k string) string { return "seqstate:" + k }

// CreateSequence registers a named drip campaign. A duplicate id fails. An
// empty step list is a degenerate but valid sequence: enrolled contacts are
// never due and simply never progress.
func (m *Manager) CreateSequence(ctx context.Context, id string, steps []domain.SequenceStep) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.sequences[id]; exists {
		return fmt.Errorf("%w: %s", ErrSequenceExists, id)
	}

	seq := domain.Sequence{
		ID:        id,
		Steps:     append([]domain.SequenceStep(nil), steps...),
		CreatedAt: m.now().UTC(),
	}
	m.sequences[id] = seq
	if err := m.store.Set(ctx, sequenceKey(id), seq); err != nil {
		delete(m.sequences, id)
		return err
	}

	m.log.Info("created sequence", "sequence", id, "steps", len(steps))
	return nil
}

// Enroll adds a contact to a sequence at step 0, due immediately. Enrolling
// an unknown sequence or the same contact+sequence pair twice fails, and a
// failed second enrollment leaves the original state unchanged.
func (m *Manager) Enroll(ctx context.Context, contactID, sequenceID string, customData map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sequences[sequenceID]; !ok {
		return fmt.Errorf("%w: %s", ErrSequenceNotFound, sequenceID)
	}
	key := domain.StateKey(contactID, sequenceID)
	if _, enrolled := m.states[key]; enrolled {
		return fmt.Errorf("%w: %s in %s", ErrAlreadyEnrolled, contactID, sequenceID)
	}

	now := m.now().UTC()
	state := &domain.ContactSequenceState{
		ContactID:     contactID,
		SequenceID:    sequenceID,
		CurrentStep:   0,
		Status:        domain.SequenceActive,
		LastEmailDate: now,
		NextEmailDate: now,
		EngagementMetrics: map[string]int{
			domain.MetricOpens:   0,
			domain.MetricClicks:  0,
			domain.MetricReplies: 0,
		},
		CustomData: customData,
	}
	m.states[key] = state
	if err := m.store.Set(ctx, stateStoreKey(key), state); err != nil {
		delete(m.states, key)
		return err
	}

	m.log.Info("enrolled contact", "contact", contactID, "sequence", sequenceID)
	return nil
}

// SetStatus forces a contact's sequence state to paused, unsubscribed, or
// back to active. Terminal states reject all transitions.
func (m *Manager) SetStatus(ctx context.Context, contactID, sequenceID string, status domain.SequenceStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := domain.StateKey(contactID, sequenceID)
	state, ok := m.states[key]
	if !ok {
		return fmt.Errorf("%w: %s in %s", ErrStateNotFound, contactID, sequenceID)
	}
	if state.Status.Terminal() {
		return fmt.Errorf("%w: %s", ErrTerminalState, state.Status)
	}
	switch status {
	case domain.SequenceActive, domain.SequencePaused, domain.SequenceUnsubscribed:
	default:
		return fmt.Errorf("cannot force status %q", status)
	}

	state.Status = status
	return m.store.Set(ctx, stateStoreKey(key), state)
}

// ProcessDue dispatches the next step for every contact that is active, due
// at now, and within bounds. The store is re-read first so enrollments made
// by other processes are picked up. All due sends run concurrently; one
// contact's failure neither blocks nor cancels the others.
func (m *Manager) ProcessDue(ctx context.Context) ProcessReport {
	if err := m.refresh(ctx); err != nil {
		m.log.Error("store refresh failed, scanning last known states", "error", err)
	}

	now := m.now().UTC()

	m.mu.Lock()
	var due []string
	for key, state := range m.states {
		seq, ok := m.sequences[state.SequenceID]
		if !ok {
			continue
		}
		if state.Status == domain.SequenceActive &&
			!state.NextEmailDate.After(now) &&
			state.CurrentStep < len(seq.Steps) {
			due = append(due, key)
		}
	}
	m.mu.Unlock()

	report := ProcessReport{Due: len(due)}
	if len(due) == 0 {
		return report
	}

	var wg sync.WaitGroup
	outcomes := make([]error, len(due))
	for i, key := range due {
		wg.Add(1)
		go func(i int, key string) {
			defer wg.Done()
			outcomes[i] = m.sendStep(ctx, key)
		}(i, key)
	}
	wg.Wait()

	for _, err := range outcomes {
		if err != nil {
			report.Failed++
		} else {
			report.Succeeded++
		}
	}
	m.log.Info("processed due sequences",
		"due", report.Due, "succeeded", report.Succeeded, "failed", report.Failed)
	return report
}

// sendStep resolves and dispatches the current step for one contact. On
// success the state advances by exactly one step; on failure the state is
// left untouched so the next pass retries the same step.
func (m *Manager) sendStep(ctx context.Context, key string) error {
	m.mu.Lock()
	state, ok := m.states[key]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrStateNotFound, key)
	}
	seq, ok := m.sequences[state.SequenceID]
	if !ok || state.CurrentStep >= len(seq.Steps) {
		m.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrSequenceNotFound, state.SequenceID)
	}
	step := seq.Steps[state.CurrentStep]
	contactID := state.ContactID
	custom := state.CustomData
	m.mu.Unlock()

	body := step.Content
	variant := ""
	if step.ABTest && len(step.Variants) > 0 {
		if m.analytics != nil {
			if err := m.analytics.EnsureABTest(ctx, abCampaignID(state.SequenceID, step.StepID), domain.VariantContent, step.Variants); err != nil {
				m.log.Error("A/B test registration failed",
					"sequence", state.SequenceID, "step", step.StepID, "error", err)
			}
		}
		names := make([]string, 0, len(step.Variants))
		for name := range step.Variants {
			names = append(names, name)
		}
		sort.Strings(names)
		variant = names[m.pick(len(names))]
		body = step.Variants[variant]
	}

	rendered, err := m.renderStep(body, contactID, custom)
	if err != nil {
		m.log.Error("step render failed",
			"contact", contactID, "step", step.StepID, "error", err)
		return err
	}

	if m.limiter != nil {
		if err := m.limiter.Allow(ctx, m.sender.Name()); err != nil {
			m.log.Warn("step rate limited", "contact", contactID, "error", err)
			return err
		}
	}

	msg := outreach.Message{
		Subject: step.Subject,
		Body:    rendered,
		Metadata: map[string]string{
			"sequence_id": state.SequenceID,
			"step_id":     step.StepID,
		},
	}
	if _, err := m.sender.Send(ctx, contactID, msg); err != nil {
		m.log.Error("step send failed",
			"contact", contactID, "sequence", state.SequenceID,
			"step", step.StepID, "error", err)
		return err
	}

	now := m.now().UTC()
	m.mu.Lock()
	state.CurrentStep++
	state.LastEmailDate = now
	state.NextEmailDate = now.Add(time.Duration(step.DelayDays) * 24 * time.Hour)
	state.LastVariant = variant
	if state.CurrentStep >= len(seq.Steps) {
		state.Status = domain.SequenceCompleted
	}
	err = m.store.Set(ctx, stateStoreKey(key), state)
	m.mu.Unlock()
	if err != nil {
		m.log.Error("state persist failed", "contact", contactID, "error", err)
	}

	m.log.Info("sent sequence step",
		"contact", contactID, "sequence", state.SequenceID, "step", step.StepID)
	return nil
}

func (m *Manager) renderStep(body, contactID string, custom map[string]any) (string, error) {
	binding := map[string]any{"contact_id": contactID}
	for k, v := range custom {
		binding[k] = v
	}
	return m.templates.Render(body, binding)
}

// UpdateEngagement increments one tracked counter for a contact's state.
// When the most recently sent step was an A/B test, the increment is also
// forwarded to the aggregator against the variant that was actually sent.
func (m *Manager) UpdateEngagement(ctx context.Context, contactID, sequenceID, metric string, value int) error {
	if !domain.ValidSequenceMetric(metric) {
		return fmt.Errorf("%w: %q", ErrInvalidMetric, metric)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	key := domain.StateKey(contactID, sequenceID)
	state, ok := m.states[key]
	if !ok {
		return fmt.Errorf("%w: %s in %s", ErrStateNotFound, contactID, sequenceID)
	}

	state.EngagementMetrics[metric] += value
	if err := m.store.Set(ctx, stateStoreKey(key), state); err != nil {
		return err
	}

	if state.CurrentStep == 0 {
		return nil
	}
	// The sequence definition can be missing (unreadable at load) or shorter
	// than the persisted step counter; skip attribution rather than index.
	seq, ok := m.sequences[sequenceID]
	if !ok || state.CurrentStep > len(seq.Steps) {
		return nil
	}
	lastSent := seq.Steps[state.CurrentStep-1]
	if lastSent.ABTest && state.LastVariant != "" && m.analytics != nil {
		if err := m.analytics.UpdateMetrics(ctx, abCampaignID(sequenceID, lastSent.StepID), state.LastVariant, metric, value); err != nil {
			m.log.Error("A/B metric attribution failed",
				"sequence", sequenceID, "step", lastSent.StepID,
				"variant", state.LastVariant, "error", err)
		}
	}
	return nil
}

// State returns a copy of a contact's sequence state.
func (m *Manager) State(contactID, sequenceID string) (domain.ContactSequenceState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	state, ok := m.states[domain.StateKey(contactID, sequenceID)]
	if !ok {
		return domain.ContactSequenceState{}, fmt.Errorf("%w: %s in %s", ErrStateNotFound, contactID, sequenceID)
	}
	return *state, nil
}

func abCampaignID(sequenceID, stepID string) string {
	return fmt.Sprintf("%s_%s", sequenceID, stepID)
}

// Package analytics tracks per-variant A/B test metrics and picks winners.
// The winner rule is deliberately simple: strictly highest click rate, no
// winner on ties, and confidence approximated as the winner's share of all
// clicks. It is not a significance test.
package analytics

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/ignite/lead-engine/internal/domain"
	"github.com/ignite/lead-engine/internal/pkg/logger"
	"github.com/ignite/lead-engine/internal/storage"
)

// Lookup sentinels. Absence is a routine outcome callers branch on.
var (
	ErrCampaignExists   = errors.New("analytics: campaign already exists")
	ErrCampaignNotFound = errors.New("analytics: campaign not found")
	ErrVariantNotFound  = errors.New("analytics: variant not found")
)

// VariantResult is one variant's raw counters and derived rates.
type VariantResult struct {
	Metrics domain.EmailMetrics `json:"metrics"`
	Rates   struct {
		OpenRate  float64 `json:"open_rate"`
		ClickRate float64 `json:"click_rate"`
		ReplyRate float64 `json:"reply_rate"`
	} `json:"rates"`
}

// CampaignResults is the computed outcome of one A/B test campaign.
// Winner is nil when two or more variants tie for the highest click rate.
type CampaignResults struct {
	CampaignID string                   `json:"campaign_id"`
	Variants   map[string]VariantResult `json:"variants"`
	Winner     *string                  `json:"winner"`
	Confidence *float64                 `json:"confidence_level"`
}

// Aggregator registers A/B test campaigns and accumulates per-variant
// metrics, persisting through the document store.
type Aggregator struct {
	mu        sync.Mutex
	campaigns map[string]map[string]*domain.ABTestVariant
	store     storage.Store
	log       *logger.Logger
}

// NewAggregator loads any persisted campaigns from the store.
func NewAggregator(ctx context.Context, store storage.Store) (*Aggregator, error) {
	a := &Aggregator{
		campaigns: make(map[string]map[string]*domain.ABTestVariant),
		store:     store,
		log:       logger.New("analytics"),
	}

	keys, err := store.Keys(ctx, "abtest:")
	if err != nil {
		return nil, fmt.Errorf("list campaigns: %w", err)
	}
	for _, key := range keys {
		var variants map[string]*domain.ABTestVariant
		if err := store.Get(ctx, key, &variants); err != nil {
			a.log.Warn("skipping unreadable campaign", "key", key, "error", err)
			continue
		}
		a.campaigns[key[len("abtest:"):]] = variants
	}
	return a, nil
}

func campaignKey(campaignID string) string { return "abtest:" + campaignID }

// CreateABTest registers a campaign with one variant per entry in the
// variants map. Registering an existing campaign id fails.
func (a *Aggregator) CreateABTest(ctx context.Context, campaignID string, vt domain.VariantType, variants map[string]string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if _, exists := a.campaigns[campaignID]; exists {
		return fmt.Errorf("%w: %s", ErrCampaignExists, campaignID)
	}
	return a.register(ctx, campaignID, vt, variants)
}

// EnsureABTest registers the campaign if absent. The sequence scheduler
// calls this on every A/B step send, so re-registration must be a no-op.
func (a *Aggregator) EnsureABTest(ctx context.Context, campaignID string, vt domain.VariantType, variants map[string]string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if _, exists := a.campaigns[campaignID]; exists {
		return nil
	}
	return a.register(ctx, campaignID, vt, variants)
}

func (a *Aggregator) register(ctx context.Context, campaignID string, vt domain.VariantType, variants map[string]string) error {
	set := make(map[string]*domain.ABTestVariant, len(variants))
	for name, content := range variants {
		set[name] = &domain.ABTestVariant{Type: vt, Name: name, Content: content}
	}
	a.campaigns[campaignID] = set

	if err := a.persist(ctx, campaignID); err != nil {
		return err
	}
	a.log.Info("registered A/B test campaign",
		"campaign", campaignID, "variants", len(variants))
	return nil
}

// UpdateMetrics adds value to one variant's named counter. Unknown
// campaign, variant, or metric name fail immediately.
func (a *Aggregator) UpdateMetrics(ctx context.Context, campaignID, variantName, metricType string, value int) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	variants, ok := a.campaigns[campaignID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrCampaignNotFound, campaignID)
	}
	variant, ok := variants[variantName]
	if !ok {
		return fmt.Errorf("%w: %s in campaign %s", ErrVariantNotFound, variantName, campaignID)
	}
	if err := variant.Metrics.Increment(metricType, value); err != nil {
		return err
	}
	return a.persist(ctx, campaignID)
}

// CampaignResults computes per-variant rates and declares a winner only
// when a single variant holds the strictly highest click rate.
func (a *Aggregator) CampaignResults(campaignID string) (CampaignResults, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	variants, ok := a.campaigns[campaignID]
	if !ok {
		return CampaignResults{}, fmt.Errorf("%w: %s", ErrCampaignNotFound, campaignID)
	}

	results := CampaignResults{
		CampaignID: campaignID,
		Variants:   make(map[string]VariantResult, len(variants)),
	}

	maxClickRate := -1.0
	totalClicks := 0
	for name, v := range variants {
		var vr VariantResult
		vr.Metrics = v.Metrics
		vr.Rates.OpenRate = v.Metrics.OpenRate()
		vr.Rates.ClickRate = v.Metrics.ClickRate()
		vr.Rates.ReplyRate = v.Metrics.ReplyRate()
		results.Variants[name] = vr

		totalClicks += v.Metrics.Clicked
		if vr.Rates.ClickRate > maxClickRate {
			maxClickRate = vr.Rates.ClickRate
		}
	}

	var winners []string
	for name, vr := range results.Variants {
		if vr.Rates.ClickRate == maxClickRate {
			winners = append(winners, name)
		}
	}

	if len(winners) == 1 {
		winner := winners[0]
		results.Winner = &winner
		confidence := 0.0
		if totalClicks > 0 {
			confidence = float64(variants[winner].Metrics.Clicked) / float64(totalClicks)
		}
		results.Confidence = &confidence
	}
	return results, nil
}

// CampaignSummary is one campaign's aggregate rates within a report.
type CampaignSummary struct {
	CampaignID string  `json:"campaign_id"`
	OpenRate   float64 `json:"open_rate"`
	ClickRate  float64 `json:"click_rate"`
	ReplyRate  float64 `json:"reply_rate"`
}

// Report aggregates rates across every registered campaign.
type Report struct {
	TotalCampaigns   int               `json:"total_campaigns"`
	TotalEmailsSent  int               `json:"total_emails_sent"`
	AverageOpenRate  float64           `json:"average_open_rate"`
	AverageClickRate float64           `json:"average_click_rate"`
	AverageReplyRate float64           `json:"average_reply_rate"`
	BestPerforming   []CampaignSummary `json:"best_performing_campaigns"`
}

// AnalyticsReport rolls up all campaigns, best performers first by click
// rate.
func (a *Aggregator) AnalyticsReport() Report {
	a.mu.Lock()
	defer a.mu.Unlock()

	report := Report{TotalCampaigns: len(a.campaigns)}
	var totalDelivered, totalOpened, totalClicked, totalReplied int

	for campaignID, variants := range a.campaigns {
		var agg domain.EmailMetrics
		for _, v := range variants {
			agg.Sent += v.Metrics.Sent
			agg.Delivered += v.Metrics.Delivered
			agg.Opened += v.Metrics.Opened
			agg.Clicked += v.Metrics.Clicked
			agg.Replied += v.Metrics.Replied

			totalDelivered += v.Metrics.Delivered
			totalOpened += v.Metrics.Opened
			totalClicked += v.Metrics.Clicked
			totalReplied += v.Metrics.Replied
		}
		report.TotalEmailsSent += agg.Sent
		report.BestPerforming = append(report.BestPerforming, CampaignSummary{
			CampaignID: campaignID,
			OpenRate:   agg.OpenRate(),
			ClickRate:  agg.ClickRate(),
			ReplyRate:  agg.ReplyRate(),
		})
	}

	if totalDelivered > 0 {
		report.AverageOpenRate = float64(totalOpened) / float64(totalDelivered)
		report.AverageReplyRate = float64(totalReplied) / float64(totalDelivered)
	}
	if totalOpened > 0 {
		report.AverageClickRate = float64(totalClicked) / float64(totalOpened)
	}

	sort.Slice(report.BestPerforming, func(i, j int) bool {
		return report.BestPerforming[i].ClickRate > report.BestPerforming[j].ClickRate
	})
	return report
}

func (a *Aggregator) persist(ctx context.Context, campaignID string) error {
	return a.store.Set(ctx, campaignKey(campaignID), a.campaigns[campaignID])
}

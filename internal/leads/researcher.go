package leads

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ignite/lead-engine/internal/domain"
	"github.com/ignite/lead-engine/internal/outreach"
	"github.com/ignite/lead-engine/internal/pkg/logger"
)

// Enricher fills in missing lead fields from an external data provider.
// Transient failures should be wrapped with outreach.Transient; permanent
// failures propagate without retry.
type Enricher interface {
	EnrichLead(ctx context.Context, raw domain.RawLead) (domain.RawLead, error)
}

// Source discovers raw leads for a business type in a location.
type Source interface {
	Name() string
	Discover(ctx context.Context, businessType, location string) ([]domain.RawLead, error)
}

// ResearcherConfig tunes the admission pipeline.
type ResearcherConfig struct {
	BatchSize       int
	MinQualityScore float64
	SearchCacheTTL  time.Duration
	LeadCacheTTL    time.Duration
}

// DefaultResearcherConfig returns the standard pipeline settings.
func DefaultResearcherConfig() ResearcherConfig {
	return ResearcherConfig{
		BatchSize:       50,
		MinQualityScore: 0.3,
		SearchCacheTTL:  time.Hour,
		LeadCacheTTL:    24 * time.Hour,
	}
}

// Researcher runs the pipeline that admits leads into the engagement
// engine: discover, dedup, enrich, validate.
type Researcher struct {
	cfg      ResearcherConfig
	sources  []Source
	enricher Enricher
	merger   *Merger
	fp       *Fingerprinter
	redis    *redis.Client
	retry    outreach.RetryPolicy
	log      *logger.Logger
}

// NewResearcher wires the pipeline. The redis client and enricher are
// optional; without them, caching and enrichment are skipped.
func NewResearcher(cfg ResearcherConfig, sources []Source, enricher Enricher, merger *Merger, redisClient *redis.Client) *Researcher {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	return &Researcher{
		cfg:      cfg,
		sources:  sources,
		enricher: enricher,
		merger:   merger,
		fp:       merger.fp,
		redis:    redisClient,
		retry:    outreach.DefaultRetryPolicy(),
		log:      logger.New("researcher"),
	}
}

// Research discovers leads from all sources concurrently, merges and
// deduplicates them, then enriches and validates in batches. A failing
// source contributes nothing but does not abort the run.
func (r *Researcher) Research(ctx context.Context, businessType, location string) ([]domain.LeadProfile, error) {
	lists := make([][]domain.RawLead, len(r.sources))
	var wg sync.WaitGroup
	for i, src := range r.sources {
		wg.Add(1)
		go func(i int, src Source) {
			defer wg.Done()
			leadsFound, err := r.searchSource(ctx, src, businessType, location)
			if err != nil {
				r.log.Error("source search failed", "source", src.Name(), "error", err)
				return
			}
			lists[i] = leadsFound
		}(i, src)
	}
	wg.Wait()

	merged := r.merger.Merge(lists...)
	r.log.Info("merged discovery results",
		"business_type", businessType, "location", location, "candidates", len(merged))

	var admitted []domain.LeadProfile
	for start := 0; start < len(merged); start += r.cfg.BatchSize {
		end := start + r.cfg.BatchSize
		if end > len(merged) {
			end = len(merged)
		}
		admitted = append(admitted, r.enrichBatch(ctx, merged[start:end])...)
	}
	return admitted, nil
}

// searchSource runs one discovery source with retry on transient failures
// and a short-lived result cache keyed by source+query.
func (r *Researcher) searchSource(ctx context.Context, src Source, businessType, location string) ([]domain.RawLead, error) {
	cacheKey := fmt.Sprintf("search:%s:%s:%s", src.Name(), businessType, location)
	if r.redis != nil {
		if cached, err := r.redis.Get(ctx, cacheKey).Bytes(); err == nil {
			var leads []domain.RawLead
			if json.Unmarshal(cached, &leads) == nil {
				return leads, nil
			}
		}
	}

	var result []domain.RawLead
	err := r.retry.Do(ctx, func(ctx context.Context) error {
		found, err := src.Discover(ctx, businessType, location)
		if err != nil {
			return err
		}
		result = found
		return nil
	})
	if err != nil {
		return nil, err
	}

	if r.redis != nil {
		if data, err := json.Marshal(result); err == nil {
			r.redis.Set(ctx, cacheKey, data, r.cfg.SearchCacheTTL)
		}
	}
	return result, nil
}

// enrichBatch enriches one batch concurrently. Leads that fail enrichment
// after retries, or fail validation, are dropped (not queued for retry).
func (r *Researcher) enrichBatch(ctx context.Context, batch []domain.RawLead) []domain.LeadProfile {
	results := make([]*domain.LeadProfile, len(batch))
	var wg sync.WaitGroup
	for i, raw := range batch {
		wg.Add(1)
		go func(i int, raw domain.RawLead) {
			defer wg.Done()
			profile, err := r.enrichLead(ctx, raw)
			if err != nil {
				r.log.Warn("enrichment failed", "lead", raw.Email, "error", err)
				return
			}
			results[i] = profile
		}(i, raw)
	}
	wg.Wait()

	var valid []domain.LeadProfile
	for _, p := range results {
		if p != nil && r.Validate(*p) {
			valid = append(valid, *p)
		}
	}
	return valid
}

// enrichLead enriches one lead with retry on transient failures, consulting
// and updating the per-fingerprint cache.
func (r *Researcher) enrichLead(ctx context.Context, raw domain.RawLead) (*domain.LeadProfile, error) {
	cacheKey := "lead:" + r.fp.Fingerprint(raw)
	if r.redis != nil {
		if cached, err := r.redis.Get(ctx, cacheKey).Bytes(); err == nil {
			var p domain.LeadProfile
			if json.Unmarshal(cached, &p) == nil {
				return &p, nil
			}
		}
	}

	enriched := raw
	if r.enricher != nil {
		err := r.retry.Do(ctx, func(ctx context.Context) error {
			out, err := r.enricher.EnrichLead(ctx, raw)
			if err != nil {
				return err
			}
			enriched = out
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	profile, err := domain.NewLeadProfile(enriched,
		InitialEngagementScore(enriched), QualityScore(enriched))
	if err != nil {
		return nil, err
	}

	if r.redis != nil {
		if data, err := json.Marshal(profile); err == nil {
			r.redis.Set(ctx, cacheKey, data, r.cfg.LeadCacheTTL)
		}
	}
	return &profile, nil
}

// Validate gates admission: required identity fields, a minimally
// well-formed email, and a quality score at or above the configured floor.
// Leads failing validation are discarded, not retried.
func (r *Researcher) Validate(p domain.LeadProfile) bool {
	if p.Email == "" || p.Name == "" || p.BusinessName == "" {
		return false
	}
	if !containsAt(p.Email) {
		return false
	}
	return p.DataQualityScore >= r.cfg.MinQualityScore
}

func containsAt(email string) bool {
	hasAt, hasDot := false, false
	for _, c := range email {
		switch c {
		case '@':
			hasAt = true
		case '.':
			hasDot = true
		}
	}
	return hasAt && hasDot
}

package leads

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/lead-engine/internal/domain"
)

func TestQualityScoreEmpty(t *testing.T) {
	assert.Equal(t, 0.0, QualityScore(domain.RawLead{}))
}

func TestQualityScorePresenceAndBonus(t *testing.T) {
	// One field present without bonus: 1/10.
	assert.InDelta(t, 0.1, QualityScore(domain.RawLead{Name: "Jamie"}), 1e-9)

	// Well-formed email earns the format bonus: 1.5/10.
	assert.InDelta(t, 0.15, QualityScore(domain.RawLead{Email: "a@b.com"}), 1e-9)

	// Malformed email still counts for presence only.
	assert.InDelta(t, 0.1, QualityScore(domain.RawLead{Email: "nodomain"}), 1e-9)

	// Phone bonus requires at least 10 digits after normalization.
	assert.InDelta(t, 0.15, QualityScore(domain.RawLead{Phone: "555-010-20301"}), 1e-9)
	assert.InDelta(t, 0.1, QualityScore(domain.RawLead{Phone: "555"}), 1e-9)

	// Website bonus requires a scheme.
	assert.InDelta(t, 0.15, QualityScore(domain.RawLead{Website: "https://x.com"}), 1e-9)
	assert.InDelta(t, 0.1, QualityScore(domain.RawLead{Website: "x.com"}), 1e-9)
}

func TestQualityScoreCapped(t *testing.T) {
	full := domain.RawLead{
		Email:        "owner@cafe.com",
		Name:         "Jamie",
		BusinessName: "The Cafe",
		Phone:        "555-010-203-04",
		Instagram:    "@cafe",
		Facebook:     "cafe",
		LinkedIn:     "cafe",
		Website:      "https://cafe.com",
		BusinessType: "restaurant",
		Location:     "Austin",
	}
	score := QualityScore(full)
	assert.LessOrEqual(t, score, 1.0)
	assert.Greater(t, score, 0.9)
}

func TestInitialEngagementScoreWeights(t *testing.T) {
	assert.Equal(t, 0.0, InitialEngagementScore(domain.RawLead{}))
	assert.InDelta(t, 0.2, InitialEngagementScore(domain.RawLead{Email: "a@b.com"}), 1e-9)
	assert.InDelta(t, 0.4, InitialEngagementScore(domain.RawLead{Email: "a@b.com", Phone: "555"}), 1e-9)
	assert.InDelta(t, 0.1, InitialEngagementScore(domain.RawLead{Instagram: "@x"}), 1e-9)

	// Business name alone does not earn the validation weight; it needs
	// location too.
	assert.Equal(t, 0.0, InitialEngagementScore(domain.RawLead{BusinessName: "Cafe"}))
	assert.InDelta(t, 0.2, InitialEngagementScore(domain.RawLead{BusinessName: "Cafe", Location: "Austin"}), 1e-9)
}

func TestEngagementScoreRecentInteractions(t *testing.T) {
	p, err := domain.NewLeadProfile(domain.RawLead{
		Email: "owner@cafe.com", Name: "Jamie", BusinessName: "The Cafe",
	}, 0.2, 0.3)
	require.NoError(t, err)

	// Base from contact data alone.
	assert.InDelta(t, 0.2, EngagementScore(p), 1e-9)

	p = p.WithInteraction(domain.Interaction{Type: domain.InteractionEmailClicked})
	assert.InDelta(t, 0.4, EngagementScore(p), 1e-9)

	// Interactions older than the window stop counting.
	stale := p.WithInteraction(domain.Interaction{
		Type:      domain.InteractionMeetingScheduled,
		Timestamp: time.Now().Add(-40 * 24 * time.Hour),
	})
	assert.InDelta(t, 0.4, EngagementScore(stale), 1e-9)
}

func TestEngagementScoreCapped(t *testing.T) {
	p, _ := domain.NewLeadProfile(domain.RawLead{
		Email: "owner@cafe.com", Name: "Jamie", BusinessName: "The Cafe", Location: "Austin",
	}, 0.2, 0.3)
	for i := 0; i < 5; i++ {
		p = p.WithInteraction(domain.Interaction{Type: domain.InteractionMeetingScheduled})
	}
	assert.Equal(t, 1.0, EngagementScore(p))
}

func TestUpdateProfileRecomputesScore(t *testing.T) {
	p, _ := domain.NewLeadProfile(domain.RawLead{
		Email: "owner@cafe.com", Name: "Jamie", BusinessName: "The Cafe",
	}, 0.2, 0.3)

	updated := UpdateProfile(p, domain.Interaction{Type: domain.InteractionWebsiteVisit})

	assert.InDelta(t, 0.2, p.EngagementScore, 1e-9, "input profile untouched")
	assert.InDelta(t, 0.5, updated.EngagementScore, 1e-9)
	assert.InDelta(t, 0.3, updated.DataQualityScore, 1e-9)
	assert.Len(t, updated.InteractionHistory, 1)
}

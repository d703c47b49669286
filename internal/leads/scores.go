package leads

import (
	"strings"
	"time"

	"github.com/ignite/lead-engine/internal/domain"
)

// QualityScore measures completeness and validity of a raw lead's data.
// Every contact/classification field contributes +1 when present, plus a
// +0.5 bonus when it passes a light format check; the total is divided by
// the field count and capped at 1.0.
func QualityScore(raw domain.RawLead) float64 {
	type check struct {
		value string
		bonus func(string) bool
	}
	fields := []check{
		{raw.Email, func(v string) bool { return strings.Contains(v, "@") && strings.Contains(v, ".") }},
		{raw.Name, nil},
		{raw.BusinessName, nil},
		{raw.Phone, func(v string) bool { return len(normalizePhone(v)) >= 10 }},
		{raw.Instagram, nil},
		{raw.Facebook, nil},
		{raw.LinkedIn, nil},
		{raw.Website, func(v string) bool {
			return strings.Contains(v, "http://") || strings.Contains(v, "https://")
		}},
		{raw.BusinessType, nil},
		{raw.Location, nil},
	}

	var score float64
	for _, f := range fields {
		if f.value == "" {
			continue
		}
		score++
		if f.bonus != nil && f.bonus(f.value) {
			score += 0.5
		}
	}

	score /= float64(len(fields))
	if score > 1.0 {
		return 1.0
	}
	return score
}

// InitialEngagementScore estimates engageability from available data before
// any interaction has happened: weighted presence of contact info, social
// profiles, and business validation.
func InitialEngagementScore(raw domain.RawLead) float64 {
	var score float64
	if raw.Email != "" {
		score += 0.2
	}
	if raw.Phone != "" {
		score += 0.2
	}
	if raw.Website != "" {
		score += 0.1
	}
	if raw.Instagram != "" {
		score += 0.1
	}
	if raw.Facebook != "" {
		score += 0.1
	}
	if raw.LinkedIn != "" {
		score += 0.1
	}
	if raw.BusinessName != "" && raw.Location != "" {
		score += 0.2
	}
	if score > 1.0 {
		return 1.0
	}
	return score
}

// recentWindow bounds which interactions still count toward engagement.
const recentWindow = 30 * 24 * time.Hour

var interactionWeights = map[string]float64{
	domain.InteractionEmailOpened:      0.1,
	domain.InteractionEmailClicked:     0.2,
	domain.InteractionWebsiteVisit:     0.3,
	domain.InteractionFormSubmission:   0.4,
	domain.InteractionMeetingScheduled: 0.5,
}

// EngagementScore recomputes a profile's score from its base data plus
// interactions within the recent window.
func EngagementScore(p domain.LeadProfile) float64 {
	base := InitialEngagementScore(domain.RawLead{
		Email:        p.Email,
		Phone:        p.Phone,
		Website:      p.Website,
		Instagram:    p.Instagram,
		Facebook:     p.Facebook,
		LinkedIn:     p.LinkedIn,
		BusinessName: p.BusinessName,
		Location:     p.Location,
	})

	cutoff := time.Now().Add(-recentWindow)
	for _, in := range p.InteractionHistory {
		if in.Timestamp.Before(cutoff) {
			continue
		}
		base += interactionWeights[in.Type]
	}
	if base > 1.0 {
		return 1.0
	}
	return base
}

// UpdateProfile appends an interaction and recomputes the engagement score,
// returning the new profile value. The input profile is never mutated.
func UpdateProfile(p domain.LeadProfile, in domain.Interaction) domain.LeadProfile {
	next := p.WithInteraction(in)
	return next.WithScores(EngagementScore(next), next.DataQualityScore)
}

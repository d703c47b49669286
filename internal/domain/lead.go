package domain

import (
	"fmt"
	"regexp"
	"time"
)

// VerificationStatus enumerates the verification states of a lead.
type VerificationStatus string

const (
	VerificationPending  VerificationStatus = "pending"
	VerificationVerified VerificationStatus = "verified"
	VerificationRejected VerificationStatus = "rejected"
)

// Interaction types recorded against a lead. The weights used for
// engagement scoring live in internal/leads.
const (
	InteractionEmailOpened      = "email_opened"
	InteractionEmailClicked     = "email_clicked"
	InteractionWebsiteVisit     = "website_visit"
	InteractionFormSubmission   = "form_submission"
	InteractionMeetingScheduled = "meeting_scheduled"
	InteractionOutreach         = "outreach"
)

// Interaction is a single entry in a profile's append-only history.
type Interaction struct {
	ID        string         `json:"id"`
	Type      string         `json:"type"`
	Channel   string         `json:"channel,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
	Details   map[string]any `json:"details,omitempty"`
}

// RawLead is an unvalidated lead record as discovered by a research source,
// before enrichment and admission into the pipeline.
type RawLead struct {
	Email        string `json:"email"`
	Name         string `json:"name"`
	BusinessName string `json:"business_name"`
	Phone        string `json:"phone,omitempty"`
	Instagram    string `json:"instagram,omitempty"`
	Facebook     string `json:"facebook,omitempty"`
	LinkedIn     string `json:"linkedin,omitempty"`
	Website      string `json:"website,omitempty"`
	BusinessType string `json:"business_type,omitempty"`
	Location     string `json:"location,omitempty"`
	Source       string `json:"source,omitempty"`
}

// LeadProfile is the immutable representation of an admitted lead.
// Updates never mutate in place: With* methods return a new value and the
// caller replaces its reference.
type LeadProfile struct {
	Email        string `json:"email"`
	Name         string `json:"name"`
	BusinessName string `json:"business_name"`

	Phone     string `json:"phone,omitempty"`
	Instagram string `json:"instagram,omitempty"`
	Facebook  string `json:"facebook,omitempty"`
	LinkedIn  string `json:"linkedin,omitempty"`
	Website   string `json:"website,omitempty"`

	BusinessType string `json:"business_type,omitempty"`
	Location     string `json:"location,omitempty"`

	EngagementScore  float64 `json:"engagement_score"`
	DataQualityScore float64 `json:"data_quality_score"`

	LastInteraction    *time.Time    `json:"last_interaction,omitempty"`
	InteractionHistory []Interaction `json:"interaction_history,omitempty"`

	Tags               []string           `json:"tags,omitempty"`
	VerificationStatus VerificationStatus `json:"verification_status"`
	UpdatedAt          time.Time          `json:"updated_at"`
}

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// ValidEmail reports whether s matches the local@domain pattern the engine
// requires at admission.
func ValidEmail(s string) bool {
	return emailPattern.MatchString(s)
}

// NewLeadProfile constructs a validated profile from an enriched raw lead.
// Construction is the only validation point: a LeadProfile value that exists
// is well-formed.
func NewLeadProfile(raw RawLead, engagementScore, qualityScore float64) (LeadProfile, error) {
	if !ValidEmail(raw.Email) {
		return LeadProfile{}, fmt.Errorf("%w: invalid email format %q", ErrInvalidLead, raw.Email)
	}
	if raw.Name == "" || raw.BusinessName == "" {
		return LeadProfile{}, fmt.Errorf("%w: name and business name are required", ErrInvalidLead)
	}
	return LeadProfile{
		Email:              raw.Email,
		Name:               raw.Name,
		BusinessName:       raw.BusinessName,
		Phone:              raw.Phone,
		Instagram:          raw.Instagram,
		Facebook:           raw.Facebook,
		LinkedIn:           raw.LinkedIn,
		Website:            raw.Website,
		BusinessType:       raw.BusinessType,
		Location:           raw.Location,
		EngagementScore:    clampScore(engagementScore),
		DataQualityScore:   clampScore(qualityScore),
		VerificationStatus: VerificationPending,
		UpdatedAt:          time.Now().UTC(),
	}, nil
}

// WithInteraction returns a copy of the profile whose history is the old
// history plus exactly one new entry.
func (p LeadProfile) WithInteraction(in Interaction) LeadProfile {
	if in.Timestamp.IsZero() {
		in.Timestamp = time.Now().UTC()
	}
	history := make([]Interaction, len(p.InteractionHistory), len(p.InteractionHistory)+1)
	copy(history, p.InteractionHistory)
	history = append(history, in)

	next := p
	next.InteractionHistory = history
	ts := in.Timestamp
	next.LastInteraction = &ts
	next.UpdatedAt = time.Now().UTC()
	return next
}

// WithScores returns a copy of the profile with recomputed scores.
func (p LeadProfile) WithScores(engagement, quality float64) LeadProfile {
	next := p
	next.EngagementScore = clampScore(engagement)
	next.DataQualityScore = clampScore(quality)
	next.UpdatedAt = time.Now().UTC()
	return next
}

// WithVerification returns a copy of the profile with the given status.
func (p LeadProfile) WithVerification(status VerificationStatus) LeadProfile {
	next := p
	next.VerificationStatus = status
	next.UpdatedAt = time.Now().UTC()
	return next
}

// WithTag returns a copy of the profile with the tag added. Tags behave as a
// set: adding an existing tag returns an equivalent profile.
func (p LeadProfile) WithTag(tag string) LeadProfile {
	for _, t := range p.Tags {
		if t == tag {
			return p
		}
	}
	tags := make([]string, len(p.Tags), len(p.Tags)+1)
	copy(tags, p.Tags)
	next := p
	next.Tags = append(tags, tag)
	next.UpdatedAt = time.Now().UTC()
	return next
}

func clampScore(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

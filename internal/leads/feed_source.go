package leads

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/mmcdole/gofeed"

	"github.com/ignite/lead-engine/internal/domain"
	"github.com/ignite/lead-engine/internal/outreach"
	"github.com/ignite/lead-engine/internal/pkg/logger"
)

// FeedSource discovers leads from business-directory RSS/Atom feeds. Each
// feed item is treated as one listed business: the title is the business
// name, the link its website, and a contact email is pulled from the item
// body when present.
type FeedSource struct {
	parser *gofeed.Parser
	feeds  map[string][]string // business type to feed URLs
	log    *logger.Logger
}

// NewFeedSource returns a source over the given feeds-by-business-type map.
func NewFeedSource(feeds map[string][]string) *FeedSource {
	return &FeedSource{
		parser: gofeed.NewParser(),
		feeds:  feeds,
		log:    logger.New("feed-source"),
	}
}

func (s *FeedSource) Name() string { return "directory-feeds" }

var feedEmailRegex = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)

// Discover parses every feed configured for the business type and maps
// items to raw leads. One unreachable feed does not fail the whole source.
func (s *FeedSource) Discover(ctx context.Context, businessType, location string) ([]domain.RawLead, error) {
	urls := s.feeds[businessType]
	if len(urls) == 0 {
		return nil, nil
	}

	var leads []domain.RawLead
	var lastErr error
	for _, url := range urls {
		feed, err := s.parser.ParseURLWithContext(url, ctx)
		if err != nil {
			s.log.Warn("feed fetch failed", "url", url, "error", err)
			lastErr = err
			continue
		}
		for _, item := range feed.Items {
			lead, ok := s.itemToLead(item, businessType, location)
			if ok {
				leads = append(leads, lead)
			}
		}
	}

	if leads == nil && lastErr != nil {
		return nil, outreach.Transient(fmt.Errorf("all feeds failed: %w", lastErr))
	}
	return leads, nil
}

// itemToLead extracts a lead from a feed item. Items without a contact
// email are skipped: they cannot pass admission validation anyway.
func (s *FeedSource) itemToLead(item *gofeed.Item, businessType, location string) (domain.RawLead, bool) {
	body := item.Description + " " + item.Content
	email := feedEmailRegex.FindString(body)
	if email == "" {
		return domain.RawLead{}, false
	}

	name := email[:strings.Index(email, "@")]
	if item.Author != nil && item.Author.Name != "" {
		name = item.Author.Name
	}

	return domain.RawLead{
		Email:        email,
		Name:         name,
		BusinessName: strings.TrimSpace(item.Title),
		Website:      item.Link,
		BusinessType: businessType,
		Location:     location,
		Source:       s.Name(),
	}, true
}

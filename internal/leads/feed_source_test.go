package leads

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/lead-engine/internal/outreach"
)

const directoryFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
  <channel>
    <title>Austin Restaurants</title>
    <item>
      <title>The Cafe</title>
      <link>https://thecafe.com</link>
      <description>Family-run cafe. Bookings: owner@cafe.com</description>
    </item>
    <item>
      <title>Bistro Nine</title>
      <link>https://bistronine.com</link>
      <description>No contact listed here.</description>
    </item>
    <item>
      <title>Tavern on 6th</title>
      <link>https://tavern6.com</link>
      <description>Events inquiries to events@tavern6.com please.</description>
      <author>mara@tavern6.com (Mara Cole)</author>
    </item>
  </channel>
</rss>`

func feedServer(t *testing.T, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestFeedDiscover(t *testing.T) {
	srv := feedServer(t, directoryFeed)
	src := NewFeedSource(map[string][]string{"restaurant": {srv.URL}})

	leads, err := src.Discover(context.Background(), "restaurant", "Austin")
	require.NoError(t, err)
	require.Len(t, leads, 2, "item without an email is skipped")

	cafe := leads[0]
	assert.Equal(t, "owner@cafe.com", cafe.Email)
	assert.Equal(t, "owner", cafe.Name, "name falls back to the email local part")
	assert.Equal(t, "The Cafe", cafe.BusinessName)
	assert.Equal(t, "https://thecafe.com", cafe.Website)
	assert.Equal(t, "restaurant", cafe.BusinessType)
	assert.Equal(t, "Austin", cafe.Location)
	assert.Equal(t, "directory-feeds", cafe.Source)

	tavern := leads[1]
	assert.Equal(t, "events@tavern6.com", tavern.Email)
	assert.Equal(t, "Mara Cole", tavern.Name, "author name preferred over local part")
}

func TestFeedDiscoverUnknownBusinessType(t *testing.T) {
	src := NewFeedSource(map[string][]string{"restaurant": {"http://unused"}})
	leads, err := src.Discover(context.Background(), "florist", "Austin")
	assert.NoError(t, err)
	assert.Nil(t, leads)
}

func TestFeedDiscoverPartialFailure(t *testing.T) {
	srv := feedServer(t, directoryFeed)
	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	t.Cleanup(down.Close)

	src := NewFeedSource(map[string][]string{"restaurant": {down.URL, srv.URL}})
	leads, err := src.Discover(context.Background(), "restaurant", "Austin")
	require.NoError(t, err, "one dead feed does not fail the source")
	assert.Len(t, leads, 2)
}

func TestFeedDiscoverAllFeedsFailed(t *testing.T) {
	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	t.Cleanup(down.Close)

	src := NewFeedSource(map[string][]string{"restaurant": {down.URL}})
	_, err := src.Discover(context.Background(), "restaurant", "Austin")
	require.Error(t, err)
	assert.True(t, outreach.IsTransient(err))
}

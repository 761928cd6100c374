// Package feed handles source feed downloading, parsing, and episode
// discovery for podcasts and newsletters.
package feed

import (
	"context"
	"crypto/sha256"
	"fmt"
	"io"
	"net/http"
	"sort"
	"time"

	"github.com/mmcdole/gofeed"

	"atlas/internal/model"
)

// HTTPClient is the interface for performing HTTP requests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// maxFeedBytes bounds how much of a feed body is read.
const maxFeedBytes = 5 * 1024 * 1024

// Fetcher downloads and parses source feeds.
type Fetcher struct {
	client  HTTPClient
	timeout time.Duration
}

// New creates a Fetcher with the given HTTP client.
func New(client HTTPClient) *Fetcher {
	return &Fetcher{
		client:  client,
		timeout: 30 * time.Second,
	}
}

// Fetch downloads and parses a feed from the given URL.
func (f *Fetcher) Fetch(ctx context.Context, url string) (*gofeed.Feed, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", "Atlas/1.0")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http get: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFeedBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	parser := gofeed.NewParser()
	feed, err := parser.ParseString(string(body))
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}
	return feed, nil
}

// ItemGUID returns the GUID for a feed item. If the item has no GUID, a
// SHA-256 hash of title+link is used.
func ItemGUID(item *gofeed.Item) string {
	if item.GUID != "" {
		return item.GUID
	}
	h := sha256.Sum256([]byte(item.Title + "|" + item.Link))
	return fmt.Sprintf("sha256:%x", h[:16])
}

// Episodes extracts episode candidates from a parsed feed, applying the
// given filter rules to titles and descriptions.
func Episodes(feed *gofeed.Feed, rules []Rule) []model.Episode {
	var episodes []model.Episode
	for _, item := range feed.Items {
		if !Match(item.Title, item.Description, rules) {
			continue
		}
		episodes = append(episodes, model.Episode{
			Title:       item.Title,
			Link:        item.Link,
			GUID:        ItemGUID(item),
			Description: item.Description,
			PublishedAt: item.PublishedParsed,
		})
	}
	return episodes
}

// ClassifyFrequency derives a coarse publishing cadence from item
// timestamps, for adaptive scheduling. Fewer than two dated items yields
// FrequencyUnknown.
func ClassifyFrequency(feed *gofeed.Feed) model.UpdateFrequency {
	var times []time.Time
	for _, item := range feed.Items {
		if item.PublishedParsed != nil {
			times = append(times, *item.PublishedParsed)
		}
	}
	if len(times) < 2 {
		return model.FrequencyUnknown
	}
	sort.Slice(times, func(i, j int) bool { return times[i].Before(times[j]) })

	gaps := make([]time.Duration, 0, len(times)-1)
	for i := 1; i < len(times); i++ {
		gaps = append(gaps, times[i].Sub(times[i-1]))
	}
	sort.Slice(gaps, func(i, j int) bool { return gaps[i] < gaps[j] })
	median := gaps[len(gaps)/2]

	switch {
	case median <= 2*time.Hour:
		return model.FrequencyHourly
	case median <= 36*time.Hour:
		return model.FrequencyDaily
	default:
		return model.FrequencyWeekly
	}
}

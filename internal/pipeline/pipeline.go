// Package pipeline composes feed discovery, quality judgment, persistence,
// and notification into runners the scheduler can execute.
package pipeline

import (
	"context"
	"crypto/sha256"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"atlas/internal/config"
	"atlas/internal/feed"
	"atlas/internal/judge"
	"atlas/internal/model"
	"atlas/internal/notify"
	"atlas/internal/quality"
	"atlas/internal/queue"
	"atlas/internal/storage"
)

// ContentFetcher retrieves the full text behind a discovered episode link.
type ContentFetcher interface {
	FetchContent(ctx context.Context, url string) (string, error)
}

// HTTPContent fetches episode pages over plain HTTP.
type HTTPContent struct {
	client feed.HTTPClient
}

// NewHTTPContent creates an HTTPContent fetcher.
func NewHTTPContent(client feed.HTTPClient) *HTTPContent {
	return &HTTPContent{client: client}
}

// maxContentBytes bounds how much of a content page is read.
const maxContentBytes = 2 * 1024 * 1024

// FetchContent downloads the page at url and returns its body.
func (h *HTTPContent) FetchContent(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", "Atlas/1.0")

	resp, err := h.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("http get: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxContentBytes))
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}
	return string(body), nil
}

// minAcceptScore is the scorer threshold at which non-transcript content is
// kept (the "fair" bucket and above).
const minAcceptScore = 0.4

// How many new episodes one task run will process, and how many queued
// retries it drains first.
const (
	maxEpisodesPerRun = 5
	maxQueueDrain     = 5
)

// Deps wires the pipeline's collaborators.
type Deps struct {
	Feeds    *feed.Fetcher
	Content  ContentFetcher
	Judge    *judge.Judge
	Scorer   *quality.Scorer
	Store    storage.Storage
	Notifier notify.Notifier
	Queue    *queue.Queue
	Log      *slog.Logger
}

// Pipeline turns configured sources into scheduler runners.
type Pipeline struct {
	feeds    *feed.Fetcher
	content  ContentFetcher
	judge    *judge.Judge
	scorer   *quality.Scorer
	store    storage.Storage
	notifier notify.Notifier
	queue    *queue.Queue
	log      *slog.Logger
}

// New constructs a Pipeline.
func New(deps Deps) *Pipeline {
	return &Pipeline{
		feeds:    deps.Feeds,
		content:  deps.Content,
		judge:    deps.Judge,
		scorer:   deps.Scorer,
		store:    deps.Store,
		notifier: deps.Notifier,
		queue:    deps.Queue,
		log:      deps.Log,
	}
}

// Runner returns the scheduler runner for one source. onFrequency is called
// with the source's observed publishing cadence after each successful feed
// fetch, letting the caller adapt the task's interval.
func (p *Pipeline) Runner(src config.Source, onFrequency func(model.UpdateFrequency)) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		return p.processSource(ctx, src, onFrequency)
	}
}

func (p *Pipeline) processSource(ctx context.Context, src config.Source, onFrequency func(model.UpdateFrequency)) error {
	p.drainQueue(ctx)

	parsed, err := p.feeds.Fetch(ctx, src.FeedURL)
	if err != nil {
		return fmt.Errorf("fetch feed %s: %w", src.Name, err)
	}

	if onFrequency != nil {
		if freq := feed.ClassifyFrequency(parsed); freq != model.FrequencyUnknown {
			onFrequency(freq)
		}
	}

	episodes := feed.Episodes(parsed, src.Filters)
	processed := 0
	for _, ep := range episodes {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if processed >= maxEpisodesPerRun {
			break
		}

		if err := p.processEpisode(ctx, src, ep); err != nil {
			p.log.Error("process episode", "source", src.Name, "title", ep.Title, "error", err)
			p.enqueueRetry(src, ep)
			continue
		}
		processed++
	}

	p.log.Debug("source checked", "source", src.Name, "episodes", len(episodes), "processed", processed)
	return nil
}

func (p *Pipeline) processEpisode(ctx context.Context, src config.Source, ep model.Episode) error {
	if ep.Link == "" {
		return fmt.Errorf("episode %q has no link", ep.Title)
	}

	content, err := p.content.FetchContent(ctx, ep.Link)
	if err != nil {
		return fmt.Errorf("fetch content: %w", err)
	}

	hash := contentHash(content)
	stored, err := p.store.IsStored(ctx, hash)
	if err != nil {
		return fmt.Errorf("check stored: %w", err)
	}
	if stored {
		p.log.Debug("duplicate content skipped", "source", src.Name, "title", ep.Title)
		return nil
	}

	accepted, score, category, reasons := p.assess(content, src, ep)

	report := model.QualityReport{
		SourceName:   src.Name,
		Title:        ep.Title,
		OverallScore: score,
		Accepted:     accepted,
		Category:     category,
		Reasons:      strings.Join(reasons, "; "),
	}
	if err := p.store.SaveReport(ctx, &report); err != nil {
		return fmt.Errorf("save report: %w", err)
	}

	if !accepted {
		p.log.Info("content rejected", "source", src.Name, "title", ep.Title,
			"score", score, "category", category)
		return nil
	}

	item := model.ContentItem{
		SourceName:  src.Name,
		Kind:        src.Kind,
		Title:       ep.Title,
		URL:         ep.Link,
		ContentHash: hash,
		WordCount:   len(strings.Fields(content)),
	}
	saved, err := p.store.SaveContent(ctx, &item)
	if err != nil {
		return fmt.Errorf("save content: %w", err)
	}
	if !saved {
		p.log.Debug("duplicate content skipped", "source", src.Name, "title", ep.Title)
		return nil
	}

	p.notifier.Notify(notify.FormatAccepted(item, score))
	p.log.Info("content stored", "source", src.Name, "title", ep.Title, "score", score)
	return nil
}

// assess routes a candidate to the transcript judge for podcasts and to the
// general content scorer for everything else.
func (p *Pipeline) assess(content string, src config.Source, ep model.Episode) (bool, float64, string, []string) {
	if src.Kind == model.SourcePodcast {
		verdict := p.judge.Evaluate(content, src.Show, ep.Title)
		return verdict.IsValid, verdict.OverallScore, string(verdict.Confidence), verdict.Reasons
	}

	assessment := p.scorer.Assess(content, ep.Title, map[string]string{
		"source": src.Name,
		"date":   publishedString(ep),
	})
	accepted := assessment.OverallScore >= minAcceptScore
	return accepted, assessment.OverallScore, string(assessment.Level), assessment.Recommendations
}

func publishedString(ep model.Episode) string {
	if ep.PublishedAt == nil {
		return ""
	}
	return ep.PublishedAt.UTC().Format(time.RFC3339)
}

// enqueueRetry records a failed episode as a queued job so a later run can
// retry it under the queue's bounded-retry policy.
func (p *Pipeline) enqueueRetry(src config.Source, ep model.Episode) {
	id := p.queue.Enqueue(map[string]any{
		"job_id": "episode:" + ep.GUID,
		"source": src.Name,
		"kind":   string(src.Kind),
		"show":   src.Show,
		"title":  ep.Title,
		"link":   ep.Link,
		"guid":   ep.GUID,
	}, src.Priority)
	p.log.Debug("episode queued for retry", "job", id, "source", src.Name)
}

// drainQueue retries a bounded number of previously failed episodes.
func (p *Pipeline) drainQueue(ctx context.Context) {
	for i := 0; i < maxQueueDrain; i++ {
		if ctx.Err() != nil {
			return
		}
		job := p.queue.Dequeue()
		if job == nil {
			return
		}

		src := config.Source{
			Name: stringField(job.Payload, "source"),
			Kind: model.SourceKind(stringField(job.Payload, "kind")),
			Show: stringField(job.Payload, "show"),
		}
		ep := model.Episode{
			Title: stringField(job.Payload, "title"),
			Link:  stringField(job.Payload, "link"),
			GUID:  stringField(job.Payload, "guid"),
		}

		if err := p.processEpisode(ctx, src, ep); err != nil {
			p.log.Error("retry episode", "job", job.ID, "attempts", job.Attempts, "error", err)
			p.queue.MarkFailed(job.ID)
			p.queue.Enqueue(job.Payload, job.Priority)
			continue
		}
		p.queue.MarkComplete(job.ID)
	}
}

func stringField(payload map[string]any, key string) string {
	if v, ok := payload[key].(string); ok {
		return v
	}
	return ""
}

func contentHash(content string) string {
	h := sha256.Sum256([]byte(content))
	return fmt.Sprintf("sha256:%x", h[:16])
}

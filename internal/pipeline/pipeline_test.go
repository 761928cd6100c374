package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"sync"
	"testing"

	"atlas/internal/config"
	"atlas/internal/feed"
	"atlas/internal/judge"
	"atlas/internal/model"
	"atlas/internal/quality"
	"atlas/internal/queue"
	"atlas/internal/storage"
)

type routeResponse struct {
	status int
	body   string
}

// routeClient serves canned responses by URL, standing in for the network.
type routeClient struct {
	mu     sync.Mutex
	routes map[string]routeResponse
}

func newRouteClient() *routeClient {
	return &routeClient{routes: make(map[string]routeResponse)}
}

func (c *routeClient) set(url string, status int, body string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.routes[url] = routeResponse{status: status, body: body}
}

func (c *routeClient) Do(req *http.Request) (*http.Response, error) {
	c.mu.Lock()
	resp, ok := c.routes[req.URL.String()]
	c.mu.Unlock()
	if !ok {
		resp = routeResponse{status: http.StatusNotFound, body: "not found"}
	}
	return &http.Response{
		StatusCode: resp.status,
		Body:       io.NopCloser(bytes.NewBufferString(resp.body)),
	}, nil
}

type captureNotifier struct {
	mu       sync.Mutex
	messages []string
}

func (n *captureNotifier) Notify(text string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, text)
}

func (n *captureNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.messages)
}

type testPipeline struct {
	pipeline *Pipeline
	store    storage.Storage
	queue    *queue.Queue
	notifier *captureNotifier
}

func newTestPipeline(t *testing.T, client *routeClient) *testPipeline {
	t.Helper()

	store, err := storage.NewSQLite(":memory:")
	if err != nil {
		t.Fatalf("open test storage: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	q := queue.New(3)
	notifier := &captureNotifier{}

	p := New(Deps{
		Feeds:    feed.New(client),
		Content:  NewHTTPContent(client),
		Judge:    judge.New(),
		Scorer:   quality.NewScorer(),
		Store:    store,
		Notifier: notifier,
		Queue:    q,
		Log:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	})

	return &testPipeline{pipeline: p, store: store, queue: q, notifier: notifier}
}

// makeTranscript builds a transcript long and conversational enough for the
// judge to accept, tied to the given show and topic.
func makeTranscript(show, topic string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Sarah: Welcome to %s, I'm your host Sarah. Today we talk about %s.\n", show, topic)
	for i := 0; i < 60; i++ {
		fmt.Fprintf(&b, "%02d:%02d\n", i/10, (i*7)%60)
		fmt.Fprintf(&b, "Sarah: So what do you think about part %d of this, and how does it change things?\n", i)
		fmt.Fprintf(&b, "Guest: Yeah, I think that's a great question about %s, number %d.\n", topic, i)
		fmt.Fprintf(&b, "Guest: Well, you know, the way I see it, it really depends on the team and the context, round %d.\n", i)
	}
	b.WriteString("Sarah: Thanks for listening, see you next episode.\n")
	return b.String()
}

// makeArticle builds a structured HTML article solid enough for the general
// scorer to accept.
func makeArticle(title string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<html><body><h1>%s</h1>", title)
	for s := 0; s < 3; s++ {
		fmt.Fprintf(&b, "<h2>Section %d</h2>", s)
		for i := 0; i < 40; i++ {
			fmt.Fprintf(&b, "<p>According to the data, the study found that teams shipped faster in trial %d.</p>", i)
		}
		fmt.Fprintf(&b, `<ul><li>Finding %d</li><li>Research shows steady gains</li></ul>`, s)
		fmt.Fprintf(&b, `<p>See the <a href="https://example.com/report-%d">published report</a>.</p>`, s)
	}
	b.WriteString("</body></html>")
	return b.String()
}

const feedURL = "https://techpodcast.example.com/rss"

func podcastSource() config.Source {
	return config.Source{
		Name:     "tech-podcast",
		Kind:     model.SourcePodcast,
		FeedURL:  feedURL,
		Show:     "Tech Podcast",
		Priority: 1,
		Filters:  []feed.Rule{{Kind: feed.RuleExclude, Pattern: "trailer"}},
	}
}

// setupPodcastRoutes serves the fixture feed plus passing transcripts for
// every non-trailer episode.
func setupPodcastRoutes(t *testing.T, client *routeClient) {
	t.Helper()
	data, err := os.ReadFile("../../testdata/podcast.xml")
	if err != nil {
		t.Fatalf("read fixture: %v", err)
	}
	client.set(feedURL, 200, string(data))

	episodes := map[string]string{
		"https://techpodcast.example.com/episodes/ai-impact":       "AI Impact on Software Teams",
		"https://techpodcast.example.com/episodes/kubernetes-edge": "Kubernetes at the Edge",
		"https://techpodcast.example.com/episodes/databases":       "Databases You Should Not Build",
		"https://techpodcast.example.com/episodes/postmortems":     "Postmortem Culture",
	}
	for url, title := range episodes {
		client.set(url, 200, makeTranscript("Tech Podcast", title))
	}
}

func TestRunnerStoresAcceptedEpisodes(t *testing.T) {
	client := newRouteClient()
	setupPodcastRoutes(t, client)
	tp := newTestPipeline(t, client)
	ctx := context.Background()

	runner := tp.pipeline.Runner(podcastSource(), nil)
	if err := runner(ctx); err != nil {
		t.Fatalf("runner: %v", err)
	}

	items, err := tp.store.ListContent(ctx, "tech-podcast")
	if err != nil {
		t.Fatalf("ListContent: %v", err)
	}
	if len(items) != 4 {
		t.Fatalf("expected 4 stored items, got %d", len(items))
	}

	accepted, rejected, err := tp.store.ReportCounts(ctx)
	if err != nil {
		t.Fatalf("ReportCounts: %v", err)
	}
	if accepted != 4 || rejected != 0 {
		t.Errorf("got %d accepted / %d rejected, want 4/0", accepted, rejected)
	}

	if got := tp.notifier.count(); got != 4 {
		t.Errorf("expected 4 notifications, got %d", got)
	}
}

func TestRunnerSkipsAlreadyStoredContent(t *testing.T) {
	client := newRouteClient()
	setupPodcastRoutes(t, client)
	tp := newTestPipeline(t, client)
	ctx := context.Background()

	runner := tp.pipeline.Runner(podcastSource(), nil)
	for i := 0; i < 2; i++ {
		if err := runner(ctx); err != nil {
			t.Fatalf("runner pass %d: %v", i, err)
		}
	}

	items, err := tp.store.ListContent(ctx, "tech-podcast")
	if err != nil {
		t.Fatalf("ListContent: %v", err)
	}
	if len(items) != 4 {
		t.Errorf("expected 4 stored items after second run, got %d", len(items))
	}

	// The second run must not re-judge or re-report known content.
	accepted, rejected, err := tp.store.ReportCounts(ctx)
	if err != nil {
		t.Fatalf("ReportCounts: %v", err)
	}
	if accepted+rejected != 4 {
		t.Errorf("expected 4 reports total, got %d", accepted+rejected)
	}
	if got := tp.notifier.count(); got != 4 {
		t.Errorf("expected 4 notifications, got %d", got)
	}
}

func TestRunnerRejectsBoilerplateContent(t *testing.T) {
	client := newRouteClient()
	client.set(feedURL, 200, `<?xml version="1.0"?>
<rss version="2.0"><channel><title>Tech Podcast</title>
<item>
  <title>AI Impact on Software Teams</title>
  <link>https://techpodcast.example.com/episodes/ai-impact</link>
  <guid>ep-101</guid>
</item>
</channel></rss>`)
	client.set("https://techpodcast.example.com/episodes/ai-impact", 200,
		"Click here to subscribe! Privacy Policy | Terms of Service")

	tp := newTestPipeline(t, client)
	ctx := context.Background()

	if err := tp.pipeline.Runner(podcastSource(), nil)(ctx); err != nil {
		t.Fatalf("runner: %v", err)
	}

	items, err := tp.store.ListContent(ctx, "tech-podcast")
	if err != nil {
		t.Fatalf("ListContent: %v", err)
	}
	if len(items) != 0 {
		t.Errorf("expected no stored items, got %d", len(items))
	}

	accepted, rejected, err := tp.store.ReportCounts(ctx)
	if err != nil {
		t.Fatalf("ReportCounts: %v", err)
	}
	if accepted != 0 || rejected != 1 {
		t.Errorf("got %d accepted / %d rejected, want 0/1", accepted, rejected)
	}
	if got := tp.notifier.count(); got != 0 {
		t.Errorf("expected no notifications, got %d", got)
	}
}

func TestRunnerQueuesFailedFetchForRetry(t *testing.T) {
	client := newRouteClient()
	client.set(feedURL, 200, `<?xml version="1.0"?>
<rss version="2.0"><channel><title>Tech Podcast</title>
<item>
  <title>AI Impact on Software Teams</title>
  <link>https://techpodcast.example.com/episodes/ai-impact</link>
  <guid>ep-101</guid>
</item>
</channel></rss>`)
	// The episode page is down; no route registered means 404.

	tp := newTestPipeline(t, client)
	ctx := context.Background()
	runner := tp.pipeline.Runner(podcastSource(), nil)

	if err := runner(ctx); err != nil {
		t.Fatalf("runner: %v", err)
	}

	stats := tp.queue.Stats()
	if stats.QueueSize != 1 {
		t.Fatalf("expected 1 queued retry, got %d", stats.QueueSize)
	}

	// The page comes back; the next run drains the queue first.
	client.set("https://techpodcast.example.com/episodes/ai-impact", 200,
		makeTranscript("Tech Podcast", "AI Impact on Software Teams"))

	if err := runner(ctx); err != nil {
		t.Fatalf("runner second pass: %v", err)
	}

	items, err := tp.store.ListContent(ctx, "tech-podcast")
	if err != nil {
		t.Fatalf("ListContent: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected retried episode to be stored, got %d items", len(items))
	}

	stats = tp.queue.Stats()
	if stats.QueueSize != 0 {
		t.Errorf("expected empty queue, got size %d", stats.QueueSize)
	}
	if stats.ProcessedCount != 1 {
		t.Errorf("expected 1 processed job, got %d", stats.ProcessedCount)
	}
}

func TestRunnerScoresNewsletterContent(t *testing.T) {
	client := newRouteClient()
	newsURL := "https://news.example.com/rss"
	client.set(newsURL, 200, `<?xml version="1.0"?>
<rss version="2.0"><channel><title>Morning News</title>
<item>
  <title>How Teams Ship Faster</title>
  <link>https://news.example.com/issues/1</link>
  <guid>issue-1</guid>
  <pubDate>Mon, 17 Feb 2025 06:00:00 GMT</pubDate>
</item>
</channel></rss>`)
	client.set("https://news.example.com/issues/1", 200, makeArticle("How Teams Ship Faster"))

	tp := newTestPipeline(t, client)
	ctx := context.Background()

	src := config.Source{
		Name:    "morning-news",
		Kind:    model.SourceNewsletter,
		FeedURL: newsURL,
	}
	if err := tp.pipeline.Runner(src, nil)(ctx); err != nil {
		t.Fatalf("runner: %v", err)
	}

	items, err := tp.store.ListContent(ctx, "morning-news")
	if err != nil {
		t.Fatalf("ListContent: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected 1 stored item, got %d", len(items))
	}
	if items[0].Kind != model.SourceNewsletter {
		t.Errorf("expected newsletter kind, got %s", items[0].Kind)
	}
}

func TestRunnerReportsObservedFrequency(t *testing.T) {
	client := newRouteClient()
	setupPodcastRoutes(t, client)
	tp := newTestPipeline(t, client)

	var got model.UpdateFrequency
	runner := tp.pipeline.Runner(podcastSource(), func(freq model.UpdateFrequency) {
		got = freq
	})
	if err := runner(context.Background()); err != nil {
		t.Fatalf("runner: %v", err)
	}

	// Fixture episodes are published a week apart.
	if got != model.FrequencyWeekly {
		t.Errorf("expected weekly frequency, got %q", got)
	}
}

func TestRunnerPropagatesFeedError(t *testing.T) {
	client := newRouteClient() // no routes: the feed URL itself 404s
	tp := newTestPipeline(t, client)

	err := tp.pipeline.Runner(podcastSource(), nil)(context.Background())
	if err == nil {
		t.Fatal("expected error when the feed cannot be fetched")
	}
}

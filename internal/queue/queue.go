// Package queue implements an in-memory priority queue of discovery jobs
// with bounded retry and duplicate suppression.
package queue

import (
	"container/heap"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	// DefaultMaxRetries is the number of recorded failures after which a
	// job id becomes permanently ineligible for dequeue.
	DefaultMaxRetries = 3

	// defaultTrackLimit bounds the completed-id and failure-count maps so
	// a long-running process does not grow them without end.
	defaultTrackLimit = 10000
)

// Job is a unit of queued work handed to a consumer.
type Job struct {
	ID         string
	Priority   int
	Payload    map[string]any
	EnqueuedAt time.Time
	Attempts   int
}

// Stats is a snapshot of queue counters.
type Stats struct {
	QueueSize      int
	ProcessedCount int
	FailureCounts  map[string]int
	MaxRetries     int
}

type entry struct {
	job Job
	seq uint64
}

// entryHeap orders by (priority, seq): lower priority number first,
// insertion order on ties.
type entryHeap []entry

func (h entryHeap) Len() int { return len(h) }
func (h entryHeap) Less(i, j int) bool {
	if h[i].job.Priority != h[j].job.Priority {
		return h[i].job.Priority < h[j].job.Priority
	}
	return h[i].seq < h[j].seq
}
func (h entryHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *entryHeap) Push(x any)        { *h = append(*h, x.(entry)) }
func (h *entryHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	*h = old[:n-1]
	return e
}

// Queue holds pending jobs in priority order and tracks completion and
// failure counts per job id. All methods are safe for concurrent use.
type Queue struct {
	mu             sync.Mutex
	items          entryHeap
	seq            uint64
	completed      map[string]struct{}
	completedOrder []string
	failures       map[string]int
	failureOrder   []string
	maxRetries     int
	trackLimit     int
	processed      int
	now            func() time.Time
}

// New creates a Queue with the given retry bound. A maxRetries of zero or
// less falls back to DefaultMaxRetries.
func New(maxRetries int) *Queue {
	if maxRetries <= 0 {
		maxRetries = DefaultMaxRetries
	}
	return &Queue{
		completed:  make(map[string]struct{}),
		failures:   make(map[string]int),
		maxRetries: maxRetries,
		trackLimit: defaultTrackLimit,
		now:        time.Now,
	}
}

// Enqueue inserts a payload with the given priority (lower runs sooner) and
// returns its job id. If the payload carries a "job_id" string it is reused,
// otherwise a fresh id is generated.
func (q *Queue) Enqueue(payload map[string]any, priority int) string {
	q.mu.Lock()
	defer q.mu.Unlock()

	id := ""
	if payload != nil {
		if v, ok := payload["job_id"].(string); ok && v != "" {
			id = v
		}
	}
	if id == "" {
		id = uuid.New().String()
	}

	q.seq++
	heap.Push(&q.items, entry{
		job: Job{
			ID:         id,
			Priority:   priority,
			Payload:    payload,
			EnqueuedAt: q.now().UTC(),
		},
		seq: q.seq,
	})
	return id
}

// Dequeue pops the highest-priority eligible job, silently discarding
// entries that are already completed or have exhausted their retries.
// Returns nil when no eligible job remains.
func (q *Queue) Dequeue() *Job {
	q.mu.Lock()
	defer q.mu.Unlock()

	for q.items.Len() > 0 {
		e := heap.Pop(&q.items).(entry)
		if _, done := q.completed[e.job.ID]; done {
			continue
		}
		if q.failures[e.job.ID] >= q.maxRetries {
			continue
		}
		job := e.job
		job.Attempts = q.failures[job.ID]
		return &job
	}
	return nil
}

// MarkComplete records a job id as done. Idempotent; a completed id is
// never returned by Dequeue again.
func (q *Queue) MarkComplete(jobID string) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if _, done := q.completed[jobID]; done {
		return
	}
	q.completed[jobID] = struct{}{}
	q.completedOrder = append(q.completedOrder, jobID)
	q.processed++
	q.evictLocked()
}

// MarkFailed increments the failure count for a job id. It does not
// re-enqueue; the caller decides whether the job goes back in.
func (q *Queue) MarkFailed(jobID string) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if _, seen := q.failures[jobID]; !seen {
		q.failureOrder = append(q.failureOrder, jobID)
	}
	q.failures[jobID]++
	q.evictLocked()
}

// Stats returns a snapshot of the queue counters.
func (q *Queue) Stats() Stats {
	q.mu.Lock()
	defer q.mu.Unlock()

	counts := make(map[string]int, len(q.failures))
	for id, n := range q.failures {
		counts[id] = n
	}
	return Stats{
		QueueSize:      q.items.Len(),
		ProcessedCount: q.processed,
		FailureCounts:  counts,
		MaxRetries:     q.maxRetries,
	}
}

// evictLocked drops the oldest tracked ids once the maps pass trackLimit.
// Eviction makes duplicate suppression best-effort rather than absolute.
func (q *Queue) evictLocked() {
	for len(q.completedOrder) > q.trackLimit {
		oldest := q.completedOrder[0]
		q.completedOrder = q.completedOrder[1:]
		delete(q.completed, oldest)
	}
	for len(q.failureOrder) > q.trackLimit {
		oldest := q.failureOrder[0]
		q.failureOrder = q.failureOrder[1:]
		delete(q.failures, oldest)
	}
}

// Package scheduler implements the discovery scheduler: named recurring
// tasks executed in priority order under a daily quota.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"atlas/internal/model"
)

// TaskState is the explicit lifecycle state of a registered task.
type TaskState string

// Task states. A paused task keeps its interval but is skipped by Tick.
const (
	StateActive TaskState = "active"
	StatePaused TaskState = "paused"
)

// Runner performs one execution of a task. It may block; the scheduler
// applies the configured per-task timeout through ctx, and a runner is
// expected to give up once ctx is cancelled.
type Runner func(ctx context.Context) error

// failureLogSize bounds the ring buffer of recent task failures.
const failureLogSize = 64

// Failure records one failed task execution for observability.
type Failure struct {
	TaskID string
	At     time.Time
	Err    string
}

type task struct {
	id         string
	runner     Runner
	interval   time.Duration
	priority   int
	state      TaskState
	lastRun    *time.Time
	sourceInfo map[string]string
}

// TaskDetail is a read-only view of one task for Status.
type TaskDetail struct {
	ID         string
	State      TaskState
	Priority   int
	Interval   time.Duration
	LastRun    *time.Time
	Due        bool
	SourceInfo map[string]string
}

// Status is a snapshot of the scheduler for operators.
type Status struct {
	Running        bool
	TaskCount      int
	TasksToday     int
	QuotaRemaining int
	Tasks          []TaskDetail
	RecentFailures []Failure
}

// Scheduler owns a set of recurring tasks and executes the due ones each
// tick, in ascending priority order (ties broken by task id), respecting a
// daily execution quota. A state mutex guards all task and quota state, and
// a separate tick mutex serializes Tick, so mutators (including ones called
// from inside a running task) are safe from any goroutine while only one
// Tick runs at a time.
type Scheduler struct {
	tickMu      sync.Mutex
	mu          sync.Mutex
	tasks       map[string]*task
	dailyQuota  int
	tasksToday  int
	nextReset   time.Time
	taskTimeout time.Duration
	failures    []Failure
	tick        time.Duration
	running     bool
	log         *slog.Logger
	now         func() time.Time
}

// New creates a Scheduler with the given daily quota.
func New(dailyQuota int, log *slog.Logger) *Scheduler {
	s := &Scheduler{
		tasks:      make(map[string]*task),
		dailyQuota: dailyQuota,
		tick:       1 * time.Minute,
		log:        log,
		now:        time.Now,
	}
	s.nextReset = nextMidnight(s.now())
	return s
}

// SetTickInterval overrides the default 1-minute tick interval used by Run.
func (s *Scheduler) SetTickInterval(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tick = d
}

// SetTaskTimeout sets an upper bound on a single runner execution. Zero
// means no timeout.
func (s *Scheduler) SetTaskTimeout(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.taskTimeout = d
}

// AddTask registers a recurring task. Registering an id that already exists
// is an error; use ReplaceTask to overwrite deliberately.
func (s *Scheduler) AddTask(id string, runner Runner, interval time.Duration, priority int, sourceInfo map[string]string) error {
	if interval <= 0 {
		return fmt.Errorf("task %q: interval must be positive, got %v", id, interval)
	}
	if runner == nil {
		return fmt.Errorf("task %q: nil runner", id)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.tasks[id]; exists {
		return fmt.Errorf("task %q already registered", id)
	}
	s.tasks[id] = &task{
		id:         id,
		runner:     runner,
		interval:   interval,
		priority:   priority,
		state:      StateActive,
		sourceInfo: sourceInfo,
	}
	return nil
}

// ReplaceTask registers a task, overwriting any existing registration under
// the same id. The replacement starts with no run history.
func (s *Scheduler) ReplaceTask(id string, runner Runner, interval time.Duration, priority int, sourceInfo map[string]string) error {
	if interval <= 0 {
		return fmt.Errorf("task %q: interval must be positive, got %v", id, interval)
	}
	if runner == nil {
		return fmt.Errorf("task %q: nil runner", id)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.tasks[id] = &task{
		id:         id,
		runner:     runner,
		interval:   interval,
		priority:   priority,
		state:      StateActive,
		sourceInfo: sourceInfo,
	}
	return nil
}

// RemoveTask unregisters a task.
func (s *Scheduler) RemoveTask(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.tasks[id]; !exists {
		return fmt.Errorf("task %q not registered", id)
	}
	delete(s.tasks, id)
	return nil
}

// PauseTask marks a task paused; Tick skips it regardless of interval math.
func (s *Scheduler) PauseTask(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, exists := s.tasks[id]
	if !exists {
		return fmt.Errorf("task %q not registered", id)
	}
	t.state = StatePaused
	return nil
}

// ResumeTask reactivates a paused task with the given interval.
func (s *Scheduler) ResumeTask(id string, interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("task %q: interval must be positive, got %v", id, interval)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	t, exists := s.tasks[id]
	if !exists {
		return fmt.Errorf("task %q not registered", id)
	}
	t.state = StateActive
	t.interval = interval
	return nil
}

// SetAdaptiveInterval adjusts a task's interval from its source's observed
// publishing cadence. Unknown cadences fall back to daily.
func (s *Scheduler) SetAdaptiveInterval(id string, freq model.UpdateFrequency) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, exists := s.tasks[id]
	if !exists {
		return fmt.Errorf("task %q not registered", id)
	}
	t.interval = intervalForFrequency(freq)
	return nil
}

func intervalForFrequency(freq model.UpdateFrequency) time.Duration {
	switch freq {
	case model.FrequencyHourly:
		return 1 * time.Hour
	case model.FrequencyWeekly:
		return 7 * 24 * time.Hour
	default:
		return 24 * time.Hour
	}
}

// SetDailyQuota changes the daily cap. It does not reset today's counter.
func (s *Scheduler) SetDailyQuota(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dailyQuota = n
}

// Tick performs one scheduling pass: reset the quota if a day boundary was
// crossed, collect due active tasks, and run them in priority order until
// the quota is exhausted. Runner errors are recorded and logged; the failed
// task keeps its previous lastRun so it stays due next tick. The state lock
// is released while a runner executes, so runners may call back into the
// scheduler (for adaptive intervals) without deadlocking.
func (s *Scheduler) Tick(ctx context.Context) {
	s.tickMu.Lock()
	defer s.tickMu.Unlock()

	s.mu.Lock()
	now := s.now()
	if !now.Before(s.nextReset) {
		s.tasksToday = 0
		s.nextReset = nextMidnight(now)
		s.log.Info("daily quota reset", "next_reset", s.nextReset)
	}

	if s.tasksToday >= s.dailyQuota {
		s.log.Debug("daily quota exhausted", "executed", s.tasksToday, "quota", s.dailyQuota)
		s.mu.Unlock()
		return
	}

	due := s.dueTasksLocked(now)
	s.mu.Unlock()

	for _, t := range due {
		if ctx.Err() != nil {
			return
		}

		s.mu.Lock()
		if s.tasksToday >= s.dailyQuota {
			s.log.Info("daily quota exhausted mid-tick", "remaining_due", len(due))
			s.mu.Unlock()
			return
		}
		if t.state != StateActive {
			s.mu.Unlock()
			continue
		}
		timeout := s.taskTimeout
		s.mu.Unlock()

		err := runTask(ctx, t.runner, timeout)

		s.mu.Lock()
		if err != nil {
			s.recordFailureLocked(t.id, err)
			s.log.Error("task failed", "task", t.id, "error", err)
		} else {
			ran := s.now()
			t.lastRun = &ran
			s.tasksToday++
			s.log.Debug("task completed", "task", t.id)
		}
		s.mu.Unlock()
	}
}

// dueTasksLocked returns active tasks whose interval has elapsed, sorted by
// (priority, id) for deterministic execution order.
func (s *Scheduler) dueTasksLocked(now time.Time) []*task {
	var due []*task
	for _, t := range s.tasks {
		if t.state != StateActive {
			continue
		}
		if t.lastRun == nil || now.Sub(*t.lastRun) >= t.interval {
			due = append(due, t)
		}
	}
	sort.Slice(due, func(i, j int) bool {
		if due[i].priority != due[j].priority {
			return due[i].priority < due[j].priority
		}
		return due[i].id < due[j].id
	})
	return due
}

func runTask(ctx context.Context, runner Runner, timeout time.Duration) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return runner(ctx)
}

func (s *Scheduler) recordFailureLocked(taskID string, err error) {
	s.failures = append(s.failures, Failure{
		TaskID: taskID,
		At:     s.now().UTC(),
		Err:    err.Error(),
	})
	if len(s.failures) > failureLogSize {
		s.failures = s.failures[len(s.failures)-failureLogSize:]
	}
}

// Status returns a snapshot of the scheduler and its tasks.
func (s *Scheduler) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	st := Status{
		Running:        s.running,
		TaskCount:      len(s.tasks),
		TasksToday:     s.tasksToday,
		QuotaRemaining: max(s.dailyQuota-s.tasksToday, 0),
		RecentFailures: append([]Failure(nil), s.failures...),
	}
	for _, t := range s.tasks {
		due := t.state == StateActive && (t.lastRun == nil || now.Sub(*t.lastRun) >= t.interval)
		st.Tasks = append(st.Tasks, TaskDetail{
			ID:         t.id,
			State:      t.state,
			Priority:   t.priority,
			Interval:   t.interval,
			LastRun:    t.lastRun,
			Due:        due,
			SourceInfo: t.sourceInfo,
		})
	}
	sort.Slice(st.Tasks, func(i, j int) bool { return st.Tasks[i].ID < st.Tasks[j].ID })
	return st
}

// Run starts the scheduler loop, blocking until ctx is cancelled. The first
// tick happens immediately.
func (s *Scheduler) Run(ctx context.Context) {
	s.mu.Lock()
	s.running = true
	interval := s.tick
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	s.Tick(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}

// nextMidnight returns the start of the next local calendar day.
func nextMidnight(now time.Time) time.Time {
	y, m, d := now.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, now.Location()).AddDate(0, 0, 1)
}

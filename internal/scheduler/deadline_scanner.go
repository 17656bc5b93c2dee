package scheduler

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/AlirezaEivazi/Manage-Works/internal/models"
	"github.com/AlirezaEivazi/Manage-Works/internal/monitoring"
	"github.com/AlirezaEivazi/Manage-Works/internal/notify"
)

const (
	DefaultInterval  = 5 * time.Minute
	DefaultLookahead = 24 * time.Hour
)

// TaskSource is the read side of the store the scanner depends on.
type TaskSource interface {
	ListTasks() []models.Task
	GetUser(username string) (models.User, error)
}

// CycleResult summarizes one dispatch cycle.
type CycleResult struct {
	Scanned    int
	Qualified  int
	Dispatched int
	Skipped    int
	Failed     int
	Aborted    bool
}

type Option func(*DeadlineScanner)

func WithClock(clock Clock) Option {
	return func(s *DeadlineScanner) { s.clock = clock }
}

func WithInterval(interval time.Duration) Option {
	return func(s *DeadlineScanner) {
		if interval > 0 {
			s.interval = interval
		}
	}
}

func WithLookahead(lookahead time.Duration) Option {
	return func(s *DeadlineScanner) {
		if lookahead > 0 {
			s.lookahead = lookahead
		}
	}
}

// DeadlineScanner periodically looks for undone tasks whose deadline falls
// inside the lookahead window and sends a reminder to the owner's callback URL.
type DeadlineScanner struct {
	source    TaskSource
	notifier  notify.Notifier
	clock     Clock
	interval  time.Duration
	lookahead time.Duration

	mu      sync.RWMutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}

	lastRun    time.Time
	runCount   int64
	dispatched int64
}

func NewDeadlineScanner(source TaskSource, notifier notify.Notifier, opts ...Option) *DeadlineScanner {
	s := &DeadlineScanner{
		source:    source,
		notifier:  notifier,
		clock:     RealClock(),
		interval:  DefaultInterval,
		lookahead: DefaultLookahead,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Qualifies reports whether task is due for a reminder at now:
// not done, with a deadline in [now, now+lookahead).
func Qualifies(task models.Task, now time.Time, lookahead time.Duration) bool {
	if task.IsDone || !task.HasDeadline() {
		return false
	}
	deadline := *task.DeadLine
	return !deadline.Before(now) && deadline.Before(now.Add(lookahead))
}

// Start launches the scan loop. The first cycle runs one interval after Start.
func (s *DeadlineScanner) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	s.running = true
	s.cancel = cancel
	s.done = make(chan struct{})

	go s.loop(ctx, s.done)

	log.Printf("⏰ Deadline scanner started (interval %v, lookahead %v)", s.interval, s.lookahead)
}

// Stop cancels the loop and waits for it to exit. A delivery already in
// flight is allowed to finish.
func (s *DeadlineScanner) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	cancel, done := s.cancel, s.done
	s.mu.Unlock()

	cancel()
	<-done

	log.Printf("⏰ Deadline scanner stopped")
}

func (s *DeadlineScanner) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

func (s *DeadlineScanner) loop(ctx context.Context, done chan struct{}) {
	defer close(done)
	defer func() {
		s.mu.Lock()
		// A Start racing with Stop may already own a newer loop.
		if s.done == done {
			s.running = false
		}
		s.mu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.clock.After(s.interval):
			s.RunCycle(ctx)
		}
	}
}

// RunCycle performs one scan over the current store state. Deliveries run
// sequentially; once ctx is cancelled no further task is dispatched.
func (s *DeadlineScanner) RunCycle(ctx context.Context) CycleResult {
	now := s.clock.Now()
	tasks := s.source.ListTasks()
	result := CycleResult{Scanned: len(tasks)}

	for _, task := range tasks {
		if ctx.Err() != nil {
			result.Aborted = true
			break
		}
		if !Qualifies(task, now, s.lookahead) {
			continue
		}
		result.Qualified++

		sent, ok, err := s.processTask(ctx, task)
		switch {
		case err != nil:
			result.Failed++
			log.Printf("❌ Deadline scanner failed on task %s: %v", task.ID, err)
		case !sent:
			result.Skipped++
		case ok:
			result.Dispatched++
		default:
			result.Dispatched++
			result.Failed++
		}
	}

	s.mu.Lock()
	s.lastRun = now
	s.runCount++
	s.dispatched += int64(result.Dispatched)
	s.mu.Unlock()
	monitoring.RecordScanCycle()

	if result.Qualified > 0 {
		log.Printf("🔔 Scan cycle: %d tasks, %d due, %d sent, %d skipped, %d failed",
			result.Scanned, result.Qualified, result.Dispatched, result.Skipped, result.Failed)
	}

	return result
}

// processTask resolves the owner and delivers. sent is false when the owner
// is gone or has no callback URL.
func (s *DeadlineScanner) processTask(ctx context.Context, task models.Task) (sent, ok bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	owner, lookupErr := s.source.GetUser(task.OwnerUsername)
	if lookupErr != nil || owner.NotificationURL == "" {
		return false, false, nil
	}

	out := s.notifier.Deliver(context.WithoutCancel(ctx), owner.NotificationURL, task)
	return true, out.Success, nil
}

func (s *DeadlineScanner) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return map[string]interface{}{
		"running":    s.running,
		"interval":   s.interval.String(),
		"lookahead":  s.lookahead.String(),
		"last_run":   s.lastRun,
		"run_count":  s.runCount,
		"dispatched": s.dispatched,
	}
}

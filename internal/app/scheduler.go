package app

import (
	"container/heap"
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc"

	"github.com/dkeye/tempvoice/internal/clock"
	"github.com/dkeye/tempvoice/internal/domain"
)

type task struct {
	key   domain.ChannelID
	at    time.Time
	fn    func(context.Context)
	index int
}

type taskHeap []*task

func (h taskHeap) Len() int           { return len(h) }
func (h taskHeap) Less(i, j int) bool { return h[i].at.Before(h[j].at) }
func (h taskHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}
func (h *taskHeap) Push(x any) {
	t := x.(*task)
	t.index = len(*h)
	*h = append(*h, t)
}
func (h *taskHeap) Pop() any {
	old := *h
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	t.index = -1
	*h = old[:n-1]
	return t
}

// Scheduler runs one delayed task per room from a single loop. Tasks are
// kept in a min-heap by deadline; scheduling a key again replaces its task.
// Each due task runs in its own goroutine so a slow one never delays another.
type Scheduler struct {
	clock clock.Clock

	mu    sync.Mutex
	tasks taskHeap
	byKey map[domain.ChannelID]*task
	wake  chan struct{}

	running conc.WaitGroup
}

func NewScheduler(c clock.Clock) *Scheduler {
	return &Scheduler{
		clock: c,
		byKey: make(map[domain.ChannelID]*task),
		wake:  make(chan struct{}, 1),
	}
}

// Schedule arranges for fn to run at the given time, replacing any task
// already scheduled for key. fn receives the context Run was started with.
func (s *Scheduler) Schedule(key domain.ChannelID, at time.Time, fn func(context.Context)) {
	s.mu.Lock()
	if old, ok := s.byKey[key]; ok {
		heap.Remove(&s.tasks, old.index)
	}
	t := &task{key: key, at: at, fn: fn}
	heap.Push(&s.tasks, t)
	s.byKey[key] = t
	first := s.tasks[0] == t
	s.mu.Unlock()

	if first {
		s.signal()
	}
}

// Cancel drops the task for key and reports whether one was pending.
func (s *Scheduler) Cancel(key domain.ChannelID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.byKey[key]
	if !ok {
		return false
	}
	heap.Remove(&s.tasks, t.index)
	delete(s.byKey, key)
	return true
}

// Pending returns the deadline of the task for key, if any.
func (s *Scheduler) Pending(key domain.ChannelID) (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.byKey[key]
	if !ok {
		return time.Time{}, false
	}
	return t.at, true
}

func (s *Scheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasks)
}

// Run fires due tasks until ctx is done, then waits for running tasks.
func (s *Scheduler) Run(ctx context.Context) {
	log.Info().Str("module", "app.scheduler").Msg("scheduler started")
	defer func() {
		s.running.Wait()
		log.Info().Str("module", "app.scheduler").Msg("scheduler stopped")
	}()

	for {
		var timer <-chan time.Time
		if next, ok := s.next(); ok {
			timer = s.clock.After(next.Sub(s.clock.Now()))
		}
		select {
		case <-ctx.Done():
			return
		case <-s.wake:
		case <-timer:
			s.fireDue(ctx, s.clock.Now())
		}
	}
}

func (s *Scheduler) signal() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *Scheduler) next() (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.tasks) == 0 {
		return time.Time{}, false
	}
	return s.tasks[0].at, true
}

// popDue removes and returns every task due at now, earliest first.
func (s *Scheduler) popDue(now time.Time) []*task {
	s.mu.Lock()
	defer s.mu.Unlock()
	var due []*task
	for len(s.tasks) > 0 && !s.tasks[0].at.After(now) {
		t := heap.Pop(&s.tasks).(*task)
		delete(s.byKey, t.key)
		due = append(due, t)
	}
	return due
}

func (s *Scheduler) fireDue(ctx context.Context, now time.Time) int {
	due := s.popDue(now)
	for _, t := range due {
		fn := t.fn
		s.running.Go(func() { fn(ctx) })
	}
	return len(due)
}

package service

import (
	"sync"
	"time"
)

type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock is the wall clock.
var SystemClock Clock = systemClock{}

// Scheduler fires one callback per id at a wall-clock deadline. The delay is
// recomputed from the clock at schedule time, so a deadline already in the
// past fires right away.
type Scheduler struct {
	mu      sync.Mutex
	timers  map[string]*time.Timer
	clock   Clock
	stopped bool
}

func NewScheduler(clock Clock) *Scheduler {
	if clock == nil {
		clock = SystemClock
	}
	return &Scheduler{timers: make(map[string]*time.Timer), clock: clock}
}

// Schedule replaces any pending callback for id.
func (s *Scheduler) Schedule(id string, at time.Time, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	if t, ok := s.timers[id]; ok {
		t.Stop()
	}
	delay := at.Sub(s.clock.Now())
	if delay < 0 {
		delay = 0
	}
	var timer *time.Timer
	timer = time.AfterFunc(delay, func() {
		s.mu.Lock()
		if cur, ok := s.timers[id]; ok && cur == timer {
			delete(s.timers, id)
		}
		s.mu.Unlock()
		fn()
	})
	s.timers[id] = timer
}

// Cancel stops the pending callback for id, reporting whether one was pending.
func (s *Scheduler) Cancel(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.timers[id]
	if !ok {
		return false
	}
	delete(s.timers, id)
	return t.Stop()
}

func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}

// Stop cancels everything; later Schedule calls are ignored.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
	for id, t := range s.timers {
		t.Stop()
		delete(s.timers, id)
	}
}

package service

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSchedulerFiresPastDeadlineImmediately(t *testing.T) {
	clock := newFakeClock()
	s := NewScheduler(clock)
	defer s.Stop()

	var fired atomic.Int32
	s.Schedule("a", clock.Now().Add(-time.Hour), func() { fired.Add(1) })

	assert.Eventually(t, func() bool { return fired.Load() == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 0, s.Pending())
}

func TestSchedulerCancelAndReplace(t *testing.T) {
	clock := newFakeClock()
	s := NewScheduler(clock)
	defer s.Stop()

	var first, second atomic.Int32
	s.Schedule("a", clock.Now().Add(time.Hour), func() { first.Add(1) })
	s.Schedule("a", clock.Now().Add(10*time.Millisecond), func() { second.Add(1) })
	assert.Equal(t, 1, s.Pending())

	assert.Eventually(t, func() bool { return second.Load() == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, int32(0), first.Load())

	s.Schedule("b", clock.Now().Add(time.Hour), func() {})
	assert.True(t, s.Cancel("b"))
	assert.False(t, s.Cancel("b"))
}

func TestSchedulerIgnoresScheduleAfterStop(t *testing.T) {
	s := NewScheduler(nil)
	s.Stop()

	var fired atomic.Int32
	s.Schedule("a", time.Now(), func() { fired.Add(1) })
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int32(0), fired.Load())
	assert.Equal(t, 0, s.Pending())
}

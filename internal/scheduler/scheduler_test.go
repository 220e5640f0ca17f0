package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type countingRefreshable struct {
	name  string
	count atomic.Int64
	err   error
	panic bool
	block chan struct{}
}

func (c *countingRefreshable) Name() string {
	return c.name
}

func (c *countingRefreshable) Refresh(ctx context.Context) error {
	c.count.Add(1)
	if c.block != nil {
		<-c.block
	}
	if c.panic {
		panic("refresh exploded")
	}
	return c.err
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func TestStartRunsImmediately(t *testing.T) {
	unit := &countingRefreshable{name: "restaurant"}

	s := New(time.Hour)
	s.Register(unit)
	s.Start()
	defer s.Stop()

	// The first cycle runs right away, not after the first interval.
	waitFor(t, func() bool { return unit.count.Load() == 1 })
}

func TestFailingUnitDoesNotAbortCycle(t *testing.T) {
	failing := &countingRefreshable{name: "broken", err: errors.New("source down")}
	healthy := &countingRefreshable{name: "healthy"}

	s := New(time.Hour)
	s.Register(failing)
	s.Register(healthy)
	s.Start()
	defer s.Stop()

	waitFor(t, func() bool { return healthy.count.Load() == 1 })
	assert.Equal(t, int64(1), failing.count.Load())
}

func TestPanickingUnitDoesNotAbortCycle(t *testing.T) {
	panicking := &countingRefreshable{name: "panicking", panic: true}
	healthy := &countingRefreshable{name: "healthy"}

	s := New(time.Hour)
	s.Register(panicking)
	s.Register(healthy)
	s.Start()
	defer s.Stop()

	waitFor(t, func() bool { return healthy.count.Load() == 1 })
}

func TestPeriodicCycles(t *testing.T) {
	unit := &countingRefreshable{name: "restaurant"}

	s := New(20 * time.Millisecond)
	s.Register(unit)
	s.Start()
	defer s.Stop()

	waitFor(t, func() bool { return unit.count.Load() >= 3 })
}

func TestStopHaltsCycles(t *testing.T) {
	unit := &countingRefreshable{name: "restaurant"}

	s := New(10 * time.Millisecond)
	s.Register(unit)
	s.Start()

	waitFor(t, func() bool { return unit.count.Load() >= 2 })
	s.Stop()

	after := unit.count.Load()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, after, unit.count.Load())
}

func TestOverlappingCycleIsSkipped(t *testing.T) {
	blocking := &countingRefreshable{name: "slow", block: make(chan struct{})}

	s := New(10 * time.Millisecond)
	s.Register(blocking)
	s.Start()

	waitFor(t, func() bool { return blocking.count.Load() == 1 })

	// Several intervals elapse while the first cycle is still in flight;
	// those ticks are dropped rather than queued.
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, int64(1), blocking.count.Load())

	close(blocking.block)
	s.Stop()
}

func TestStartTwiceIsNoop(t *testing.T) {
	unit := &countingRefreshable{name: "restaurant"}

	s := New(time.Hour)
	s.Register(unit)
	s.Start()
	s.Start()
	defer s.Stop()

	waitFor(t, func() bool { return unit.count.Load() >= 1 })
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, int64(1), unit.count.Load())
}

func TestStopWithoutStartIsNoop(t *testing.T) {
	s := New(time.Hour)
	s.Stop()
}

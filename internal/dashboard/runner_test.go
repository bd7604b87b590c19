package dashboard

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/signalsfoundry/qos-dashboard/internal/logging"
	"github.com/signalsfoundry/qos-dashboard/internal/sched"
	"github.com/signalsfoundry/qos-dashboard/timectrl"
)

type countingEventScheduler struct {
	sched.EventScheduler
	runDueCalls atomic.Int64
}

func (c *countingEventScheduler) RunDue() {
	c.runDueCalls.Add(1)
	c.EventScheduler.RunDue()
}

func TestRunner_DrivesScheduler(t *testing.T) {
	start := time.Now()
	tc := timectrl.NewTimeController(start, 10*time.Millisecond, timectrl.Accelerated)
	s := &countingEventScheduler{EventScheduler: sched.NewEventScheduler(tc)}

	var fired atomic.Int64
	sched.Every(s, 50*time.Millisecond, func(time.Time) { fired.Add(1) })

	runner := NewRunner(tc, s, logging.Noop())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		runner.Run(ctx)
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()
	<-done

	if s.runDueCalls.Load() == 0 {
		t.Fatalf("expected RunDue to be called at least once")
	}
	if fired.Load() == 0 {
		t.Fatalf("expected the ticker to fire under accelerated time")
	}
}

func TestRunner_RuntimeAdvancesUnderClock(t *testing.T) {
	start := time.Now()
	tc := timectrl.NewTimeController(start, 100*time.Millisecond, timectrl.Accelerated)
	s := sched.NewEventScheduler(tc)
	rt, err := NewRuntime(s, Config{Seed: 9})
	if err != nil {
		t.Fatalf("NewRuntime: %v", err)
	}
	rt.Start()
	defer rt.Stop()

	runner := NewRunner(tc, s, nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		runner.Run(ctx)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for rt.Snapshot().Flows.Tick == 0 {
		select {
		case <-deadline:
			cancel()
			<-done
			t.Fatalf("flow generator never ticked")
		default:
			time.Sleep(time.Millisecond)
		}
	}
	cancel()
	<-done
}

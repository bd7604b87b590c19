package dashboard

import (
	"context"
	"time"

	"github.com/signalsfoundry/qos-dashboard/internal/logging"
	"github.com/signalsfoundry/qos-dashboard/internal/sched"
	"github.com/signalsfoundry/qos-dashboard/timectrl"
)

// Runner drives an EventScheduler from a TimeController: every controller
// tick runs whatever timers became due, on the controller's goroutine.
type Runner struct {
	tc  *timectrl.TimeController
	s   sched.EventScheduler
	log logging.Logger
}

// NewRunner binds s to tc. The listener is registered once, here.
func NewRunner(tc *timectrl.TimeController, s sched.EventScheduler, log logging.Logger) *Runner {
	if log == nil {
		log = logging.Noop()
	}
	r := &Runner{tc: tc, s: s, log: log}
	tc.AddListener(func(time.Time) { s.RunDue() })
	return r
}

// Run advances simulation time until ctx is cancelled, then stops the
// controller and waits for its loop to exit.
func (r *Runner) Run(ctx context.Context) {
	r.log.Info(ctx, "simulation clock running",
		logging.String("mode", r.tc.Mode.String()),
		logging.Duration("tick", r.tc.Tick),
	)
	done := r.tc.Start(0)
	select {
	case <-ctx.Done():
		r.tc.Stop()
		<-done
	case <-done:
	}
	r.log.Info(context.Background(), "simulation clock stopped", logging.String("sim_time", r.tc.Now().Format(time.RFC3339)))
}

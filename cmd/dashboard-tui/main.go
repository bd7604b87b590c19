package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/signalsfoundry/qos-dashboard/internal/dashboard"
	"github.com/signalsfoundry/qos-dashboard/internal/logging"
	"github.com/signalsfoundry/qos-dashboard/internal/sched"
	"github.com/signalsfoundry/qos-dashboard/timectrl"
)

func main() {
	seed := flag.Uint64("seed", 0, "Simulation seed (0 derives one from the clock)")
	tick := flag.Duration("tick", 10*time.Millisecond, "Simulation clock step")
	refresh := flag.Duration("refresh", 100*time.Millisecond, "Screen refresh interval")
	logFile := flag.String("log-file", "", "Write logs to this file instead of discarding them")
	flag.Parse()

	var out io.Writer = io.Discard
	if *logFile != "" {
		f, err := os.OpenFile(*logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		defer f.Close()
		out = f
	}
	log := logging.New(logging.ConfigFromEnv(logging.Config{Output: out}))

	if *seed == 0 {
		*seed = uint64(time.Now().UnixNano())
	}

	tc := timectrl.NewTimeController(time.Now(), *tick, timectrl.RealTime)
	s := sched.NewEventScheduler(tc)
	rt, err := dashboard.NewRuntime(s, dashboard.Config{Seed: *seed, Logger: log})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	rt.Start()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		dashboard.NewRunner(tc, s, log).Run(ctx)
		close(done)
	}()

	p := tea.NewProgram(initialModel(rt, *refresh), tea.WithAltScreen())
	_, runErr := p.Run()

	cancel()
	<-done
	rt.Stop()

	if runErr != nil {
		fmt.Fprintf(os.Stderr, "Error running TUI: %v\n", runErr)
		os.Exit(1)
	}
}

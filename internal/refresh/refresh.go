// Package refresh periodically re-runs every dynamic widget's stored
// query so dashboards stay current between conversations.
package refresh

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/zulandar/teller/internal/widget"
)

// Scheduler sweeps dynamic widgets on a cron schedule.
type Scheduler struct {
	cron   *cron.Cron
	engine *widget.Engine
	out    io.Writer
}

// New creates a Scheduler from a cron spec like "*/15 * * * *". An empty
// spec disables the sweep.
func New(spec string, engine *widget.Engine, out io.Writer) (*Scheduler, error) {
	s := &Scheduler{cron: cron.New(), engine: engine, out: out}
	if spec == "" {
		return s, nil
	}
	if _, err := s.cron.AddFunc(spec, s.sweep); err != nil {
		return nil, fmt.Errorf("refresh: bad cron spec %q: %w", spec, err)
	}
	return s, nil
}

// Start begins the schedule in its own goroutine.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts the schedule and waits for a running sweep to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

func (s *Scheduler) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	refreshed, err := s.engine.RefreshAllDynamic(ctx, func(widgetID string, err error) {
		if s.out != nil {
			fmt.Fprintf(s.out, "refresh: widget=%s: %v\n", widgetID, err)
		}
	})
	if err != nil {
		if s.out != nil {
			fmt.Fprintf(s.out, "refresh: sweep failed: %v\n", err)
		}
		return
	}
	if s.out != nil {
		fmt.Fprintf(s.out, "refresh: %d dynamic widgets refreshed\n", refreshed)
	}
}

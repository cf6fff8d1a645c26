package app

import (
	"context"
	"time"

	"nrfbsp-go/x/timex"
)

// Task runs Fn every Period ms.
type Task struct {
	Name   string
	Period uint32
	Fn     func(now uint32)
	last   uint32
	runs   uint32
}

// Scheduler is the cooperative main loop: each Poll runs every due task
// once. A task that falls behind does not catch up.
type Scheduler struct {
	tasks []*Task
}

func (s *Scheduler) Add(name string, periodMs uint32, fn func(now uint32)) *Task {
	t := &Task{Name: name, Period: periodMs, Fn: fn}
	s.tasks = append(s.tasks, t)
	return t
}

// Start aligns every task to now so the first run is one period later.
func (s *Scheduler) Start(now uint32) {
	for _, t := range s.tasks {
		t.last = now
	}
}

func (s *Scheduler) Poll(now uint32) {
	for _, t := range s.tasks {
		if timex.Due(now, t.last, t.Period) {
			t.last = now
			t.runs++
			t.Fn(now)
		}
	}
}

// Runs reports how often the named task has run.
func (s *Scheduler) Runs(name string) uint32 {
	for _, t := range s.tasks {
		if t.Name == name {
			return t.runs
		}
	}
	return 0
}

// Run polls every millisecond until ctx ends.
func (s *Scheduler) Run(ctx context.Context, clock timex.Clock) error {
	s.Start(clock.NowMs())
	tick := time.NewTicker(time.Millisecond)
	defer tick.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-tick.C:
			s.Poll(clock.NowMs())
		}
	}
}

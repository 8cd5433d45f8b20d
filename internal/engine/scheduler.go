package engine

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

type cycle struct {
	name     string
	interval time.Duration
	run      func(context.Context) error
}

// Scheduler drives the engine's periodic cycles. Each cycle runs on its own
// ticker; a slow cycle delays only itself. Stop blocks until every cycle has
// finished its current run.
type Scheduler struct {
	cycles []cycle
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewScheduler creates an empty Scheduler.
func NewScheduler() *Scheduler {
	return &Scheduler{}
}

// Add registers a named cycle. Must be called before Start.
func (s *Scheduler) Add(name string, interval time.Duration, run func(context.Context) error) {
	s.cycles = append(s.cycles, cycle{name: name, interval: interval, run: run})
}

// Start launches all registered cycles.
func (s *Scheduler) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)
	for _, c := range s.cycles {
		s.wg.Add(1)
		go s.loop(ctx, c)
	}
	log.Info().Int("cycles", len(s.cycles)).Msg("Scheduler started")
}

func (s *Scheduler) loop(ctx context.Context, c cycle) {
	defer s.wg.Done()
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Debug().Str("cycle", c.name).Msg("Cycle stopped")
			return
		case <-ticker.C:
			if err := c.run(ctx); err != nil && ctx.Err() == nil {
				log.Error().Err(err).Str("cycle", c.name).Msg("Cycle run failed")
			}
		}
	}
}

// Stop cancels all cycles and waits for them to exit.
func (s *Scheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
	log.Info().Msg("Scheduler stopped")
}

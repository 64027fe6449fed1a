// Package sweeper periodically completes approved events that have started.
package sweeper

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Completer moves due events to completed and reports how many moved.
type Completer interface {
	CompleteDue(ctx context.Context) (int, error)
}

// Sweeper runs a Completer on a fixed interval.
type Sweeper struct {
	completer Completer
	interval  time.Duration
	log       *zerolog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// New constructs a Sweeper.
func New(c Completer, interval time.Duration, log *zerolog.Logger) *Sweeper {
	return &Sweeper{completer: c, interval: interval, log: log}
}

// RunOnce performs a single sweep.
func (s *Sweeper) RunOnce(ctx context.Context) (int, error) {
	n, err := s.completer.CompleteDue(ctx)
	if err != nil {
		return n, err
	}
	if n > 0 {
		s.log.Info().Int("completed", n).Msg("sweep completed events")
	}
	return n, nil
}

// Run sweeps immediately and then on every tick until ctx is done.
func (s *Sweeper) Run(ctx context.Context) {
	s.sweep(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	if _, err := s.RunOnce(ctx); err != nil && ctx.Err() == nil {
		s.log.Error().Err(err).Msg("sweep failed")
	}
}

// Start runs the sweeper in the background. Calling Start twice is a no-op.
func (s *Sweeper) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})
	go func(done chan struct{}) {
		defer close(done)
		s.Run(ctx)
	}(s.done)
	s.log.Info().Dur("interval", s.interval).Msg("sweeper started")
}

// Stop halts a started sweeper and waits for the running sweep to return.
func (s *Sweeper) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	s.log.Info().Msg("sweeper stopped")
}

// Package scheduler runs periodic housekeeping for stored maps.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// DefaultInterval is used when no prune interval is configured.
const DefaultInterval = 15 * time.Minute

// Pruner removes stored artifacts written before a cutoff.
type Pruner interface {
	Prune(ctx context.Context, cutoff time.Time) (int, error)
}

// Scheduler prunes maps older than the retention period on a ticker.
type Scheduler struct {
	pruner    Pruner
	retention time.Duration
	interval  time.Duration
	log       *logrus.Logger
	now       func() time.Time

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// New creates a scheduler. It does nothing until Start is called.
func New(pruner Pruner, retention, interval time.Duration, logger *logrus.Logger) *Scheduler {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Scheduler{
		pruner:    pruner,
		retention: retention,
		interval:  interval,
		log:       logger,
		now:       time.Now,
	}
}

// Start begins the prune loop. The first pass runs immediately.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		s.log.Warn("Scheduler already running")
		return
	}

	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})
	s.running = true

	s.log.WithFields(logrus.Fields{
		"retention": s.retention.String(),
		"interval":  s.interval.String(),
	}).Info("Scheduler started")

	go s.loop(ctx)
}

// Stop halts the loop and waits for a running pass to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.cancel()
	done := s.done
	s.running = false
	s.mu.Unlock()

	<-done
	s.log.Info("Scheduler stopped")
}

func (s *Scheduler) loop(ctx context.Context) {
	defer close(s.done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.RunOnce(ctx)
	for {
		select {
		case <-ticker.C:
			s.RunOnce(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// RunOnce prunes everything older than the retention period.
func (s *Scheduler) RunOnce(ctx context.Context) int {
	cutoff := s.now().Add(-s.retention)

	removed, err := s.pruner.Prune(ctx, cutoff)
	if err != nil {
		if ctx.Err() == nil {
			s.log.WithError(err).Error("Failed to prune stored maps")
		}
		return removed
	}

	if removed > 0 {
		s.log.WithFields(logrus.Fields{
			"removed": removed,
			"cutoff":  cutoff.UTC().Format(time.RFC3339),
		}).Info("Pruned expired maps")
	}
	return removed
}

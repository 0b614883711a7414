package retention

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/ilker/tracker-server/internal/metrics"
	"github.com/rs/zerolog"
)

var ErrAlreadyRunning = errors.New("retention cleanup already running")

// CleanupFunc performs one pruning pass, typically EventStore.CleanupEvents.
type CleanupFunc func(ctx context.Context, cutoff time.Time, minEventCount int) (Report, error)

// Scheduler runs the retention policy periodically. Passes never overlap:
// a tick that arrives while a pass is still running is skipped.
type Scheduler struct {
	policy   Policy
	interval time.Duration
	cleanup  CleanupFunc
	logger   zerolog.Logger
	now      func() time.Time

	mu sync.Mutex

	// lifecycle guards stopped and the wg.Add in Start, so Stop either
	// waits for a loop or the loop never starts.
	lifecycle sync.Mutex
	stopped   bool
	stopChan  chan struct{}
	wg        sync.WaitGroup
}

func NewScheduler(policy Policy, interval time.Duration, cleanup CleanupFunc, logger zerolog.Logger) *Scheduler {
	return &Scheduler{
		policy:   policy,
		interval: interval,
		cleanup:  cleanup,
		logger:   logger.With().Str("component", "retention").Logger(),
		now:      time.Now,
		stopChan: make(chan struct{}),
	}
}

// Start runs a pass immediately and then every interval until ctx is
// cancelled or Stop is called. It returns at once if Stop already ran.
func (s *Scheduler) Start(ctx context.Context) {
	s.lifecycle.Lock()
	if s.stopped {
		s.lifecycle.Unlock()
		return
	}
	s.wg.Add(1)
	s.lifecycle.Unlock()
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.tick(ctx)

	for {
		select {
		case <-ticker.C:
			s.tick(ctx)
		case <-s.stopChan:
			return
		case <-ctx.Done():
			return
		}
	}
}

// Stop ends the loop and blocks until a pass in progress has finished, so
// the store can be closed safely afterwards.
func (s *Scheduler) Stop() {
	s.lifecycle.Lock()
	if !s.stopped {
		s.stopped = true
		close(s.stopChan)
	}
	s.lifecycle.Unlock()
	s.wg.Wait()
}

func (s *Scheduler) tick(ctx context.Context) {
	// Errors are already logged by RunOnce; there is no caller to return them to.
	_, _ = s.RunOnce(ctx)
}

// RunOnce executes a single pass using the policy's cutoff relative to now.
func (s *Scheduler) RunOnce(ctx context.Context) (Report, error) {
	if !s.mu.TryLock() {
		metrics.RetentionRuns.WithLabelValues("skipped").Inc()
		s.logger.Warn().Msg("previous retention pass still running, skipping")
		return Report{}, ErrAlreadyRunning
	}
	defer s.mu.Unlock()

	start := time.Now()
	cutoff := s.policy.Cutoff(s.now())
	report, err := s.cleanup(ctx, cutoff, s.policy.MinEventCount)
	metrics.RetentionDuration.Observe(time.Since(start).Seconds())

	if err != nil && ctx.Err() != nil {
		metrics.RetentionRuns.WithLabelValues("cancelled").Inc()
		s.logger.Warn().Err(err).Time("cutoff", cutoff).Msg("retention pass interrupted by shutdown")
		return report, err
	}
	if err != nil {
		metrics.RetentionRuns.WithLabelValues("failure").Inc()
		s.logger.Error().Err(err).Time("cutoff", cutoff).Msg("failed to clean up events")
		return report, err
	}

	metrics.RetentionRuns.WithLabelValues("success").Inc()
	metrics.RetentionEventsDeleted.Add(float64(report.EventsDeleted))
	s.logger.Info().
		Time("cutoff", cutoff).
		Int("min_event_count", s.policy.MinEventCount).
		Int("devices_pruned", report.DevicesPruned).
		Int64("events_deleted", report.EventsDeleted).
		Dur("duration", time.Since(start)).
		Msg("retention pass complete")
	return report, nil
}

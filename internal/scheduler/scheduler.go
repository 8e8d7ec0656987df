package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Scheduler runs the daily transcript warm-up.
type Scheduler struct {
	cron     *cron.Cron
	ctx      context.Context
	cancel   context.CancelFunc
	schedule string
	loc      *time.Location
	warmFunc func(ctx context.Context, day time.Time)
	log      zerolog.Logger
}

// New creates a scheduler firing on the cron schedule in loc.
func New(schedule string, loc *time.Location, log zerolog.Logger) *Scheduler {
	if loc == nil {
		loc = time.Local
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron:     cron.New(cron.WithLocation(loc)),
		ctx:      ctx,
		cancel:   cancel,
		schedule: schedule,
		loc:      loc,
		log:      log,
	}
}

// SetWarmupFunction sets the job run on every tick.
func (s *Scheduler) SetWarmupFunction(f func(ctx context.Context, day time.Time)) {
	s.warmFunc = f
}

// Start registers the job and starts the cron loop.
func (s *Scheduler) Start() error {
	if s.warmFunc == nil {
		return errors.New("warm-up function not set")
	}
	if _, err := s.cron.AddFunc(s.schedule, s.run); err != nil {
		return err
	}
	s.cron.Start()
	s.log.Info().Str("schedule", s.schedule).Str("tz", s.loc.String()).Msg("scheduler started")
	return nil
}

// RunNow runs the job once, synchronously.
func (s *Scheduler) RunNow() {
	s.run()
}

func (s *Scheduler) run() {
	day := time.Now().In(s.loc)
	s.log.Info().Time("day", day).Msg("transcript warm-up triggered")
	s.warmFunc(s.ctx, day)
}

// Stop waits for a running job and cancels its context.
func (s *Scheduler) Stop() {
	if s.cron != nil {
		ctx := s.cron.Stop()
		<-ctx.Done()
	}
	if s.cancel != nil {
		s.cancel()
	}
	s.log.Info().Msg("scheduler stopped")
}

// IsRunning reports whether a job is registered.
func (s *Scheduler) IsRunning() bool {
	return s.cron != nil && len(s.cron.Entries()) > 0
}

// Next returns the next time the job fires, zero if not started.
func (s *Scheduler) Next() time.Time {
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Next
}

package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Sweeper is the part of the session service the scheduled jobs drive.
type Sweeper interface {
	SweepExpired(ctx context.Context) int
	EvictCompleted(ctx context.Context, retain time.Duration) int
}

// Scheduler runs the question timer and the completed-session eviction.
type Scheduler struct {
	cron    *cron.Cron
	log     *slog.Logger
	sweeper Sweeper
	retain  time.Duration
}

// NewScheduler registers both jobs. sweepSpec is a cron spec such as
// "@every 1s"; completed sessions are evicted every minute.
func NewScheduler(log *slog.Logger, sweeper Sweeper, sweepSpec string, retain time.Duration) (*Scheduler, error) {
	s := &Scheduler{
		cron:    cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		log:     log,
		sweeper: sweeper,
		retain:  retain,
	}
	if _, err := s.cron.AddFunc(sweepSpec, s.expireQuestions); err != nil {
		return nil, err
	}
	if _, err := s.cron.AddFunc("@every 1m", s.evictCompleted); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts scheduling and waits for running jobs.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

func (s *Scheduler) expireQuestions() {
	if n := s.sweeper.SweepExpired(context.Background()); n > 0 {
		s.log.Info("advanced expired questions", slog.Int("sessions", n))
	}
}

func (s *Scheduler) evictCompleted() {
	if n := s.sweeper.EvictCompleted(context.Background(), s.retain); n > 0 {
		s.log.Info("evicted completed sessions", slog.Int("sessions", n))
	}
}

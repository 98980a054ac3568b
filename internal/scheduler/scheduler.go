// Package scheduler triggers crawls on a fixed interval.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/jonesrussell/north-cloud/catalog-ingestor/internal/domain"
	"github.com/jonesrussell/north-cloud/catalog-ingestor/internal/logger"
)

// Initiator is recorded on sessions started by the scheduler.
const Initiator = "scheduler"

// DefaultInterval is the time between scheduled crawls.
const DefaultInterval = time.Hour

// Config controls the periodic trigger.
type Config struct {
	Enabled    bool          `mapstructure:"enabled"`
	Interval   time.Duration `mapstructure:"interval"`
	RunOnStart bool          `mapstructure:"run_on_start"`
}

// Crawler is the part of the ingest service the scheduler drives.
type Crawler interface {
	Running() bool
	StartScraping(ctx context.Context, initiator string) domain.Summary
}

// Scheduler runs a crawl every Interval, skipping ticks while one is active.
type Scheduler struct {
	log        logger.Interface
	crawler    Crawler
	cron       *cron.Cron
	interval   time.Duration
	runOnStart bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a Scheduler. The interval must be positive.
func New(cfg Config, crawler Crawler, log logger.Interface) (*Scheduler, error) {
	if cfg.Interval <= 0 {
		return nil, errors.New("scheduler interval must be positive")
	}

	cronParser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	c := cron.New(cron.WithParser(cronParser), cron.WithChain(cron.Recover(cron.DefaultLogger)))

	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		log:        log.WithComponent("scheduler"),
		crawler:    crawler,
		cron:       c,
		interval:   cfg.Interval,
		runOnStart: cfg.RunOnStart,
		ctx:        ctx,
		cancel:     cancel,
	}

	spec := fmt.Sprintf("@every %s", cfg.Interval)
	if _, err := c.AddFunc(spec, s.trigger); err != nil {
		cancel()
		return nil, fmt.Errorf("schedule %q: %w", spec, err)
	}
	return s, nil
}

// Start starts the cron loop. Stopping ctx stops the scheduler.
func (s *Scheduler) Start(ctx context.Context) error {
	s.cron.Start()
	s.log.Info("Scheduler started", "interval", s.interval, "next_run", s.NextRun())

	if s.runOnStart {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.trigger()
		}()
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		select {
		case <-ctx.Done():
			s.cancel()
		case <-s.ctx.Done():
		}
	}()
	return nil
}

// Stop stops the cron loop, cancels an in-flight scheduled crawl, and waits for it.
func (s *Scheduler) Stop() error {
	s.log.Info("Stopping scheduler")
	s.cancel()

	cronCtx := s.cron.Stop()
	<-cronCtx.Done()

	s.wg.Wait()
	s.log.Info("Scheduler stopped")
	return nil
}

// NextRun reports when the next crawl is due.
func (s *Scheduler) NextRun() time.Time {
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Next
}

func (s *Scheduler) trigger() {
	if s.ctx.Err() != nil {
		return
	}
	if s.crawler.Running() {
		s.log.Info("Skipping scheduled crawl, another crawl is running")
		return
	}

	s.log.Info("Starting scheduled crawl")
	sum := s.crawler.StartScraping(s.ctx, Initiator)
	s.log.Info("Scheduled crawl finished",
		"session_id", sum.SessionID,
		"status", sum.Status,
		"message", sum.Message,
		"processed", sum.TotalBooksFound,
		"new", sum.NewBooksAdded,
		"updated", sum.BooksUpdated,
		"failed", sum.FailedOps,
	)
}

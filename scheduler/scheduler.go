package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"portal_leads/config"
	"portal_leads/models"
)

// Runner is one ingest pass.
type Runner interface {
	Run(ctx context.Context) (*models.RunStats, error)
}

type Scheduler struct {
	cfg    config.SchedulerConfig
	runner Runner
	cron   *cron.Cron
	ticker *time.Ticker
	stopCh chan struct{}
	once   sync.Once
	wg     sync.WaitGroup
}

func New(cfg config.SchedulerConfig, runner Runner) *Scheduler {
	return &Scheduler{
		cfg:    cfg,
		runner: runner,
		cron:   cron.New(),
		stopCh: make(chan struct{}),
	}
}

// Start registers the cron expression, or else the interval. With neither the
// daemon only runs on demand.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.cfg.Cron != "" {
		log.Printf("Starting scheduler with cron: %s", s.cfg.Cron)
		_, err := s.cron.AddFunc(s.cfg.Cron, func() {
			s.run(ctx, "cron")
		})
		if err != nil {
			return fmt.Errorf("invalid cron expression: %w", err)
		}
		s.cron.Start()
	} else if s.cfg.Interval > 0 {
		log.Printf("Starting scheduler with interval: %s", s.cfg.Interval)
		s.ticker = time.NewTicker(s.cfg.Interval)
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			for {
				select {
				case <-s.ticker.C:
					s.run(ctx, "interval")
				case <-s.stopCh:
					return
				case <-ctx.Done():
					return
				}
			}
		}()
	} else {
		log.Println("No schedule configured, daemon will only run on demand")
	}

	return nil
}

func (s *Scheduler) Stop() {
	s.once.Do(func() {
		if s.cron != nil {
			<-s.cron.Stop().Done()
		}
		if s.ticker != nil {
			s.ticker.Stop()
		}
		close(s.stopCh)
	})
	s.wg.Wait()
}

func (s *Scheduler) run(ctx context.Context, trigger string) {
	stats, err := s.runner.Run(ctx)
	switch {
	case errors.Is(err, context.Canceled):
		return
	case err != nil:
		log.Printf("Scheduled run (%s) error: %v", trigger, err)
	case stats != nil:
		t := stats.Totals()
		log.Printf("Scheduled run (%s) %s: %d deals created, %d duplicates, %d failed",
			trigger, stats.RunKey, t.Created, t.Duplicates, t.Failed)
	}
}

package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// Poller owns the timer that drives cycles at a randomized interval. The
// interval is re-drawn from [MinInterval, MaxInterval] after every run, so
// polling does not hit the source page on a fixed rhythm.
type Poller struct {
	cron      gocron.Scheduler
	processor *Processor
	logger    *slog.Logger

	minInterval time.Duration
	maxInterval time.Duration
}

// NewPoller creates a Poller around the given processor.
func NewPoller(processor *Processor, minInterval, maxInterval time.Duration, logger *slog.Logger) (*Poller, error) {
	if minInterval <= 0 || maxInterval < minInterval {
		return nil, fmt.Errorf("invalid poll interval band [%s, %s]", minInterval, maxInterval)
	}

	cron, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("creating gocron scheduler: %w", err)
	}

	return &Poller{
		cron:        cron,
		processor:   processor,
		logger:      logger,
		minInterval: minInterval,
		maxInterval: maxInterval,
	}, nil
}

// Start schedules the polling job and runs the first cycle immediately.
func (p *Poller) Start(ctx context.Context) error {
	_, err := p.cron.NewJob(
		gocron.DurationRandomJob(p.minInterval, p.maxInterval),
		gocron.NewTask(func() {
			p.processor.RunCycle(ctx)
		}),
		gocron.WithStartAt(gocron.WithStartImmediately()),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("scheduling polling job: %w", err)
	}

	p.cron.Start()
	p.logger.Info("poller started",
		"min_interval", p.minInterval, "max_interval", p.maxInterval)
	return nil
}

// Stop shuts down the scheduler, waiting for a running cycle to finish.
func (p *Poller) Stop() error {
	return p.cron.Shutdown()
}

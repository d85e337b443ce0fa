package usecase

import (
	"context"
	"log/slog"
	"time"

	"PriceRadar/internal/ports"
)

// Ticker is one recurring unit of work. *AlertScheduler satisfies it.
type Ticker interface {
	Tick(ctx context.Context) (TickReport, error)
}

// Scheduler wires the interval driver with the alert scheduler. before, when
// set, runs ahead of each tick (trust signal refresh).
type Scheduler struct {
	driver ports.Scheduler
	ticker Ticker
	before func(ctx context.Context) error
	logger *slog.Logger
}

// NewScheduler returns a helper to start/stop recurring alert checks.
func NewScheduler(driver ports.Scheduler, ticker Ticker, before func(ctx context.Context) error, logger *slog.Logger) *Scheduler {
	return &Scheduler{driver: driver, ticker: ticker, before: before, logger: logger}
}

// Start registers the tick job with the driver.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.driver == nil || s.ticker == nil {
		return nil
	}

	job := func(trigger time.Time) {
		s.run(ctx, trigger)
	}

	return s.driver.Start(ctx, job)
}

// Stop gracefully tears down the underlying driver.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.driver == nil {
		return nil
	}

	return s.driver.Stop(ctx)
}

func (s *Scheduler) run(ctx context.Context, trigger time.Time) {
	if s.before != nil {
		if err := s.before(ctx); err != nil && s.logger != nil {
			s.logger.Warn("pre-tick hook failed", "error", err)
		}
	}
	report, err := s.ticker.Tick(ctx)
	if s.logger == nil {
		return
	}
	if err != nil {
		s.logger.Error("alert tick failed", "trigger", trigger, "error", err)
		return
	}
	s.logger.Info("alert tick", "trigger", trigger, "evaluated", report.Evaluated, "triggered", report.Triggered,
		"failed", report.Failed, "skipped", report.Skipped, "retired", report.Retired)
}

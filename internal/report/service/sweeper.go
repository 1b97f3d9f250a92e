package service

import (
	"context"
	"log/slog"
	"time"

	"regportal/internal/audit"
	"regportal/internal/events"
	"regportal/internal/report/metrics"
	"regportal/internal/report/models"
	"regportal/internal/report/store"
)

// Sweeper times out validation attempts whose deadline passed without an
// outcome. One periodic scan covers every pending attempt, so a runner crash
// can never strand a report in PROCESSING forever.
//
// The sweep and a late validation callback race on the same attempt-level
// CAS: whichever completes the attempt first wins, and the loser is rejected
// the same way a duplicate callback is.
type Sweeper struct {
	store    store.Store
	events   events.Publisher
	auditor  Auditor
	metrics  *metrics.Metrics
	logger   *slog.Logger
	interval time.Duration
	now      func() time.Time
}

// SweeperConfig bundles the sweeper's dependencies.
type SweeperConfig struct {
	Store    store.Store
	Events   events.Publisher
	Auditor  Auditor
	Metrics  *metrics.Metrics
	Logger   *slog.Logger
	Interval time.Duration
	Now      func() time.Time
}

func NewSweeper(cfg SweeperConfig) *Sweeper {
	if cfg.Events == nil {
		cfg.Events = events.NewInMemory()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 30 * time.Second
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Sweeper{
		store:    cfg.Store,
		events:   cfg.Events,
		auditor:  cfg.Auditor,
		metrics:  cfg.Metrics,
		logger:   cfg.Logger,
		interval: cfg.Interval,
		now:      cfg.Now,
	}
}

// Run sweeps on a fixed interval until the context is cancelled.
func (s *Sweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("timeout sweeper started", "interval", s.interval.String())
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("timeout sweeper stopped")
			return ctx.Err()
		case <-ticker.C:
			if n, err := s.Sweep(ctx); err != nil {
				s.logger.Error("sweep failed", "error", err)
			} else if n > 0 {
				s.logger.Info("swept overdue validation attempts", "count", n)
			}
		}
	}
}

// Sweep times out every overdue attempt once and returns how many reports it
// moved to TIMEOUT. Safe to call concurrently with validation callbacks.
func (s *Sweeper) Sweep(ctx context.Context) (int, error) {
	now := s.now().UTC()
	overdue, err := s.store.FindPendingAttemptsPastDeadline(ctx, now)
	if err != nil {
		return 0, err
	}

	swept := 0
	for _, attempt := range overdue {
		if s.sweepOne(ctx, attempt, now) {
			swept++
		}
	}
	return swept, nil
}

func (s *Sweeper) sweepOne(ctx context.Context, attempt *models.ValidationAttempt, now time.Time) bool {
	ok, err := s.store.CompleteAttempt(ctx, attempt.ID, models.OutcomeTechError, nil, now)
	if err != nil {
		s.logger.Error("failed to time out validation attempt",
			"error", err, "attempt_id", attempt.ID.String())
		return false
	}
	if !ok {
		// A callback slipped in between the scan and the CAS. Its outcome
		// stands.
		return false
	}

	ok, err = s.store.UpdateReportStatus(ctx, attempt.ReportID, models.StatusProcessing, models.StatusTimeout)
	if err != nil {
		s.logger.Error("failed to move report to timeout",
			"error", err, "report_id", attempt.ReportID.String())
		return false
	}
	if !ok {
		s.logger.Error("report status is out of step with its attempt",
			"report_id", attempt.ReportID.String(), "attempt_id", attempt.ID.String())
		return false
	}

	if s.metrics != nil {
		s.metrics.SweepTimeouts.Inc()
		s.metrics.RecordTransition(string(models.StatusTimeout))
	}
	if err := s.events.PublishStatusChanged(ctx, events.StatusChanged{
		ReportID:   attempt.ReportID,
		NewStatus:  string(models.StatusTimeout),
		OccurredAt: now,
	}); err != nil {
		s.logger.Error("failed to publish status change",
			"error", err, "report_id", attempt.ReportID.String())
	}
	if s.auditor != nil {
		s.auditor.Emit(ctx, audit.Event{
			Action:   audit.ActionReportTimeout,
			Entity:   "report",
			EntityID: attempt.ReportID.String(),
			Before:   string(models.StatusProcessing),
			After:    string(models.StatusTimeout),
		})
	}
	return true
}

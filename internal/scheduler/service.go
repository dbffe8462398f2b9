package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/angelmondragon/stocksync-backend/internal/syncer"
	"github.com/angelmondragon/stocksync-backend/internal/synclog"
	"github.com/angelmondragon/stocksync-backend/pkg/db/models"
	"github.com/angelmondragon/stocksync-backend/pkg/enums"
	apperrors "github.com/angelmondragon/stocksync-backend/pkg/errors"
	"github.com/angelmondragon/stocksync-backend/pkg/logger"
	"github.com/angelmondragon/stocksync-backend/pkg/metrics"
)

const defaultInterval = 15 * time.Minute

// Job is a recurring maintenance task run by the scheduler alongside
// the sync loops.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// SourceStatus is the per-source slice of the scheduler status surface.
type SourceStatus struct {
	State       string     `json:"state"`
	LastRunAt   *time.Time `json:"lastRunAt,omitempty"`
	LastStatus  string     `json:"lastStatus,omitempty"`
	LastCreated int        `json:"lastCreated"`
	LastUpdated int        `json:"lastUpdated"`
	LastFailed  int        `json:"lastFailed"`
}

// ServiceParams configure the sync scheduler.
type ServiceParams struct {
	Logger          *logger.Logger
	Purchase        syncer.Orchestrator
	Sales           syncer.Orchestrator
	SyncLog         synclog.Service
	Guard           *Guard
	Metrics         *metrics.SyncMetrics
	Interval        time.Duration
	RefreshInterval time.Duration
	RefreshJob      Job
}

// Service runs both orchestrators on staggered timers and exposes the
// manual trigger path through the same guard.
type Service struct {
	logg            *logger.Logger
	orchestrators   map[enums.SyncSource]syncer.Orchestrator
	syncLog         synclog.Service
	guard           *Guard
	metrics         *metrics.SyncMetrics
	interval        time.Duration
	refreshInterval time.Duration
	refreshJob      Job
}

// NewService builds the scheduler.
func NewService(params ServiceParams) (*Service, error) {
	if params.Logger == nil {
		return nil, apperrors.New(apperrors.CodeInternal, "scheduler: logger is required")
	}
	if params.Purchase == nil || params.Sales == nil {
		return nil, apperrors.New(apperrors.CodeInternal, "scheduler: both orchestrators are required")
	}
	if params.SyncLog == nil {
		return nil, apperrors.New(apperrors.CodeInternal, "scheduler: sync log is required")
	}
	guard := params.Guard
	if guard == nil {
		guard = NewGuard()
	}
	interval := params.Interval
	if interval <= 0 {
		interval = defaultInterval
	}
	return &Service{
		logg: params.Logger,
		orchestrators: map[enums.SyncSource]syncer.Orchestrator{
			params.Purchase.Source(): params.Purchase,
			params.Sales.Source():    params.Sales,
		},
		syncLog:         params.SyncLog,
		guard:           guard,
		metrics:         params.Metrics,
		interval:        interval,
		refreshInterval: params.RefreshInterval,
		refreshJob:      params.RefreshJob,
	}, nil
}

// Run drives the timers until the context is canceled. The sales loop
// is offset by half the interval to spread portal load.
func (s *Service) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		s.loop(ctx, enums.SyncSourcePurchases, 0)
	}()
	go func() {
		defer wg.Done()
		s.loop(ctx, enums.SyncSourceSales, s.interval/2)
	}()

	if s.refreshJob != nil && s.refreshInterval > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.refreshLoop(ctx)
		}()
	}

	wg.Wait()
	s.logg.Info(ctx, "scheduler stopped")
	return ctx.Err()
}

func (s *Service) loop(ctx context.Context, source enums.SyncSource, offset time.Duration) {
	if offset > 0 {
		timer := time.NewTimer(offset)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}

	s.runScheduled(ctx, source)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runScheduled(ctx, source)
		}
	}
}

func (s *Service) runScheduled(ctx context.Context, source enums.SyncSource) {
	_, err := s.run(ctx, source, enums.SyncTriggerScheduled, syncer.FullSyncOptions{ProcessStock: true})
	if err != nil && apperrors.As(err) != nil && apperrors.As(err).Code() == apperrors.CodeConflict {
		// An in-flight manual run holds the guard; this cycle just skips.
		return
	}
	if err != nil {
		s.logg.Error(s.logg.WithSource(ctx, string(source)), "scheduled sync failed", err)
	}
}

func (s *Service) refreshLoop(ctx context.Context) {
	ticker := time.NewTicker(s.refreshInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			jobCtx := s.logg.WithField(ctx, "job", s.refreshJob.Name())
			if err := s.refreshJob.Run(jobCtx); err != nil {
				s.logg.Error(jobCtx, "refresh job failed", err)
			}
		}
	}
}

// TriggerSync is the manual path. It goes through the same guard as the
// timers and rejects with a conflict when a run is already in flight.
func (s *Service) TriggerSync(ctx context.Context, source enums.SyncSource, opts syncer.FullSyncOptions) (*models.SyncRun, error) {
	return s.run(ctx, source, enums.SyncTriggerManual, opts)
}

// run is the single entry point for every sync run: guard, sync log
// lifecycle, orchestration and metrics. The guard and the log are
// released/closed on every exit path.
func (s *Service) run(ctx context.Context, source enums.SyncSource, trigger enums.SyncTrigger, opts syncer.FullSyncOptions) (*models.SyncRun, error) {
	orchestrator, ok := s.orchestrators[source]
	if !ok {
		return nil, apperrors.New(apperrors.CodeValidation, fmt.Sprintf("scheduler: unknown source %q", source))
	}

	if !s.guard.TryAcquire(source) {
		if s.metrics != nil {
			s.metrics.IncRejected(string(source))
		}
		return nil, apperrors.New(apperrors.CodeConflict, fmt.Sprintf("scheduler: sync already in progress for %s", source))
	}
	defer s.guard.Release(source)

	run, err := s.syncLog.Begin(ctx, source, trigger)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	result, runErr := orchestrator.FullSync(ctx, opts)
	duration := time.Since(start)

	outcome := synclog.Outcome{Err: runErr}
	if result != nil {
		outcome.Created = result.Created
		outcome.Updated = result.Updated
		outcome.Skipped = result.Skipped
		outcome.Failed = result.Failed
		outcome.Errors = result.Errors
	}
	if err := s.syncLog.Finish(ctx, run, outcome); err != nil {
		s.logg.Error(s.logg.WithSource(ctx, string(source)), "failed to close sync run", err)
	}

	s.observe(source, duration, run.Status, outcome)
	if runErr != nil {
		return run, runErr
	}
	return run, nil
}

func (s *Service) observe(source enums.SyncSource, duration time.Duration, status enums.SyncRunStatus, outcome synclog.Outcome) {
	if s.metrics == nil {
		return
	}
	label := string(source)
	s.metrics.ObserveDuration(label, duration)
	s.metrics.AddRecords(label, outcome.Created+outcome.Updated+outcome.Skipped+outcome.Failed)
	if status == enums.SyncRunStatusFailed {
		s.metrics.IncFailure(label)
	} else {
		s.metrics.IncSuccess(label)
	}
}

// Status reports running|idle per source plus the last finished run.
func (s *Service) Status(ctx context.Context) (map[enums.SyncSource]SourceStatus, error) {
	statuses := make(map[enums.SyncSource]SourceStatus, len(s.orchestrators))
	for source := range s.orchestrators {
		status := SourceStatus{State: "idle"}
		if s.guard.Held(source) {
			status.State = "running"
		}

		last, err := s.syncLog.LastFinished(ctx, source)
		if err != nil {
			return nil, err
		}
		if last != nil {
			status.LastRunAt = last.FinishedAt
			status.LastStatus = string(last.Status)
			status.LastCreated = last.Created
			status.LastUpdated = last.Updated
			status.LastFailed = last.Failed
		}
		statuses[source] = status
	}
	return statuses, nil
}

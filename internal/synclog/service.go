package synclog

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/stocksync-backend/pkg/db/models"
	"github.com/angelmondragon/stocksync-backend/pkg/enums"
	apperrors "github.com/angelmondragon/stocksync-backend/pkg/errors"
	"github.com/angelmondragon/stocksync-backend/pkg/logger"
	"github.com/angelmondragon/stocksync-backend/pkg/pagination"
)

// Outcome carries the result of one orchestration run into the log.
type Outcome struct {
	Created int
	Updated int
	Skipped int
	Failed  int
	Errors  []string
	// Err marks a run-level failure: the run itself threw before
	// completing, as opposed to individual records failing.
	Err error
}

// Service records the lifecycle of sync runs. Every run opens in a
// RUNNING state and is always closed with counts and a finish time.
type Service interface {
	Begin(ctx context.Context, source enums.SyncSource, trigger enums.SyncTrigger) (*models.SyncRun, error)
	Finish(ctx context.Context, run *models.SyncRun, outcome Outcome) error
	List(ctx context.Context, source enums.SyncSource, params pagination.Params) (pagination.Page[models.SyncRun], error)
	LastFinished(ctx context.Context, source enums.SyncSource) (*models.SyncRun, error)
}

type service struct {
	repo      Repository
	log       *logger.Logger
	maxErrors int
	now       func() time.Time
}

// NewServiceParams holds dependencies for the sync log service.
type NewServiceParams struct {
	Repo   Repository
	Logger *logger.Logger
	// MaxErrors caps how many per-record error strings one run keeps.
	MaxErrors int
	Now       func() time.Time
}

// NewService constructs the sync log service.
func NewService(params NewServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, apperrors.New(apperrors.CodeInternal, "synclog: repo is required")
	}
	if params.Logger == nil {
		return nil, apperrors.New(apperrors.CodeInternal, "synclog: logger is required")
	}
	if params.MaxErrors <= 0 {
		params.MaxErrors = 20
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		repo:      params.Repo,
		log:       params.Logger,
		maxErrors: params.MaxErrors,
		now:       now,
	}, nil
}

func (s *service) Begin(ctx context.Context, source enums.SyncSource, trigger enums.SyncTrigger) (*models.SyncRun, error) {
	if !source.IsValid() {
		return nil, apperrors.New(apperrors.CodeValidation, fmt.Sprintf("synclog: invalid source %q", source))
	}
	if !trigger.IsValid() {
		return nil, apperrors.New(apperrors.CodeValidation, fmt.Sprintf("synclog: invalid trigger %q", trigger))
	}

	run := &models.SyncRun{
		Source:    source,
		Trigger:   trigger,
		Status:    enums.SyncRunStatusRunning,
		StartedAt: s.now(),
	}
	if err := s.repo.Create(ctx, run); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "synclog: run create failed")
	}

	s.log.Info(s.log.WithRunID(s.log.WithSource(ctx, string(source)), run.ID.String()),
		fmt.Sprintf("sync run started (%s)", trigger))
	return run, nil
}

// Finish closes a run. Status derivation: run-level error wins, then
// any failed records make the run partial, otherwise success.
func (s *service) Finish(ctx context.Context, run *models.SyncRun, outcome Outcome) error {
	if run == nil {
		return apperrors.New(apperrors.CodeInternal, "synclog: run is required")
	}
	if run.Status.IsTerminal() {
		return apperrors.New(apperrors.CodeStateConflict, fmt.Sprintf("synclog: run %s already finished", run.ID))
	}

	switch {
	case outcome.Err != nil:
		run.Status = enums.SyncRunStatusFailed
	case outcome.Failed > 0:
		run.Status = enums.SyncRunStatusPartial
	default:
		run.Status = enums.SyncRunStatusSuccess
	}

	run.Created = outcome.Created
	run.Updated = outcome.Updated
	run.Skipped = outcome.Skipped
	run.Failed = outcome.Failed

	errors := outcome.Errors
	if outcome.Err != nil {
		errors = append([]string{outcome.Err.Error()}, errors...)
	}
	if len(errors) > s.maxErrors {
		overflow := len(errors) - s.maxErrors
		errors = append(errors[:s.maxErrors], fmt.Sprintf("... and %d more", overflow))
	}
	run.Errors = errors

	finished := s.now()
	run.FinishedAt = &finished
	run.DurationMS = finished.Sub(run.StartedAt).Milliseconds()

	if err := s.repo.Save(ctx, run); err != nil {
		return apperrors.Wrap(apperrors.CodeInternal, err, "synclog: run save failed")
	}

	ctx = s.log.WithRunID(s.log.WithSource(ctx, string(run.Source)), run.ID.String())
	msg := fmt.Sprintf("sync run finished %s: created=%d updated=%d skipped=%d failed=%d in %dms",
		run.Status, run.Created, run.Updated, run.Skipped, run.Failed, run.DurationMS)
	if run.Status == enums.SyncRunStatusSuccess {
		s.log.Info(ctx, msg)
	} else {
		s.log.Warn(ctx, msg)
	}
	return nil
}

func (s *service) List(ctx context.Context, source enums.SyncSource, params pagination.Params) (pagination.Page[models.SyncRun], error) {
	var page pagination.Page[models.SyncRun]

	if source != "" && !source.IsValid() {
		return page, apperrors.New(apperrors.CodeValidation, fmt.Sprintf("synclog: invalid source %q", source))
	}
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return page, apperrors.Wrap(apperrors.CodeValidation, err, "synclog: invalid cursor")
	}

	runs, err := s.repo.List(ctx, source, cursor, pagination.LimitWithBuffer(params.Limit))
	if err != nil {
		return page, apperrors.Wrap(apperrors.CodeInternal, err, "synclog: run list failed")
	}

	return pagination.NewPage(runs, params.Limit, func(r models.SyncRun) pagination.Cursor {
		return pagination.Cursor{CreatedAt: r.CreatedAt, ID: r.ID}
	}), nil
}

func (s *service) LastFinished(ctx context.Context, source enums.SyncSource) (*models.SyncRun, error) {
	if !source.IsValid() {
		return nil, apperrors.New(apperrors.CodeValidation, fmt.Sprintf("synclog: invalid source %q", source))
	}
	run, err := s.repo.LastFinished(ctx, source)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "synclog: last finished lookup failed")
	}
	return run, nil
}

package synclog

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/stocksync-backend/pkg/db/models"
	"github.com/angelmondragon/stocksync-backend/pkg/enums"
	"github.com/angelmondragon/stocksync-backend/pkg/pagination"
)

// Repository manages persistence for sync run audit records.
type Repository interface {
	Create(ctx context.Context, run *models.SyncRun) error
	Save(ctx context.Context, run *models.SyncRun) error
	Get(ctx context.Context, id uuid.UUID) (*models.SyncRun, error)
	List(ctx context.Context, source enums.SyncSource, cursor *pagination.Cursor, limit int) ([]models.SyncRun, error)
	LastFinished(ctx context.Context, source enums.SyncSource) (*models.SyncRun, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a sync log repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, run *models.SyncRun) error {
	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(run).Error
}

func (r *repository) Save(ctx context.Context, run *models.SyncRun) error {
	return r.db.WithContext(ctx).Save(run).Error
}

func (r *repository) Get(ctx context.Context, id uuid.UUID) (*models.SyncRun, error) {
	var run models.SyncRun
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&run).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &run, nil
}

func (r *repository) List(ctx context.Context, source enums.SyncSource, cursor *pagination.Cursor, limit int) ([]models.SyncRun, error) {
	query := r.db.WithContext(ctx).Model(&models.SyncRun{})
	if source != "" {
		query = query.Where("source = ?", source)
	}
	if cursor != nil {
		query = query.Where(
			"(created_at < ?) OR (created_at = ? AND id < ?)",
			cursor.CreatedAt, cursor.CreatedAt, cursor.ID,
		)
	}

	var runs []models.SyncRun
	if err := query.
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&runs).Error; err != nil {
		return nil, err
	}
	return runs, nil
}

func (r *repository) LastFinished(ctx context.Context, source enums.SyncSource) (*models.SyncRun, error) {
	var run models.SyncRun
	err := r.db.WithContext(ctx).
		Where("source = ? AND finished_at IS NOT NULL", source).
		Order("finished_at DESC").
		First(&run).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &run, nil
}

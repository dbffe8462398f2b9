package stock

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/stocksync-backend/pkg/db/models"
	"github.com/angelmondragon/stocksync-backend/pkg/pagination"
)

// Repository manages persistence for stock movements and summaries.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateMovement(ctx context.Context, movement *models.StockMovement) error
	MovementExists(ctx context.Context, refType string, refID uuid.UUID, lineNo int) (bool, error)
	ListMovementsBySKU(ctx context.Context, sku string) ([]models.StockMovement, error)
	ListMovements(ctx context.Context, sku string, cursor *pagination.Cursor, limit int) ([]models.StockMovement, error)
	GetSummary(ctx context.Context, sku string) (*models.StockSummary, error)
	ListSummaries(ctx context.Context, lowStockOnly bool) ([]models.StockSummary, error)
	SaveSummary(ctx context.Context, summary *models.StockSummary) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a stock repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateMovement(ctx context.Context, movement *models.StockMovement) error {
	if movement.ID == uuid.Nil {
		movement.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(movement).Error
}

func (r *repository) MovementExists(ctx context.Context, refType string, refID uuid.UUID, lineNo int) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.StockMovement{}).
		Where("ref_type = ? AND ref_id = ? AND line_no = ?", refType, refID, lineNo).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *repository) ListMovementsBySKU(ctx context.Context, sku string) ([]models.StockMovement, error) {
	var movements []models.StockMovement
	if err := r.db.WithContext(ctx).
		Where("sku = ?", sku).
		Order("created_at ASC, id ASC").
		Find(&movements).Error; err != nil {
		return nil, err
	}
	return movements, nil
}

func (r *repository) ListMovements(ctx context.Context, sku string, cursor *pagination.Cursor, limit int) ([]models.StockMovement, error) {
	query := r.db.WithContext(ctx).Model(&models.StockMovement{})
	if sku != "" {
		query = query.Where("sku = ?", sku)
	}
	if cursor != nil {
		query = query.Where(
			"(created_at < ?) OR (created_at = ? AND id < ?)",
			cursor.CreatedAt, cursor.CreatedAt, cursor.ID,
		)
	}

	var movements []models.StockMovement
	if err := query.
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&movements).Error; err != nil {
		return nil, err
	}
	return movements, nil
}

func (r *repository) GetSummary(ctx context.Context, sku string) (*models.StockSummary, error) {
	var summary models.StockSummary
	err := r.db.WithContext(ctx).Where("sku = ?", sku).First(&summary).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &summary, nil
}

func (r *repository) ListSummaries(ctx context.Context, lowStockOnly bool) ([]models.StockSummary, error) {
	query := r.db.WithContext(ctx).Model(&models.StockSummary{})
	if lowStockOnly {
		query = query.Where("low_stock_threshold > 0 AND available_qty < low_stock_threshold")
	}

	var summaries []models.StockSummary
	if err := query.Order("sku ASC").Find(&summaries).Error; err != nil {
		return nil, err
	}
	return summaries, nil
}

func (r *repository) SaveSummary(ctx context.Context, summary *models.StockSummary) error {
	return r.db.WithContext(ctx).Save(summary).Error
}

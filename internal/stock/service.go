package stock

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/stocksync-backend/pkg/db"
	"github.com/angelmondragon/stocksync-backend/pkg/db/models"
	"github.com/angelmondragon/stocksync-backend/pkg/enums"
	apperrors "github.com/angelmondragon/stocksync-backend/pkg/errors"
	"github.com/angelmondragon/stocksync-backend/pkg/logger"
	"github.com/angelmondragon/stocksync-backend/pkg/pagination"
)

// AppendParams describes one ledger append.
type AppendParams struct {
	SKU     string
	Type    enums.MovementType
	Qty     int
	RefType enums.MovementRefType
	RefID   uuid.UUID
	LineNo  int
	Source  string
	Note    string
}

// Service owns the append-only movement ledger and the per-SKU summary
// it materializes.
type Service interface {
	Append(ctx context.Context, params AppendParams) (*models.StockMovement, error)
	AppendIfMissing(ctx context.Context, params AppendParams) (*models.StockMovement, bool, error)
	Recalculate(ctx context.Context, sku string) (*models.StockSummary, error)
	CreateAdjustment(ctx context.Context, sku string, qty int, reason, actor string) (*models.StockMovement, error)
	Summary(ctx context.Context, sku string) (*models.StockSummary, error)
	ListSummaries(ctx context.Context, lowStockOnly bool) ([]models.StockSummary, error)
	Movements(ctx context.Context, sku string, params pagination.Params) (pagination.Page[models.StockMovement], error)
}

type service struct {
	client *db.Client
	repo   Repository
	log    *logger.Logger
}

// NewServiceParams holds dependencies for the stock service.
type NewServiceParams struct {
	Client *db.Client
	Repo   Repository
	Logger *logger.Logger
}

// NewService constructs the stock service.
func NewService(params NewServiceParams) (Service, error) {
	if params.Client == nil {
		return nil, apperrors.New(apperrors.CodeInternal, "stock: db client is required")
	}
	if params.Repo == nil {
		return nil, apperrors.New(apperrors.CodeInternal, "stock: repo is required")
	}
	if params.Logger == nil {
		return nil, apperrors.New(apperrors.CodeInternal, "stock: logger is required")
	}
	return &service{client: params.Client, repo: params.Repo, log: params.Logger}, nil
}

// Append writes one immutable movement row and folds it into the SKU
// summary inside a single transaction. Movements are never edited or
// deleted afterwards; corrections are new adjust rows.
func (s *service) Append(ctx context.Context, params AppendParams) (*models.StockMovement, error) {
	movement, err := s.buildMovement(params)
	if err != nil {
		return nil, err
	}

	err = s.client.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		if err := txRepo.CreateMovement(ctx, movement); err != nil {
			if db.IsUniqueViolation(err, "idx_stock_movements_ref") {
				return apperrors.Wrap(apperrors.CodeConflict, err, "stock: movement already recorded")
			}
			return apperrors.Wrap(apperrors.CodeInternal, err, "stock: movement insert failed")
		}
		return s.applyToSummary(ctx, txRepo, movement)
	})
	if err != nil {
		return nil, err
	}
	return movement, nil
}

// AppendIfMissing appends unless a movement with the same
// (ref_type, ref_id, line_no) already exists. The boolean reports
// whether a row was written. Requeued records re-run their lines, and
// lines that already landed must not double-count.
func (s *service) AppendIfMissing(ctx context.Context, params AppendParams) (*models.StockMovement, bool, error) {
	movement, err := s.buildMovement(params)
	if err != nil {
		return nil, false, err
	}

	appended := false
	err = s.client.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)

		exists, err := txRepo.MovementExists(ctx, string(movement.RefType), movement.RefID, movement.LineNo)
		if err != nil {
			return apperrors.Wrap(apperrors.CodeInternal, err, "stock: movement lookup failed")
		}
		if exists {
			return nil
		}

		if err := txRepo.CreateMovement(ctx, movement); err != nil {
			return apperrors.Wrap(apperrors.CodeInternal, err, "stock: movement insert failed")
		}
		appended = true
		return s.applyToSummary(ctx, txRepo, movement)
	})
	if err != nil {
		return nil, false, err
	}
	if !appended {
		return nil, false, nil
	}
	return movement, true, nil
}

func (s *service) buildMovement(params AppendParams) (*models.StockMovement, error) {
	sku := strings.TrimSpace(params.SKU)
	if sku == "" {
		return nil, apperrors.New(apperrors.CodeValidation, "stock: sku is required")
	}
	if !params.Type.IsValid() {
		return nil, apperrors.New(apperrors.CodeValidation, fmt.Sprintf("stock: invalid movement type %q", params.Type))
	}
	if !params.RefType.IsValid() {
		return nil, apperrors.New(apperrors.CodeValidation, fmt.Sprintf("stock: invalid ref type %q", params.RefType))
	}
	if params.Qty == 0 {
		return nil, apperrors.New(apperrors.CodeValidation, "stock: qty must be non-zero")
	}
	if params.Type != enums.MovementTypeAdjust && params.Qty < 0 {
		return nil, apperrors.New(apperrors.CodeValidation, "stock: only adjust movements may carry a negative qty")
	}
	if params.RefID == uuid.Nil {
		return nil, apperrors.New(apperrors.CodeValidation, "stock: ref id is required")
	}

	return &models.StockMovement{
		SKU:     sku,
		Type:    params.Type,
		Qty:     params.Qty,
		RefType: params.RefType,
		RefID:   params.RefID,
		LineNo:  params.LineNo,
		Source:  params.Source,
		Note:    params.Note,
	}, nil
}

// applyToSummary folds one movement into the summary row. Available is
// allowed to go negative: upstream records can arrive out of order, so
// an oversell is a warning, never a rejection.
func (s *service) applyToSummary(ctx context.Context, repo Repository, movement *models.StockMovement) error {
	summary, err := repo.GetSummary(ctx, movement.SKU)
	if err != nil {
		return apperrors.Wrap(apperrors.CodeInternal, err, "stock: summary lookup failed")
	}
	if summary == nil {
		summary = &models.StockSummary{SKU: movement.SKU}
	}

	applyMovement(summary, movement.Type, movement.Qty)
	at := movement.CreatedAt
	if at.IsZero() {
		at = time.Now()
	}
	summary.LastMovementAt = &at

	if summary.AvailableQty < 0 {
		s.log.Warn(s.log.WithSKU(ctx, movement.SKU),
			fmt.Sprintf("available stock went negative (%d) after %s movement", summary.AvailableQty, movement.Type))
	}
	if summary.BelowThreshold() {
		s.log.Warn(s.log.WithSKU(ctx, movement.SKU),
			fmt.Sprintf("available stock %d is below threshold %d", summary.AvailableQty, summary.LowStockThreshold))
	}

	if err := repo.SaveSummary(ctx, summary); err != nil {
		return apperrors.Wrap(apperrors.CodeInternal, err, "stock: summary save failed")
	}
	return nil
}

func applyMovement(summary *models.StockSummary, movementType enums.MovementType, qty int) {
	switch movementType {
	case enums.MovementTypeIn:
		summary.AvailableQty += qty
		summary.TotalIn += qty
	case enums.MovementTypeOut:
		summary.AvailableQty -= qty
		summary.TotalOut += qty
	case enums.MovementTypeAdjust:
		summary.AvailableQty += qty
	}
}

// Recalculate replays the full ledger for one SKU and overwrites the
// summary with the result. This is the authority whenever drift is
// suspected; the incremental path is tested against it.
func (s *service) Recalculate(ctx context.Context, sku string) (*models.StockSummary, error) {
	sku = strings.TrimSpace(sku)
	if sku == "" {
		return nil, apperrors.New(apperrors.CodeValidation, "stock: sku is required")
	}

	var result *models.StockSummary
	err := s.client.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)

		movements, err := txRepo.ListMovementsBySKU(ctx, sku)
		if err != nil {
			return apperrors.Wrap(apperrors.CodeInternal, err, "stock: ledger replay failed")
		}

		summary, err := txRepo.GetSummary(ctx, sku)
		if err != nil {
			return apperrors.Wrap(apperrors.CodeInternal, err, "stock: summary lookup failed")
		}
		if summary == nil {
			if len(movements) == 0 {
				return apperrors.New(apperrors.CodeNotFound, fmt.Sprintf("stock: no history for sku %q", sku))
			}
			summary = &models.StockSummary{SKU: sku}
		}

		summary.AvailableQty = 0
		summary.TotalIn = 0
		summary.TotalOut = 0
		summary.LastMovementAt = nil
		for i := range movements {
			applyMovement(summary, movements[i].Type, movements[i].Qty)
			at := movements[i].CreatedAt
			summary.LastMovementAt = &at
		}

		if err := txRepo.SaveSummary(ctx, summary); err != nil {
			return apperrors.Wrap(apperrors.CodeInternal, err, "stock: summary save failed")
		}
		result = summary
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info(s.log.WithSKU(ctx, sku),
		fmt.Sprintf("recalculated summary: available=%d in=%d out=%d", result.AvailableQty, result.TotalIn, result.TotalOut))
	return result, nil
}

// CreateAdjustment is the only manual-entry path into the ledger. The
// signed qty lands as one adjust movement plus a summary update.
func (s *service) CreateAdjustment(ctx context.Context, sku string, qty int, reason, actor string) (*models.StockMovement, error) {
	if strings.TrimSpace(reason) == "" {
		return nil, apperrors.New(apperrors.CodeValidation, "stock: adjustment reason is required")
	}

	note := reason
	if actor != "" {
		note = fmt.Sprintf("%s (by %s)", reason, actor)
	}
	return s.Append(ctx, AppendParams{
		SKU:     sku,
		Type:    enums.MovementTypeAdjust,
		Qty:     qty,
		RefType: enums.MovementRefTypeAdjustment,
		RefID:   uuid.New(),
		Source:  "manual",
		Note:    note,
	})
}

func (s *service) Summary(ctx context.Context, sku string) (*models.StockSummary, error) {
	summary, err := s.repo.GetSummary(ctx, sku)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "stock: summary lookup failed")
	}
	if summary == nil {
		return nil, apperrors.New(apperrors.CodeNotFound, fmt.Sprintf("stock: no summary for sku %q", sku))
	}
	return summary, nil
}

func (s *service) ListSummaries(ctx context.Context, lowStockOnly bool) ([]models.StockSummary, error) {
	summaries, err := s.repo.ListSummaries(ctx, lowStockOnly)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "stock: summary list failed")
	}
	return summaries, nil
}

// Movements lists ledger rows newest first with cursor pagination.
func (s *service) Movements(ctx context.Context, sku string, params pagination.Params) (pagination.Page[models.StockMovement], error) {
	var page pagination.Page[models.StockMovement]

	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return page, apperrors.Wrap(apperrors.CodeValidation, err, "stock: invalid cursor")
	}

	movements, err := s.repo.ListMovements(ctx, strings.TrimSpace(sku), cursor, pagination.LimitWithBuffer(params.Limit))
	if err != nil {
		return page, apperrors.Wrap(apperrors.CodeInternal, err, "stock: movement list failed")
	}

	return pagination.NewPage(movements, params.Limit, func(m models.StockMovement) pagination.Cursor {
		return pagination.Cursor{CreatedAt: m.CreatedAt, ID: m.ID}
	}), nil
}

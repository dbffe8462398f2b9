package syncer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/stocksync-backend/internal/catalog"
	"github.com/angelmondragon/stocksync-backend/internal/stock"
	"github.com/angelmondragon/stocksync-backend/internal/syncer/portal"
	"github.com/angelmondragon/stocksync-backend/pkg/db/models"
	"github.com/angelmondragon/stocksync-backend/pkg/enums"
	apperrors "github.com/angelmondragon/stocksync-backend/pkg/errors"
	"github.com/angelmondragon/stocksync-backend/pkg/logger"
)

type purchaseOrchestrator struct {
	fetcher     portal.OrderFetcher
	repo        PurchaseRepository
	catalog     catalog.Service
	stock       stock.Service
	log         *logger.Logger
	listLimit   int
	detailDelay time.Duration
	now         func() time.Time
}

// PurchaseParams holds dependencies for the purchase orchestrator.
type PurchaseParams struct {
	Fetcher     portal.OrderFetcher
	Repo        PurchaseRepository
	Catalog     catalog.Service
	Stock       stock.Service
	Logger      *logger.Logger
	ListLimit   int
	DetailDelay time.Duration
	Now         func() time.Time
}

// NewPurchaseOrchestrator constructs the orchestrator for the
// purchasing portal.
func NewPurchaseOrchestrator(params PurchaseParams) (Orchestrator, error) {
	if params.Fetcher == nil {
		return nil, apperrors.New(apperrors.CodeInternal, "syncer: purchase fetcher is required")
	}
	if params.Repo == nil {
		return nil, apperrors.New(apperrors.CodeInternal, "syncer: purchase repo is required")
	}
	if params.Catalog == nil {
		return nil, apperrors.New(apperrors.CodeInternal, "syncer: catalog service is required")
	}
	if params.Stock == nil {
		return nil, apperrors.New(apperrors.CodeInternal, "syncer: stock service is required")
	}
	if params.Logger == nil {
		return nil, apperrors.New(apperrors.CodeInternal, "syncer: logger is required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &purchaseOrchestrator{
		fetcher:     params.Fetcher,
		repo:        params.Repo,
		catalog:     params.Catalog,
		stock:       params.Stock,
		log:         params.Logger,
		listLimit:   params.ListLimit,
		detailDelay: params.DetailDelay,
		now:         now,
	}, nil
}

func (o *purchaseOrchestrator) Source() enums.SyncSource {
	return enums.SyncSourcePurchases
}

// SyncList mirrors the portal's order list. A failure on one record
// never aborts the batch; a failed list fetch aborts the whole step.
func (o *purchaseOrchestrator) SyncList(ctx context.Context, opts ListOptions) (*Result, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = o.listLimit
	}
	direction := portal.NewestFirst
	if opts.OldestFirst {
		direction = portal.OldestFirst
	}

	raws, err := o.fetcher.FetchList(ctx, limit, direction)
	if err != nil {
		return &Result{}, apperrors.Wrap(apperrors.CodeDependency, err, "syncer: purchase list fetch failed")
	}

	ctx = o.log.WithSource(ctx, string(o.Source()))
	result := &Result{}
	for _, raw := range raws {
		number := strings.TrimSpace(raw.Number)
		if number == "" {
			result.fail("order", fmt.Errorf("missing order number"))
			continue
		}

		status, statusErr := enums.ParsePurchaseOrderStatus(raw.Status)
		if statusErr != nil {
			o.log.Warn(ctx, fmt.Sprintf("order %s: %v, keeping %q", number, statusErr, status))
		}

		existing, err := o.repo.GetByNumber(ctx, number)
		if err != nil {
			result.fail(number, err)
			continue
		}

		order := &models.PurchaseOrder{
			OrderNumber:  number,
			Status:       status,
			SupplierName: raw.Supplier,
			OrderedAt:    raw.OrderedAt,
			TotalAmount:  raw.Total,
			LastSyncedAt: o.now(),
		}
		if existing != nil {
			order.ID = existing.ID
		}

		if err := o.repo.Upsert(ctx, order); err != nil {
			result.fail(number, err)
			continue
		}
		if existing == nil {
			result.Created++
		} else {
			result.Updated++
		}
	}
	return result, nil
}

// SyncDetail backfills line items for orders that have none (or all of
// them when forced), resolving each line through the identity catalog.
func (o *purchaseOrchestrator) SyncDetail(ctx context.Context, opts DetailOptions) (*Result, error) {
	orders, err := o.repo.ListForDetail(ctx, opts.Limit, opts.ForceAll)
	if err != nil {
		return &Result{}, apperrors.Wrap(apperrors.CodeInternal, err, "syncer: purchase detail listing failed")
	}

	ctx = o.log.WithSource(ctx, string(o.Source()))
	result := &Result{}
	for i := range orders {
		if i > 0 {
			if err := waitDetailDelay(ctx, o.detailDelay); err != nil {
				return result, err
			}
		}
		order := &orders[i]

		detail, err := o.fetcher.FetchDetail(ctx, order.OrderNumber)
		if err != nil {
			result.fail(order.OrderNumber, err)
			continue
		}

		lines, err := o.resolveLines(ctx, detail.Lines)
		if err != nil {
			result.fail(order.OrderNumber, err)
			continue
		}

		if err := o.repo.ReplaceLines(ctx, order.ID, lines); err != nil {
			result.fail(order.OrderNumber, err)
			continue
		}
		if !detail.Total.IsZero() && !detail.Total.Equal(order.TotalAmount) {
			order.TotalAmount = detail.Total
			if err := o.repo.Save(ctx, order); err != nil {
				result.fail(order.OrderNumber, err)
				continue
			}
		}
		result.Updated++
	}
	return result, nil
}

func (o *purchaseOrchestrator) resolveLines(ctx context.Context, raws []portal.RawLineItem) ([]models.PurchaseOrderLine, error) {
	lines := make([]models.PurchaseOrderLine, 0, len(raws))
	for i, raw := range raws {
		resolution, err := o.catalog.Resolve(ctx, raw.Code, raw.Name)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", i+1, err)
		}
		lines = append(lines, models.PurchaseOrderLine{
			Position:  i + 1,
			SKU:       resolution.SKU,
			Name:      raw.Name,
			Qty:       raw.Qty,
			UnitPrice: raw.UnitPrice,
			LineTotal: raw.LineTotal,
		})
	}
	return lines, nil
}

// ProcessEligible turns complete, unprocessed orders into IN movements,
// one per non-zero line, exactly once. A line failure still marks the
// order processed with the error recorded, so the pipeline never stalls
// on a poison record; the admin retry path requeues it.
func (o *purchaseOrchestrator) ProcessEligible(ctx context.Context) (*Result, error) {
	orders, err := o.repo.ListEligible(ctx, enums.StockEligiblePurchaseOrderStatuses())
	if err != nil {
		return &Result{}, apperrors.Wrap(apperrors.CodeInternal, err, "syncer: eligible purchase listing failed")
	}

	ctx = o.log.WithSource(ctx, string(o.Source()))
	result := &Result{}
	for i := range orders {
		order := &orders[i]
		if !order.HasLines() {
			continue
		}

		var lineErrs []string
		for _, line := range order.Lines {
			if line.Qty == 0 {
				continue
			}
			if line.Qty < 0 {
				lineErrs = append(lineErrs, fmt.Sprintf("line %d: negative qty %d", line.Position, line.Qty))
				continue
			}
			_, appended, err := o.stock.AppendIfMissing(ctx, stock.AppendParams{
				SKU:     line.SKU,
				Type:    enums.MovementTypeIn,
				Qty:     line.Qty,
				RefType: enums.MovementRefTypePurchaseOrder,
				RefID:   order.ID,
				LineNo:  line.Position,
				Source:  string(o.Source()),
				Note:    "PO " + order.OrderNumber,
			})
			if err != nil {
				lineErrs = append(lineErrs, fmt.Sprintf("line %d: %v", line.Position, err))
				continue
			}
			if appended {
				result.Created++
			}
		}

		processedAt := o.now()
		order.StockProcessed = true
		order.StockProcessedAt = &processedAt
		if len(lineErrs) > 0 {
			msg := strings.Join(lineErrs, "; ")
			order.StockProcessingError = &msg
			result.skip(order.OrderNumber, fmt.Errorf("%s", msg))
		} else {
			order.StockProcessingError = nil
			result.Updated++
		}

		if err := o.repo.Save(ctx, order); err != nil {
			result.fail(order.OrderNumber, err)
		}
	}
	return result, nil
}

// FullSync composes list, detail backfill and eligible processing. The
// first unrecoverable error short-circuits but the partial result is
// still returned.
func (o *purchaseOrchestrator) FullSync(ctx context.Context, opts FullSyncOptions) (*Result, error) {
	combined := &Result{}

	listResult, err := o.SyncList(ctx, ListOptions{Limit: opts.Limit})
	combined.Merge(listResult)
	if err != nil {
		return combined, err
	}

	detailResult, err := o.SyncDetail(ctx, DetailOptions{Limit: opts.Limit})
	combined.Merge(detailResult)
	if err != nil {
		return combined, err
	}

	if opts.ProcessStock {
		processResult, err := o.ProcessEligible(ctx)
		combined.Merge(processResult)
		if err != nil {
			return combined, err
		}
	}
	return combined, nil
}

// RetryRecord clears the processing flags on one order so the next
// ProcessEligible pass picks it up again.
func (o *purchaseOrchestrator) RetryRecord(ctx context.Context, naturalKey string) error {
	order, err := o.repo.GetByNumber(ctx, strings.TrimSpace(naturalKey))
	if err != nil {
		return apperrors.Wrap(apperrors.CodeInternal, err, "syncer: order lookup failed")
	}
	if order == nil {
		return apperrors.New(apperrors.CodeNotFound, fmt.Sprintf("syncer: order %q not found", naturalKey))
	}
	if !order.StockProcessed {
		return apperrors.New(apperrors.CodeStateConflict, fmt.Sprintf("syncer: order %q has not been processed", naturalKey))
	}

	order.StockProcessed = false
	order.StockProcessedAt = nil
	order.StockProcessingError = nil
	if err := o.repo.Save(ctx, order); err != nil {
		return apperrors.Wrap(apperrors.CodeInternal, err, "syncer: order requeue failed")
	}
	o.log.Info(o.log.WithSource(ctx, string(o.Source())), fmt.Sprintf("order %s requeued for stock processing", order.OrderNumber))
	return nil
}

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

type salesOrchestrator struct {
	fetcher     portal.InvoiceFetcher
	repo        SalesRepository
	catalog     catalog.Service
	stock       stock.Service
	log         *logger.Logger
	listLimit   int
	detailDelay time.Duration
	now         func() time.Time
}

// SalesParams holds dependencies for the sales orchestrator.
type SalesParams struct {
	Fetcher     portal.InvoiceFetcher
	Repo        SalesRepository
	Catalog     catalog.Service
	Stock       stock.Service
	Logger      *logger.Logger
	ListLimit   int
	DetailDelay time.Duration
	Now         func() time.Time
}

// NewSalesOrchestrator constructs the orchestrator for the sales portal.
func NewSalesOrchestrator(params SalesParams) (Orchestrator, error) {
	if params.Fetcher == nil {
		return nil, apperrors.New(apperrors.CodeInternal, "syncer: sales fetcher is required")
	}
	if params.Repo == nil {
		return nil, apperrors.New(apperrors.CodeInternal, "syncer: sales repo is required")
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
	return &salesOrchestrator{
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

func (o *salesOrchestrator) Source() enums.SyncSource {
	return enums.SyncSourceSales
}

func (o *salesOrchestrator) SyncList(ctx context.Context, opts ListOptions) (*Result, error) {
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
		return &Result{}, apperrors.Wrap(apperrors.CodeDependency, err, "syncer: invoice list fetch failed")
	}

	ctx = o.log.WithSource(ctx, string(o.Source()))
	result := &Result{}
	for _, raw := range raws {
		number := strings.TrimSpace(raw.Number)
		if number == "" {
			result.fail("invoice", fmt.Errorf("missing invoice number"))
			continue
		}

		status, statusErr := enums.ParseSalesInvoiceStatus(raw.Status)
		if statusErr != nil {
			o.log.Warn(ctx, fmt.Sprintf("invoice %s: %v, keeping %q", number, statusErr, status))
		}

		existing, err := o.repo.GetByNumber(ctx, number)
		if err != nil {
			result.fail(number, err)
			continue
		}

		invoice := &models.SalesInvoice{
			InvoiceNumber: number,
			Status:        status,
			CustomerName:  raw.Customer,
			IssuedAt:      raw.IssuedAt,
			TotalAmount:   raw.Total,
			LastSyncedAt:  o.now(),
		}
		if existing != nil {
			invoice.ID = existing.ID
		}

		if err := o.repo.Upsert(ctx, invoice); err != nil {
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

func (o *salesOrchestrator) SyncDetail(ctx context.Context, opts DetailOptions) (*Result, error) {
	invoices, err := o.repo.ListForDetail(ctx, opts.Limit, opts.ForceAll)
	if err != nil {
		return &Result{}, apperrors.Wrap(apperrors.CodeInternal, err, "syncer: invoice detail listing failed")
	}

	ctx = o.log.WithSource(ctx, string(o.Source()))
	result := &Result{}
	for i := range invoices {
		if i > 0 {
			if err := waitDetailDelay(ctx, o.detailDelay); err != nil {
				return result, err
			}
		}
		invoice := &invoices[i]

		detail, err := o.fetcher.FetchDetail(ctx, invoice.InvoiceNumber)
		if err != nil {
			result.fail(invoice.InvoiceNumber, err)
			continue
		}

		lines, err := o.resolveLines(ctx, detail.Lines)
		if err != nil {
			result.fail(invoice.InvoiceNumber, err)
			continue
		}

		if err := o.repo.ReplaceLines(ctx, invoice.ID, lines); err != nil {
			result.fail(invoice.InvoiceNumber, err)
			continue
		}
		if !detail.Total.IsZero() && !detail.Total.Equal(invoice.TotalAmount) {
			invoice.TotalAmount = detail.Total
			if err := o.repo.Save(ctx, invoice); err != nil {
				result.fail(invoice.InvoiceNumber, err)
				continue
			}
		}
		result.Updated++
	}
	return result, nil
}

func (o *salesOrchestrator) resolveLines(ctx context.Context, raws []portal.RawLineItem) ([]models.SalesInvoiceLine, error) {
	lines := make([]models.SalesInvoiceLine, 0, len(raws))
	for i, raw := range raws {
		resolution, err := o.catalog.Resolve(ctx, raw.Code, raw.Name)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", i+1, err)
		}
		lines = append(lines, models.SalesInvoiceLine{
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

// ProcessEligible turns closed or completed, unprocessed invoices into
// OUT movements, one per non-zero line, exactly once.
func (o *salesOrchestrator) ProcessEligible(ctx context.Context) (*Result, error) {
	invoices, err := o.repo.ListEligible(ctx, enums.StockEligibleSalesInvoiceStatuses())
	if err != nil {
		return &Result{}, apperrors.Wrap(apperrors.CodeInternal, err, "syncer: eligible invoice listing failed")
	}

	ctx = o.log.WithSource(ctx, string(o.Source()))
	result := &Result{}
	for i := range invoices {
		invoice := &invoices[i]
		if !invoice.HasLines() {
			continue
		}

		var lineErrs []string
		for _, line := range invoice.Lines {
			if line.Qty == 0 {
				continue
			}
			if line.Qty < 0 {
				lineErrs = append(lineErrs, fmt.Sprintf("line %d: negative qty %d", line.Position, line.Qty))
				continue
			}
			_, appended, err := o.stock.AppendIfMissing(ctx, stock.AppendParams{
				SKU:     line.SKU,
				Type:    enums.MovementTypeOut,
				Qty:     line.Qty,
				RefType: enums.MovementRefTypeInvoice,
				RefID:   invoice.ID,
				LineNo:  line.Position,
				Source:  string(o.Source()),
				Note:    "INV " + invoice.InvoiceNumber,
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
		invoice.StockProcessed = true
		invoice.StockProcessedAt = &processedAt
		if len(lineErrs) > 0 {
			msg := strings.Join(lineErrs, "; ")
			invoice.StockProcessingError = &msg
			result.skip(invoice.InvoiceNumber, fmt.Errorf("%s", msg))
		} else {
			invoice.StockProcessingError = nil
			result.Updated++
		}

		if err := o.repo.Save(ctx, invoice); err != nil {
			result.fail(invoice.InvoiceNumber, err)
		}
	}
	return result, nil
}

func (o *salesOrchestrator) FullSync(ctx context.Context, opts FullSyncOptions) (*Result, error) {
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

func (o *salesOrchestrator) RetryRecord(ctx context.Context, naturalKey string) error {
	invoice, err := o.repo.GetByNumber(ctx, strings.TrimSpace(naturalKey))
	if err != nil {
		return apperrors.Wrap(apperrors.CodeInternal, err, "syncer: invoice lookup failed")
	}
	if invoice == nil {
		return apperrors.New(apperrors.CodeNotFound, fmt.Sprintf("syncer: invoice %q not found", naturalKey))
	}
	if !invoice.StockProcessed {
		return apperrors.New(apperrors.CodeStateConflict, fmt.Sprintf("syncer: invoice %q has not been processed", naturalKey))
	}

	invoice.StockProcessed = false
	invoice.StockProcessedAt = nil
	invoice.StockProcessingError = nil
	if err := o.repo.Save(ctx, invoice); err != nil {
		return apperrors.Wrap(apperrors.CodeInternal, err, "syncer: invoice requeue failed")
	}
	o.log.Info(o.log.WithSource(ctx, string(o.Source())), fmt.Sprintf("invoice %s requeued for stock processing", invoice.InvoiceNumber))
	return nil
}

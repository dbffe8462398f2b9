package syncer

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/stocksync-backend/pkg/db/models"
)

// mirror upserts never touch the stock-processing columns: those belong
// to ProcessEligible and the admin retry path.
var purchaseUpsertColumns = []string{"status", "supplier_name", "ordered_at", "total_amount", "last_synced_at", "updated_at"}
var salesUpsertColumns = []string{"status", "customer_name", "issued_at", "total_amount", "last_synced_at", "updated_at"}

// PurchaseRepository manages the purchase order mirror collection.
type PurchaseRepository interface {
	WithTx(tx *gorm.DB) PurchaseRepository
	GetByNumber(ctx context.Context, number string) (*models.PurchaseOrder, error)
	Upsert(ctx context.Context, order *models.PurchaseOrder) error
	Save(ctx context.Context, order *models.PurchaseOrder) error
	ListForDetail(ctx context.Context, limit int, forceAll bool) ([]models.PurchaseOrder, error)
	ListEligible(ctx context.Context, statuses []string) ([]models.PurchaseOrder, error)
	ReplaceLines(ctx context.Context, orderID uuid.UUID, lines []models.PurchaseOrderLine) error
}

type purchaseRepository struct {
	db *gorm.DB
}

// NewPurchaseRepository returns the purchase mirror repository.
func NewPurchaseRepository(db *gorm.DB) PurchaseRepository {
	return &purchaseRepository{db: db}
}

func (r *purchaseRepository) WithTx(tx *gorm.DB) PurchaseRepository {
	if tx == nil {
		return r
	}
	return &purchaseRepository{db: tx}
}

func (r *purchaseRepository) GetByNumber(ctx context.Context, number string) (*models.PurchaseOrder, error) {
	var order models.PurchaseOrder
	err := r.db.WithContext(ctx).
		Preload("Lines", lineOrder).
		Where("order_number = ?", number).
		First(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &order, nil
}

// Upsert inserts or updates keyed on the portal's order number. The
// conflict clause makes overlapping fetches race-safe.
func (r *purchaseRepository) Upsert(ctx context.Context, order *models.PurchaseOrder) error {
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	return r.db.WithContext(ctx).
		Omit(clause.Associations).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "order_number"}},
			DoUpdates: clause.AssignmentColumns(purchaseUpsertColumns),
		}).
		Create(order).Error
}

func (r *purchaseRepository) Save(ctx context.Context, order *models.PurchaseOrder) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(order).Error
}

// ListForDetail returns mirror records still missing line items, oldest
// first. With forceAll every record qualifies.
func (r *purchaseRepository) ListForDetail(ctx context.Context, limit int, forceAll bool) ([]models.PurchaseOrder, error) {
	query := r.db.WithContext(ctx).Model(&models.PurchaseOrder{})
	if !forceAll {
		query = query.Where("NOT EXISTS (SELECT 1 FROM purchase_order_lines l WHERE l.order_id = purchase_orders.id)")
	}

	var orders []models.PurchaseOrder
	query = query.Order("created_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *purchaseRepository) ListEligible(ctx context.Context, statuses []string) ([]models.PurchaseOrder, error) {
	var orders []models.PurchaseOrder
	err := r.db.WithContext(ctx).
		Preload("Lines", lineOrder).
		Where("stock_processed = ? AND status IN ?", false, statuses).
		Order("created_at ASC").
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}

// ReplaceLines overwrites the full line set for one order. Overwrite,
// never append: detail refetches must be idempotent.
func (r *purchaseRepository) ReplaceLines(ctx context.Context, orderID uuid.UUID, lines []models.PurchaseOrderLine) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("order_id = ?", orderID).Delete(&models.PurchaseOrderLine{}).Error; err != nil {
			return err
		}
		for i := range lines {
			if lines[i].ID == uuid.Nil {
				lines[i].ID = uuid.New()
			}
			lines[i].OrderID = orderID
		}
		if len(lines) == 0 {
			return nil
		}
		return tx.Create(&lines).Error
	})
}

// SalesRepository manages the sales invoice mirror collection.
type SalesRepository interface {
	WithTx(tx *gorm.DB) SalesRepository
	GetByNumber(ctx context.Context, number string) (*models.SalesInvoice, error)
	Upsert(ctx context.Context, invoice *models.SalesInvoice) error
	Save(ctx context.Context, invoice *models.SalesInvoice) error
	ListForDetail(ctx context.Context, limit int, forceAll bool) ([]models.SalesInvoice, error)
	ListEligible(ctx context.Context, statuses []string) ([]models.SalesInvoice, error)
	ReplaceLines(ctx context.Context, invoiceID uuid.UUID, lines []models.SalesInvoiceLine) error
}

type salesRepository struct {
	db *gorm.DB
}

// NewSalesRepository returns the sales mirror repository.
func NewSalesRepository(db *gorm.DB) SalesRepository {
	return &salesRepository{db: db}
}

func (r *salesRepository) WithTx(tx *gorm.DB) SalesRepository {
	if tx == nil {
		return r
	}
	return &salesRepository{db: tx}
}

func (r *salesRepository) GetByNumber(ctx context.Context, number string) (*models.SalesInvoice, error) {
	var invoice models.SalesInvoice
	err := r.db.WithContext(ctx).
		Preload("Lines", lineOrder).
		Where("invoice_number = ?", number).
		First(&invoice).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &invoice, nil
}

func (r *salesRepository) Upsert(ctx context.Context, invoice *models.SalesInvoice) error {
	if invoice.ID == uuid.Nil {
		invoice.ID = uuid.New()
	}
	return r.db.WithContext(ctx).
		Omit(clause.Associations).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "invoice_number"}},
			DoUpdates: clause.AssignmentColumns(salesUpsertColumns),
		}).
		Create(invoice).Error
}

func (r *salesRepository) Save(ctx context.Context, invoice *models.SalesInvoice) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(invoice).Error
}

func (r *salesRepository) ListForDetail(ctx context.Context, limit int, forceAll bool) ([]models.SalesInvoice, error) {
	query := r.db.WithContext(ctx).Model(&models.SalesInvoice{})
	if !forceAll {
		query = query.Where("NOT EXISTS (SELECT 1 FROM sales_invoice_lines l WHERE l.invoice_id = sales_invoices.id)")
	}

	var invoices []models.SalesInvoice
	query = query.Order("created_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&invoices).Error; err != nil {
		return nil, err
	}
	return invoices, nil
}

func (r *salesRepository) ListEligible(ctx context.Context, statuses []string) ([]models.SalesInvoice, error) {
	var invoices []models.SalesInvoice
	err := r.db.WithContext(ctx).
		Preload("Lines", lineOrder).
		Where("stock_processed = ? AND status IN ?", false, statuses).
		Order("created_at ASC").
		Find(&invoices).Error
	if err != nil {
		return nil, err
	}
	return invoices, nil
}

func (r *salesRepository) ReplaceLines(ctx context.Context, invoiceID uuid.UUID, lines []models.SalesInvoiceLine) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("invoice_id = ?", invoiceID).Delete(&models.SalesInvoiceLine{}).Error; err != nil {
			return err
		}
		for i := range lines {
			if lines[i].ID == uuid.Nil {
				lines[i].ID = uuid.New()
			}
			lines[i].InvoiceID = invoiceID
		}
		if len(lines) == 0 {
			return nil
		}
		return tx.Create(&lines).Error
	})
}

func lineOrder(db *gorm.DB) *gorm.DB {
	return db.Order("position ASC")
}

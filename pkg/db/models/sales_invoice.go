package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/stocksync-backend/pkg/enums"
)

// SalesInvoice mirrors one invoice record from the sales portal. The invoice
// number is portal-assigned and is the uniqueness boundary for upserts.
type SalesInvoice struct {
	ID                   uuid.UUID                `gorm:"column:id;type:uuid;primaryKey"`
	InvoiceNumber        string                   `gorm:"column:invoice_number;not null;uniqueIndex"`
	Status               enums.SalesInvoiceStatus `gorm:"column:status;type:sales_invoice_status_enum;not null"`
	CustomerName         string                   `gorm:"column:customer_name"`
	IssuedAt             *time.Time               `gorm:"column:issued_at"`
	TotalAmount          decimal.Decimal          `gorm:"column:total_amount;type:numeric(14,2);not null;default:0"`
	Lines                []SalesInvoiceLine       `gorm:"foreignKey:InvoiceID;constraint:OnDelete:CASCADE"`
	StockProcessed       bool                     `gorm:"column:stock_processed;not null;default:false"`
	StockProcessedAt     *time.Time               `gorm:"column:stock_processed_at"`
	StockProcessingError *string                  `gorm:"column:stock_processing_error"`
	LastSyncedAt         time.Time                `gorm:"column:last_synced_at;not null"`
	CreatedAt            time.Time                `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt            time.Time                `gorm:"column:updated_at;autoUpdateTime"`
}

// SalesInvoiceLine is one resolved line item on a mirrored sales invoice.
type SalesInvoiceLine struct {
	ID        uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	InvoiceID uuid.UUID       `gorm:"column:invoice_id;type:uuid;not null;index"`
	Position  int             `gorm:"column:position;not null"`
	SKU       string          `gorm:"column:sku;not null"`
	Name      string          `gorm:"column:name;not null"`
	Qty       int             `gorm:"column:qty;not null"`
	UnitPrice decimal.Decimal `gorm:"column:unit_price;type:numeric(14,2);not null;default:0"`
	LineTotal decimal.Decimal `gorm:"column:line_total;type:numeric(14,2);not null;default:0"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime"`
}

// HasLines reports whether detail has been backfilled for the invoice.
func (i *SalesInvoice) HasLines() bool {
	return len(i.Lines) > 0
}

package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/stocksync-backend/pkg/enums"
)

// PurchaseOrder mirrors one order record from the purchasing portal. The
// order number is portal-assigned and is the uniqueness boundary for upserts.
type PurchaseOrder struct {
	ID                   uuid.UUID                 `gorm:"column:id;type:uuid;primaryKey"`
	OrderNumber          string                    `gorm:"column:order_number;not null;uniqueIndex"`
	Status               enums.PurchaseOrderStatus `gorm:"column:status;type:purchase_order_status_enum;not null"`
	SupplierName         string                    `gorm:"column:supplier_name"`
	OrderedAt            *time.Time                `gorm:"column:ordered_at"`
	TotalAmount          decimal.Decimal           `gorm:"column:total_amount;type:numeric(14,2);not null;default:0"`
	Lines                []PurchaseOrderLine       `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	StockProcessed       bool                      `gorm:"column:stock_processed;not null;default:false"`
	StockProcessedAt     *time.Time                `gorm:"column:stock_processed_at"`
	StockProcessingError *string                   `gorm:"column:stock_processing_error"`
	LastSyncedAt         time.Time                 `gorm:"column:last_synced_at;not null"`
	CreatedAt            time.Time                 `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt            time.Time                 `gorm:"column:updated_at;autoUpdateTime"`
}

// PurchaseOrderLine is one resolved line item on a mirrored purchase order.
type PurchaseOrderLine struct {
	ID        uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	OrderID   uuid.UUID       `gorm:"column:order_id;type:uuid;not null;index"`
	Position  int             `gorm:"column:position;not null"`
	SKU       string          `gorm:"column:sku;not null"`
	Name      string          `gorm:"column:name;not null"`
	Qty       int             `gorm:"column:qty;not null"`
	UnitPrice decimal.Decimal `gorm:"column:unit_price;type:numeric(14,2);not null;default:0"`
	LineTotal decimal.Decimal `gorm:"column:line_total;type:numeric(14,2);not null;default:0"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime"`
}

// HasLines reports whether detail has been backfilled for the order.
func (o *PurchaseOrder) HasLines() bool {
	return len(o.Lines) > 0
}

package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/stocksync-backend/pkg/enums"
)

// StockMovement records an immutable stock change. Corrections are new
// adjust rows, never edits. The (ref_type, ref_id, line_no) index is the
// exactly-once boundary for movements derived from mirror records.
type StockMovement struct {
	ID        uuid.UUID             `gorm:"column:id;type:uuid;primaryKey"`
	SKU       string                `gorm:"column:sku;not null;index"`
	Type      enums.MovementType    `gorm:"column:type;type:movement_type_enum;not null"`
	Qty       int                   `gorm:"column:qty;not null"`
	RefType   enums.MovementRefType `gorm:"column:ref_type;type:movement_ref_type_enum;not null;uniqueIndex:idx_stock_movements_ref"`
	RefID     uuid.UUID             `gorm:"column:ref_id;type:uuid;not null;uniqueIndex:idx_stock_movements_ref"`
	LineNo    int                   `gorm:"column:line_no;not null;uniqueIndex:idx_stock_movements_ref"`
	Source    string                `gorm:"column:source;not null"`
	Note      string                `gorm:"column:note"`
	CreatedAt time.Time             `gorm:"column:created_at;autoCreateTime;index"`
}

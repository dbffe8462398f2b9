package models

import "time"

// StockSummary is the materialized current-quantity view per SKU, derived
// from the movement ledger. Only the stock aggregator mutates it.
type StockSummary struct {
	SKU               string     `gorm:"column:sku;primaryKey"`
	AvailableQty      int        `gorm:"column:available_qty;not null;default:0"`
	ReservedQty       int        `gorm:"column:reserved_qty;not null;default:0"`
	TotalIn           int        `gorm:"column:total_in;not null;default:0"`
	TotalOut          int        `gorm:"column:total_out;not null;default:0"`
	LowStockThreshold int        `gorm:"column:low_stock_threshold;not null;default:0"`
	LastMovementAt    *time.Time `gorm:"column:last_movement_at"`
	UpdatedAt         time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

// BelowThreshold reports whether available stock has dropped under the
// configured low-stock threshold.
func (s *StockSummary) BelowThreshold() bool {
	return s.LowStockThreshold > 0 && s.AvailableQty < s.LowStockThreshold
}

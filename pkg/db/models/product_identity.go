package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// TempSKUPrefix marks placeholder identities created for portal item names
// that could not be resolved. The prefix is part of the persisted contract:
// the unmapped-items query keys on it.
const TempSKUPrefix = "TEMP-"

// ProductIdentity is the canonical identity for one stock-keeping unit,
// together with the portal spellings that have been observed for it.
type ProductIdentity struct {
	ID        uuid.UUID      `gorm:"column:id;type:uuid;primaryKey"`
	SKU       string         `gorm:"column:sku;not null;uniqueIndex"`
	Name      string         `gorm:"column:name;not null"`
	Aliases   pq.StringArray `gorm:"column:aliases;type:text[]"`
	Temporary bool           `gorm:"column:temporary;not null;default:false"`
	Active    bool           `gorm:"column:active;not null;default:true"`
	CreatedAt time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}

// HasAlias reports whether the identity already knows the given spelling,
// ignoring case.
func (p *ProductIdentity) HasAlias(alias string) bool {
	for _, known := range p.Aliases {
		if strings.EqualFold(known, alias) {
			return true
		}
	}
	return false
}

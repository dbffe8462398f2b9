package enums

import (
	"fmt"
	"strings"
)

// PurchaseOrderStatus maps to the purchase_order_status_enum enum in Postgres.
// The set mirrors the lifecycle the purchasing portal exposes.
type PurchaseOrderStatus string

const (
	PurchaseOrderStatusPending    PurchaseOrderStatus = "pending"
	PurchaseOrderStatusProcessing PurchaseOrderStatus = "processing"
	PurchaseOrderStatusComplete   PurchaseOrderStatus = "complete"
	PurchaseOrderStatusCancelled  PurchaseOrderStatus = "cancelled"
)

var validPurchaseOrderStatuses = []PurchaseOrderStatus{
	PurchaseOrderStatusPending,
	PurchaseOrderStatusProcessing,
	PurchaseOrderStatusComplete,
	PurchaseOrderStatusCancelled,
}

// IsValid reports whether the value matches the canonical status enum.
func (s PurchaseOrderStatus) IsValid() bool {
	for _, candidate := range validPurchaseOrderStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// StockEligible reports whether orders in this status may be turned into
// ledger movements.
func (s PurchaseOrderStatus) StockEligible() bool {
	return s == PurchaseOrderStatusComplete
}

// StockEligiblePurchaseOrderStatuses lists the statuses StockEligible
// accepts, for use in eligibility queries.
func StockEligiblePurchaseOrderStatuses() []string {
	var eligible []string
	for _, candidate := range validPurchaseOrderStatuses {
		if candidate.StockEligible() {
			eligible = append(eligible, string(candidate))
		}
	}
	return eligible
}

// ParsePurchaseOrderStatus normalizes portal-supplied status strings. Unknown
// values fall back to pending so a new portal status never breaks list sync.
func ParsePurchaseOrderStatus(value string) (PurchaseOrderStatus, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	switch normalized {
	case "canceled":
		return PurchaseOrderStatusCancelled, nil
	case "completed", "received":
		return PurchaseOrderStatusComplete, nil
	}
	for _, candidate := range validPurchaseOrderStatuses {
		if string(candidate) == normalized {
			return candidate, nil
		}
	}
	return PurchaseOrderStatusPending, fmt.Errorf("unknown purchase order status %q", value)
}

package enums

import (
	"fmt"
	"strings"
)

// SalesInvoiceStatus maps to the sales_invoice_status_enum enum in Postgres.
type SalesInvoiceStatus string

const (
	SalesInvoiceStatusDraft     SalesInvoiceStatus = "draft"
	SalesInvoiceStatusOpen      SalesInvoiceStatus = "open"
	SalesInvoiceStatusClosed    SalesInvoiceStatus = "closed"
	SalesInvoiceStatusCompleted SalesInvoiceStatus = "completed"
	SalesInvoiceStatusVoid      SalesInvoiceStatus = "void"
)

var validSalesInvoiceStatuses = []SalesInvoiceStatus{
	SalesInvoiceStatusDraft,
	SalesInvoiceStatusOpen,
	SalesInvoiceStatusClosed,
	SalesInvoiceStatusCompleted,
	SalesInvoiceStatusVoid,
}

// IsValid reports whether the value matches the canonical status enum.
func (s SalesInvoiceStatus) IsValid() bool {
	for _, candidate := range validSalesInvoiceStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// StockEligible reports whether invoices in this status may be turned into
// ledger movements.
func (s SalesInvoiceStatus) StockEligible() bool {
	return s == SalesInvoiceStatusClosed || s == SalesInvoiceStatusCompleted
}

// StockEligibleSalesInvoiceStatuses lists the statuses StockEligible
// accepts, for use in eligibility queries.
func StockEligibleSalesInvoiceStatuses() []string {
	var eligible []string
	for _, candidate := range validSalesInvoiceStatuses {
		if candidate.StockEligible() {
			eligible = append(eligible, string(candidate))
		}
	}
	return eligible
}

// ParseSalesInvoiceStatus normalizes portal-supplied status strings. Unknown
// values fall back to draft so a new portal status never breaks list sync.
func ParseSalesInvoiceStatus(value string) (SalesInvoiceStatus, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	switch normalized {
	case "paid", "settled":
		return SalesInvoiceStatusCompleted, nil
	case "voided", "cancelled", "canceled":
		return SalesInvoiceStatusVoid, nil
	}
	for _, candidate := range validSalesInvoiceStatuses {
		if string(candidate) == normalized {
			return candidate, nil
		}
	}
	return SalesInvoiceStatusDraft, fmt.Errorf("unknown sales invoice status %q", value)
}

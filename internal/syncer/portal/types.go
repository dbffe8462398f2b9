package portal

import (
	"time"

	"github.com/shopspring/decimal"
)

// Direction orders a list fetch.
type Direction string

const (
	// NewestFirst is the default fetch order.
	NewestFirst Direction = "desc"
	OldestFirst Direction = "asc"
)

// RawLineItem is one unresolved line item as the portal reports it. Code
// and name are portal spellings; resolution to a SKU happens downstream.
type RawLineItem struct {
	Code      string          `json:"code"`
	Name      string          `json:"name"`
	Qty       int             `json:"qty"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	LineTotal decimal.Decimal `json:"line_total"`
}

// RawOrder is one purchase order as listed by the purchasing portal.
type RawOrder struct {
	Number    string          `json:"number"`
	Status    string          `json:"status"`
	Supplier  string          `json:"supplier"`
	OrderedAt *time.Time      `json:"ordered_at"`
	Total     decimal.Decimal `json:"total"`
}

// RawOrderDetail carries the full line items for one purchase order.
type RawOrderDetail struct {
	Number string          `json:"number"`
	Lines  []RawLineItem   `json:"line_items"`
	Total  decimal.Decimal `json:"total"`
}

// RawInvoice is one invoice as listed by the sales portal.
type RawInvoice struct {
	Number   string          `json:"number"`
	Status   string          `json:"status"`
	Customer string          `json:"customer"`
	IssuedAt *time.Time      `json:"issued_at"`
	Total    decimal.Decimal `json:"total"`
}

// RawInvoiceDetail carries the full line items for one invoice.
type RawInvoiceDetail struct {
	Number string          `json:"number"`
	Lines  []RawLineItem   `json:"line_items"`
	Total  decimal.Decimal `json:"total"`
}

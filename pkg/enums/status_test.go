package enums

import "testing"

func TestStockEligiblePurchaseOrderStatuses(t *testing.T) {
	eligible := StockEligiblePurchaseOrderStatuses()
	if len(eligible) != 1 || eligible[0] != string(PurchaseOrderStatusComplete) {
		t.Fatalf("expected only complete orders to be eligible, got %v", eligible)
	}
	for _, status := range eligible {
		if !PurchaseOrderStatus(status).StockEligible() {
			t.Fatalf("listed status %q is not eligible", status)
		}
	}
}

func TestStockEligibleSalesInvoiceStatuses(t *testing.T) {
	eligible := StockEligibleSalesInvoiceStatuses()
	if len(eligible) != 2 {
		t.Fatalf("expected closed and completed invoices to be eligible, got %v", eligible)
	}
	for _, status := range eligible {
		if !SalesInvoiceStatus(status).StockEligible() {
			t.Fatalf("listed status %q is not eligible", status)
		}
	}
}

package portal

import (
	"context"
	"net/url"

	"github.com/angelmondragon/stocksync-backend/pkg/config"
)

// InvoiceFetcher is the adapter contract for the sales portal.
type InvoiceFetcher interface {
	FetchList(ctx context.Context, limit int, direction Direction) ([]RawInvoice, error)
	FetchDetail(ctx context.Context, number string) (*RawInvoiceDetail, error)
}

// SalesClient fetches invoices over the portal's JSON API.
type SalesClient struct {
	client *client
}

// NewSalesClient builds the sales portal adapter.
func NewSalesClient(cfg config.PortalConfig) (*SalesClient, error) {
	c, err := newClient(cfg)
	if err != nil {
		return nil, err
	}
	return &SalesClient{client: c}, nil
}

func (s *SalesClient) FetchList(ctx context.Context, limit int, direction Direction) ([]RawInvoice, error) {
	var payload struct {
		Invoices []RawInvoice `json:"invoices"`
	}
	if err := s.client.getJSON(ctx, "/api/v1/invoices", listQuery(limit, direction), &payload); err != nil {
		return nil, err
	}
	return payload.Invoices, nil
}

func (s *SalesClient) FetchDetail(ctx context.Context, number string) (*RawInvoiceDetail, error) {
	var payload struct {
		Invoice RawInvoiceDetail `json:"invoice"`
	}
	path := "/api/v1/invoices/" + url.PathEscape(number)
	if err := s.client.getJSON(ctx, path, nil, &payload); err != nil {
		return nil, err
	}
	return &payload.Invoice, nil
}

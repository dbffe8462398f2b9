package portal

import (
	"context"
	"net/url"

	"github.com/angelmondragon/stocksync-backend/pkg/config"
)

// OrderFetcher is the adapter contract for the purchasing portal.
type OrderFetcher interface {
	FetchList(ctx context.Context, limit int, direction Direction) ([]RawOrder, error)
	FetchDetail(ctx context.Context, number string) (*RawOrderDetail, error)
}

// PurchaseClient fetches purchase orders over the portal's JSON API.
type PurchaseClient struct {
	client *client
}

// NewPurchaseClient builds the purchasing portal adapter.
func NewPurchaseClient(cfg config.PortalConfig) (*PurchaseClient, error) {
	c, err := newClient(cfg)
	if err != nil {
		return nil, err
	}
	return &PurchaseClient{client: c}, nil
}

func (p *PurchaseClient) FetchList(ctx context.Context, limit int, direction Direction) ([]RawOrder, error) {
	var payload struct {
		Orders []RawOrder `json:"orders"`
	}
	if err := p.client.getJSON(ctx, "/api/v1/orders", listQuery(limit, direction), &payload); err != nil {
		return nil, err
	}
	return payload.Orders, nil
}

func (p *PurchaseClient) FetchDetail(ctx context.Context, number string) (*RawOrderDetail, error) {
	var payload struct {
		Order RawOrderDetail `json:"order"`
	}
	path := "/api/v1/orders/" + url.PathEscape(number)
	if err := p.client.getJSON(ctx, path, nil, &payload); err != nil {
		return nil, err
	}
	return &payload.Order, nil
}

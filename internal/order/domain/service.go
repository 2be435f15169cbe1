package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	productdomain "github.com/smallbiznis/comanda/internal/product/domain"
	tabledomain "github.com/smallbiznis/comanda/internal/table/domain"
)

type Service interface {
	// Submit sends the positive delta between the table's stored cart and the
	// given cart to the kitchen, one order per zone.
	Submit(ctx context.Context, req SubmitRequest) (*SubmitResult, error)
	StartCooking(ctx context.Context, id string) (*Response, error)
	MarkReady(ctx context.Context, id string) (*Response, error)
	RevertToKitchen(ctx context.Context, id string) (*Response, error)
	ListForDisplay(ctx context.Context, zone string) ([]Response, error)
	ListByTable(ctx context.Context, tableID string) ([]Response, error)
	// PendingDelta reports what Submit would send now without writing.
	PendingDelta(ctx context.Context, req PendingDeltaRequest) ([]DeltaResponse, error)
	CashierBoard(ctx context.Context) ([]BoardEntry, error)
}

type SubmitRequest struct {
	TableID         string                          `json:"-"`
	ExpectedVersion int64                           `json:"version"`
	Cart            []productdomain.CartRequestLine `json:"cart"`
	// Note nil keeps the stored note.
	Note *string `json:"note"`
}

type SubmitResult struct {
	NoOp   bool                 `json:"no_op"`
	Orders []Response           `json:"orders"`
	Table  tabledomain.Response `json:"table"`
}

type PendingDeltaRequest struct {
	TableID string                          `json:"-"`
	Cart    []productdomain.CartRequestLine `json:"cart"`
}

type DeltaResponse struct {
	ProductID string  `json:"product_id"`
	Name      string  `json:"name"`
	Quantity  int     `json:"quantity"`
	ZoneID    *string `json:"zone_id,omitempty"`
}

func NewDeltaResponse(d DeltaItem) DeltaResponse {
	resp := DeltaResponse{
		ProductID: snowflake.ID(d.ProductID).String(),
		Name:      d.Name,
		Quantity:  d.Quantity,
	}
	if d.ZoneID != nil {
		zone := snowflake.ID(*d.ZoneID).String()
		resp.ZoneID = &zone
	}
	return resp
}

type ItemResponse struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
}

type Response struct {
	ID           string         `json:"id"`
	TableID      string         `json:"table_id"`
	TableNumber  string         `json:"table_number"`
	Zone         string         `json:"zone"`
	Items        []ItemResponse `json:"items"`
	Status       Status         `json:"status"`
	Note         string         `json:"note"`
	Delayed      bool           `json:"delayed"`
	CreatedAt    time.Time      `json:"created_at"`
	DispatchedAt *time.Time     `json:"dispatched_at,omitempty"`
}

// NewResponse renders an order. Items that fail to decode render empty.
func NewResponse(o *Order) Response {
	resp := Response{
		ID:           snowflake.ID(o.ID).String(),
		TableID:      snowflake.ID(o.TableID).String(),
		TableNumber:  o.TableNumber,
		Zone:         ZoneKey(o.ZoneID),
		Items:        []ItemResponse{},
		Status:       o.Status,
		Note:         o.Note,
		CreatedAt:    o.CreatedAt,
		DispatchedAt: o.DispatchedAt,
	}
	items, err := o.DecodeItems()
	if err != nil {
		return resp
	}
	for _, item := range items {
		resp.Items = append(resp.Items, ItemResponse{
			ProductID: snowflake.ID(item.ProductID).String(),
			Name:      item.Name,
			Quantity:  item.Quantity,
		})
	}
	return resp
}

type BoardEntry struct {
	Table       tabledomain.Response `json:"table"`
	Label       BoardLabel           `json:"label"`
	OpenOrders  int                  `json:"open_orders"`
	ReadyOrders int                  `json:"ready_orders"`
}

var (
	ErrInvalidID         = errors.New("invalid_order_id")
	ErrNotFound          = errors.New("order_not_found")
	ErrNotReady          = errors.New("order_not_ready")
	ErrInvalidTransition = errors.New("invalid_order_transition")
	ErrInvalidVersion    = errors.New("invalid_version")
)

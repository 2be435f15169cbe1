package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Response, error)
	OpenExternal(ctx context.Context, req OpenExternalRequest) (*Response, error)
	List(ctx context.Context, req ListRequest) ([]Response, error)
	Get(ctx context.Context, id string) (*Response, error)
	Delete(ctx context.Context, id string) error
	SuggestNumber(ctx context.Context) (string, error)
}

type CreateRequest struct {
	Number string `json:"number"`
}

type OpenExternalRequest struct {
	Type Type `json:"type"`
}

type ListRequest struct {
	Status   string
	Type     string
	Occupied bool
}

type Response struct {
	ID              string             `json:"id"`
	Number          string             `json:"number"`
	Type            Type               `json:"type"`
	Status          Status             `json:"status"`
	CurrentTotalUSD decimal.Decimal    `json:"current_total_usd"`
	StartTime       *time.Time         `json:"start_time,omitempty"`
	Cart            []CartLineResponse `json:"cart"`
	OrderNote       string             `json:"order_note"`
	Version         int64              `json:"version"`
	CreatedAt       time.Time          `json:"created_at"`
	UpdatedAt       time.Time          `json:"updated_at"`
}

type CartLineResponse struct {
	ProductID string          `json:"product_id"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
	ZoneID    *string         `json:"zone_id,omitempty"`
}

// NewResponse renders a table for API consumers. A snapshot that fails to
// decode is reported as an empty cart.
func NewResponse(t *Table) Response {
	resp := Response{
		ID:              snowflake.ID(t.ID).String(),
		Number:          t.Number,
		Type:            t.Type,
		Status:          t.Status,
		CurrentTotalUSD: t.CurrentTotalUSD,
		StartTime:       t.StartTime,
		Cart:            []CartLineResponse{},
		OrderNote:       t.OrderNote,
		Version:         t.Version,
		CreatedAt:       t.CreatedAt,
		UpdatedAt:       t.UpdatedAt,
	}
	lines, err := t.Cart()
	if err != nil {
		return resp
	}
	for _, line := range lines {
		item := CartLineResponse{
			ProductID: snowflake.ID(line.ProductID).String(),
			Name:      line.Name,
			Price:     line.Price,
			Quantity:  line.Quantity,
		}
		if line.ZoneID != nil {
			zone := snowflake.ID(*line.ZoneID).String()
			item.ZoneID = &zone
		}
		resp.Cart = append(resp.Cart, item)
	}
	return resp
}

var (
	ErrInvalidID       = errors.New("invalid_table_id")
	ErrInvalidNumber   = errors.New("invalid_table_number")
	ErrInvalidType     = errors.New("invalid_table_type")
	ErrInvalidStatus   = errors.New("invalid_table_status")
	ErrDuplicateNumber = errors.New("duplicate_table_number")
	ErrNotAvailable    = errors.New("table_not_available")
	ErrNotFound        = errors.New("table_not_found")
	ErrStaleVersion    = errors.New("stale_version")
)

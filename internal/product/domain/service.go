package domain

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Response, error)
	List(ctx context.Context, req ListRequest) ([]Response, error)
	Get(ctx context.Context, id string) (*Response, error)
	Update(ctx context.Context, req UpdateRequest) (*Response, error)
	Delete(ctx context.Context, id string) error
	SetStock(ctx context.Context, req StockRequest) (*Response, error)
	// Resolve loads the products of a cart. Stock is checked by the caller
	// against the quantity actually being added.
	Resolve(ctx context.Context, lines []CartRequestLine) ([]Product, error)
}

type ListRequest struct {
	Category  string
	ZoneID    *int64
	Available *bool
	LowStock  bool
	SortBy    string
	OrderBy   string
}

type CreateRequest struct {
	Name      string  `json:"name"`
	Category  string  `json:"category"`
	Price     string  `json:"price"`
	ZoneID    *string `json:"zone_id"`
	Stock     *int    `json:"stock"`
	MinStock  int     `json:"min_stock"`
	Available *bool   `json:"available"`
}

type UpdateRequest struct {
	ID        string  `json:"-"`
	Name      *string `json:"name"`
	Category  *string `json:"category"`
	Price     *string `json:"price"`
	ZoneID    *string `json:"zone_id"`
	MinStock  *int    `json:"min_stock"`
	Available *bool   `json:"available"`
}

// StockRequest sets the stock to an absolute value or adjusts it by a delta.
type StockRequest struct {
	ID    string `json:"-"`
	Stock *int   `json:"stock"`
	Delta *int   `json:"delta"`
}

type CartRequestLine struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type Response struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Category  string          `json:"category"`
	Price     decimal.Decimal `json:"price"`
	ZoneID    *string         `json:"zone_id,omitempty"`
	Stock     int             `json:"stock"`
	MinStock  int             `json:"min_stock"`
	Tracked   bool            `json:"tracked"`
	LowStock  bool            `json:"low_stock"`
	Available bool            `json:"available"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

var (
	ErrInvalidID       = errors.New("invalid_product_id")
	ErrInvalidName     = errors.New("invalid_name")
	ErrInvalidPrice    = errors.New("invalid_price")
	ErrInvalidStock    = errors.New("invalid_stock")
	ErrInvalidZone     = errors.New("invalid_zone")
	ErrInvalidQuantity = errors.New("invalid_quantity")
	ErrOutOfStock      = errors.New("out_of_stock")
	ErrNotFound        = errors.New("product_not_found")
)

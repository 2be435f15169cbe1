package domain

import (
	"context"
	"errors"
	"time"
)

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Response, error)
	List(ctx context.Context) ([]Response, error)
	Get(ctx context.Context, id string) (*Response, error)
	Delete(ctx context.Context, id string) error
	// Resolve maps a display's zone parameter (id or code) to a zone id. An
	// empty parameter resolves to nil, the general kitchen.
	Resolve(ctx context.Context, ref string) (*int64, error)
}

type CreateRequest struct {
	Name string `json:"name"`
}

type Response struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Code      string    `json:"code"`
	CreatedAt time.Time `json:"created_at"`
}

var (
	ErrInvalidID   = errors.New("invalid_zone_id")
	ErrInvalidName = errors.New("invalid_zone_name")
	ErrDuplicate   = errors.New("duplicate_zone")
	ErrNotFound    = errors.New("zone_not_found")
)

package domain

import (
	"context"
	"time"

	"gorm.io/gorm"
)

type ListFilter struct {
	From   *time.Time
	To     *time.Time
	Status Status
	// After continues a listing below the (created_at, id) of the last row seen.
	After *Position
	// Limit of zero returns every matching row.
	Limit int
}

type Position struct {
	CreatedAt time.Time
	ID        int64
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, sale *Sale) error
	FindByID(ctx context.Context, db *gorm.DB, id int64) (*Sale, error)
	// List returns sales newest first.
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]Sale, error)
	Delete(ctx context.Context, db *gorm.DB, id int64) error
	CloseOpen(ctx context.Context, db *gorm.DB, now time.Time) (int64, error)
	DeleteAll(ctx context.Context, db *gorm.DB) error
}

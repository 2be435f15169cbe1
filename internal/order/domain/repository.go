package domain

import (
	"context"
	"time"

	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, order *Order) error
	FindByID(ctx context.Context, db *gorm.DB, id int64) (*Order, error)
	ListByTable(ctx context.Context, db *gorm.DB, tableID int64) ([]Order, error)
	// ListAll returns every order, oldest first.
	ListAll(ctx context.Context, db *gorm.DB) ([]Order, error)
	// ListOpenCreatedBetween returns non-ready orders created in (from, to].
	ListOpenCreatedBetween(ctx context.Context, db *gorm.DB, from, to time.Time) ([]Order, error)
	UpdateStatus(ctx context.Context, db *gorm.DB, id int64, status Status, dispatchedAt *time.Time, now time.Time) error
	// UpdateNoteForOpen replicates a note onto every non-ready order of a table.
	UpdateNoteForOpen(ctx context.Context, db *gorm.DB, tableID int64, note string, now time.Time) error
	DeleteByTable(ctx context.Context, db *gorm.DB, tableID int64) error
	DeleteAll(ctx context.Context, db *gorm.DB) error
}

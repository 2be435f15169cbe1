package domain

import (
	"context"
	"time"

	"gorm.io/gorm"
)

type ListFilter struct {
	Statuses []Status
	Type     Type
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, table *Table) error
	FindByID(ctx context.Context, db *gorm.DB, id int64) (*Table, error)
	FindByNumber(ctx context.Context, db *gorm.DB, number string) (*Table, error)
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]Table, error)
	ListNumbers(ctx context.Context, db *gorm.DB) ([]string, error)

	// UpdateSnapshot writes the cart-derived fields when the stored version
	// still equals expectedVersion, and bumps the version.
	UpdateSnapshot(ctx context.Context, db *gorm.DB, table *Table, expectedVersion int64) error
	// UpdateStatus writes a derived status without touching the version.
	UpdateStatus(ctx context.Context, db *gorm.DB, id int64, status Status, now time.Time) error
	Release(ctx context.Context, db *gorm.DB, id int64, expectedVersion int64, now time.Time) error
	ReleaseAll(ctx context.Context, db *gorm.DB, now time.Time) error
	Delete(ctx context.Context, db *gorm.DB, id int64, expectedVersion int64) error
	DeleteAll(ctx context.Context, db *gorm.DB) error
	// DeleteExternal removes every takeaway and delivery tab.
	DeleteExternal(ctx context.Context, db *gorm.DB) error
}

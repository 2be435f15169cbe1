package domain

import (
	"context"

	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, zone *Zone) error
	FindByID(ctx context.Context, db *gorm.DB, id int64) (*Zone, error)
	FindByCode(ctx context.Context, db *gorm.DB, code string) (*Zone, error)
	FindAll(ctx context.Context, db *gorm.DB) ([]Zone, error)
	Delete(ctx context.Context, db *gorm.DB, id int64) error
	DeleteAll(ctx context.Context, db *gorm.DB) error
	// UnassignProducts moves every product of the zone back to the general kitchen.
	UnassignProducts(ctx context.Context, db *gorm.DB, id int64) error
}

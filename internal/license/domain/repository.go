package domain

import (
	"context"

	"gorm.io/gorm"
)

type Repository interface {
	// Current returns the most recently activated license.
	Current(ctx context.Context, db *gorm.DB) (*License, error)
	Insert(ctx context.Context, db *gorm.DB, l *License) error
	DeleteAll(ctx context.Context, db *gorm.DB) error
}

package domain

import (
	"context"
	"time"

	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, entry *AuditLog) error
	// List returns entries newest first.
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]AuditLog, error)
}

type ListFilter struct {
	Action     string
	TargetType string
	TargetID   string
	From       *time.Time
	To         *time.Time
	Before     *Position
	// Limit of zero returns every matching row.
	Limit int
}

type Position struct {
	CreatedAt time.Time
	ID        int64
}

package domain

import (
	"context"
	"time"

	"gorm.io/gorm"
)

type Repository interface {
	Count(ctx context.Context, db *gorm.DB) (int64, error)
	Insert(ctx context.Context, db *gorm.DB, user *User) error
	FindByID(ctx context.Context, db *gorm.DB, id int64) (*User, error)
	FindByUsername(ctx context.Context, db *gorm.DB, username string) (*User, error)
	List(ctx context.Context, db *gorm.DB) ([]User, error)
	Update(ctx context.Context, db *gorm.DB, user *User) error
	Delete(ctx context.Context, db *gorm.DB, id int64) error
	DeleteAll(ctx context.Context, db *gorm.DB) error
}

type SessionRepository interface {
	Insert(ctx context.Context, db *gorm.DB, session *Session) error
	FindByTokenHash(ctx context.Context, db *gorm.DB, tokenHash string) (*Session, error)
	Touch(ctx context.Context, db *gorm.DB, id int64, lastSeen time.Time) error
	Revoke(ctx context.Context, db *gorm.DB, id int64, revokedAt time.Time) error
	RevokeForUser(ctx context.Context, db *gorm.DB, userID int64, revokedAt time.Time) error
	DeleteAll(ctx context.Context, db *gorm.DB) error
	// DeleteExpired removes sessions that expired or were revoked before cutoff.
	DeleteExpired(ctx context.Context, db *gorm.DB, cutoff time.Time) (int64, error)
}

package repository

import (
	"context"

	"github.com/smallbiznis/comanda/internal/license/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Current(ctx context.Context, db *gorm.DB) (*domain.License, error) {
	var l domain.License
	err := db.WithContext(ctx).Raw(
		`SELECT id, license_key, lifetime, activated_at, expires_at FROM licenses
		 ORDER BY activated_at DESC, id DESC LIMIT 1`,
	).Scan(&l).Error
	if err != nil {
		return nil, err
	}
	if l.ID == 0 {
		return nil, nil
	}
	return &l, nil
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, l *domain.License) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO licenses (id, license_key, lifetime, activated_at, expires_at) VALUES (?, ?, ?, ?, ?)`,
		l.ID,
		l.Key,
		l.Lifetime,
		l.ActivatedAt,
		l.ExpiresAt,
	).Error
}

func (r *repo) DeleteAll(ctx context.Context, db *gorm.DB) error {
	return db.WithContext(ctx).Exec(`DELETE FROM licenses`).Error
}

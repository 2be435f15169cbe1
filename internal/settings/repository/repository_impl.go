package repository

import (
	"context"

	"github.com/smallbiznis/comanda/internal/settings/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Get(ctx context.Context, db *gorm.DB) (*domain.Settings, error) {
	var s domain.Settings
	err := db.WithContext(ctx).Raw(
		`SELECT id, exchange_rate, iva, igtf, iva_enabled, igtf_enabled, updated_at
		 FROM settings WHERE id = ?`,
		domain.SingletonID,
	).Scan(&s).Error
	if err != nil {
		return nil, err
	}
	if s.ID == 0 {
		return nil, nil
	}
	return &s, nil
}

func (r *repo) Upsert(ctx context.Context, db *gorm.DB, s *domain.Settings) error {
	s.ID = domain.SingletonID
	return db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"exchange_rate", "iva", "igtf", "iva_enabled", "igtf_enabled", "updated_at"}),
	}).Create(s).Error
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB) error {
	return db.WithContext(ctx).Exec(`DELETE FROM settings`).Error
}

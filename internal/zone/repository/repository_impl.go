package repository

import (
	"context"

	"github.com/smallbiznis/comanda/internal/zone/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, zone *domain.Zone) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO zones (id, name, code, created_at) VALUES (?, ?, ?, ?)`,
		zone.ID,
		zone.Name,
		zone.Code,
		zone.CreatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id int64) (*domain.Zone, error) {
	var z domain.Zone
	err := db.WithContext(ctx).Raw(
		`SELECT id, name, code, created_at FROM zones WHERE id = ?`,
		id,
	).Scan(&z).Error
	if err != nil {
		return nil, err
	}
	if z.ID == 0 {
		return nil, nil
	}
	return &z, nil
}

func (r *repo) FindByCode(ctx context.Context, db *gorm.DB, code string) (*domain.Zone, error) {
	var z domain.Zone
	err := db.WithContext(ctx).Raw(
		`SELECT id, name, code, created_at FROM zones WHERE code = ?`,
		code,
	).Scan(&z).Error
	if err != nil {
		return nil, err
	}
	if z.ID == 0 {
		return nil, nil
	}
	return &z, nil
}

func (r *repo) FindAll(ctx context.Context, db *gorm.DB) ([]domain.Zone, error) {
	var items []domain.Zone
	err := db.WithContext(ctx).Raw(
		`SELECT id, name, code, created_at FROM zones ORDER BY name ASC`,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, id int64) error {
	return db.WithContext(ctx).Exec(`DELETE FROM zones WHERE id = ?`, id).Error
}

func (r *repo) DeleteAll(ctx context.Context, db *gorm.DB) error {
	return db.WithContext(ctx).Exec(`DELETE FROM zones`).Error
}

func (r *repo) UnassignProducts(ctx context.Context, db *gorm.DB, id int64) error {
	return db.WithContext(ctx).Exec(`UPDATE products SET zone_id = NULL WHERE zone_id = ?`, id).Error
}

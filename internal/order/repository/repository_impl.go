package repository

import (
	"context"
	"time"

	"github.com/smallbiznis/comanda/internal/order/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

const selectColumns = `SELECT id, table_id, table_number, zone_id, items, status, note, created_at, updated_at, dispatched_at FROM orders`

func (r *repo) Insert(ctx context.Context, db *gorm.DB, order *domain.Order) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO orders (id, table_id, table_number, zone_id, items, status, note, created_at, updated_at, dispatched_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		order.ID,
		order.TableID,
		order.TableNumber,
		order.ZoneID,
		order.Items,
		order.Status,
		order.Note,
		order.CreatedAt,
		order.UpdatedAt,
		order.DispatchedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id int64) (*domain.Order, error) {
	var o domain.Order
	err := db.WithContext(ctx).Raw(selectColumns+` WHERE id = ?`, id).Scan(&o).Error
	if err != nil {
		return nil, err
	}
	if o.ID == 0 {
		return nil, nil
	}
	return &o, nil
}

func (r *repo) ListByTable(ctx context.Context, db *gorm.DB, tableID int64) ([]domain.Order, error) {
	var items []domain.Order
	err := db.WithContext(ctx).Raw(selectColumns+` WHERE table_id = ? ORDER BY created_at ASC, id ASC`, tableID).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) ListAll(ctx context.Context, db *gorm.DB) ([]domain.Order, error) {
	var items []domain.Order
	err := db.WithContext(ctx).Raw(selectColumns + ` ORDER BY created_at ASC, id ASC`).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) ListOpenCreatedBetween(ctx context.Context, db *gorm.DB, from, to time.Time) ([]domain.Order, error) {
	var items []domain.Order
	err := db.WithContext(ctx).Raw(
		selectColumns+` WHERE status <> ? AND created_at > ? AND created_at <= ? ORDER BY created_at ASC, id ASC`,
		domain.StatusReady,
		from,
		to,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) UpdateStatus(ctx context.Context, db *gorm.DB, id int64, status domain.Status, dispatchedAt *time.Time, now time.Time) error {
	res := db.WithContext(ctx).Exec(
		`UPDATE orders SET status = ?, dispatched_at = ?, updated_at = ? WHERE id = ?`,
		status,
		dispatchedAt,
		now,
		id,
	)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *repo) UpdateNoteForOpen(ctx context.Context, db *gorm.DB, tableID int64, note string, now time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE orders SET note = ?, updated_at = ? WHERE table_id = ? AND status <> ?`,
		note,
		now,
		tableID,
		domain.StatusReady,
	).Error
}

func (r *repo) DeleteByTable(ctx context.Context, db *gorm.DB, tableID int64) error {
	return db.WithContext(ctx).Exec(`DELETE FROM orders WHERE table_id = ?`, tableID).Error
}

func (r *repo) DeleteAll(ctx context.Context, db *gorm.DB) error {
	return db.WithContext(ctx).Exec(`DELETE FROM orders`).Error
}

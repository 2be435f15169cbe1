package repository

import (
	"context"
	"time"

	"github.com/smallbiznis/comanda/internal/table/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

const selectColumns = `SELECT id, number, type, status, current_total_usd, start_time, order_data, order_note, version, created_at, updated_at FROM tables`

func (r *repo) Insert(ctx context.Context, db *gorm.DB, table *domain.Table) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO tables (id, number, type, status, current_total_usd, start_time, order_data, order_note, version, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		table.ID,
		table.Number,
		table.Type,
		table.Status,
		table.CurrentTotalUSD,
		table.StartTime,
		table.OrderData,
		table.OrderNote,
		table.Version,
		table.CreatedAt,
		table.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id int64) (*domain.Table, error) {
	var t domain.Table
	err := db.WithContext(ctx).Raw(selectColumns+` WHERE id = ?`, id).Scan(&t).Error
	if err != nil {
		return nil, err
	}
	if t.ID == 0 {
		return nil, nil
	}
	return &t, nil
}

func (r *repo) FindByNumber(ctx context.Context, db *gorm.DB, number string) (*domain.Table, error) {
	var t domain.Table
	err := db.WithContext(ctx).Raw(selectColumns+` WHERE number = ?`, number).Scan(&t).Error
	if err != nil {
		return nil, err
	}
	if t.ID == 0 {
		return nil, nil
	}
	return &t, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter) ([]domain.Table, error) {
	var items []domain.Table
	stmt := db.WithContext(ctx).Model(&domain.Table{})
	if len(filter.Statuses) > 0 {
		stmt = stmt.Where("status IN ?", filter.Statuses)
	}
	if filter.Type != "" {
		stmt = stmt.Where("type = ?", filter.Type)
	}
	if err := stmt.Order("type ASC").Order("number ASC").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) ListNumbers(ctx context.Context, db *gorm.DB) ([]string, error) {
	var numbers []string
	err := db.WithContext(ctx).Raw(`SELECT number FROM tables ORDER BY number ASC`).Scan(&numbers).Error
	if err != nil {
		return nil, err
	}
	return numbers, nil
}

func (r *repo) UpdateSnapshot(ctx context.Context, db *gorm.DB, table *domain.Table, expectedVersion int64) error {
	if table == nil {
		return gorm.ErrInvalidData
	}
	res := db.WithContext(ctx).Exec(
		`UPDATE tables
		 SET status = ?, current_total_usd = ?, start_time = ?, order_data = ?, order_note = ?, version = version + 1, updated_at = ?
		 WHERE id = ? AND version = ?`,
		table.Status,
		table.CurrentTotalUSD,
		table.StartTime,
		table.OrderData,
		table.OrderNote,
		table.UpdatedAt,
		table.ID,
		expectedVersion,
	)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrStaleVersion
	}
	table.Version = expectedVersion + 1
	return nil
}

func (r *repo) UpdateStatus(ctx context.Context, db *gorm.DB, id int64, status domain.Status, now time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE tables SET status = ?, updated_at = ? WHERE id = ?`,
		status,
		now,
		id,
	).Error
}

func (r *repo) Release(ctx context.Context, db *gorm.DB, id int64, expectedVersion int64, now time.Time) error {
	res := db.WithContext(ctx).Exec(
		`UPDATE tables
		 SET status = ?, current_total_usd = 0, start_time = NULL, order_data = NULL, order_note = '', version = version + 1, updated_at = ?
		 WHERE id = ? AND version = ?`,
		domain.StatusAvailable,
		now,
		id,
		expectedVersion,
	)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrStaleVersion
	}
	return nil
}

func (r *repo) ReleaseAll(ctx context.Context, db *gorm.DB, now time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE tables
		 SET status = ?, current_total_usd = 0, start_time = NULL, order_data = NULL, order_note = '', version = version + 1, updated_at = ?`,
		domain.StatusAvailable,
		now,
	).Error
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, id int64, expectedVersion int64) error {
	res := db.WithContext(ctx).Exec(`DELETE FROM tables WHERE id = ? AND version = ?`, id, expectedVersion)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrStaleVersion
	}
	return nil
}

func (r *repo) DeleteAll(ctx context.Context, db *gorm.DB) error {
	return db.WithContext(ctx).Exec(`DELETE FROM tables`).Error
}

func (r *repo) DeleteExternal(ctx context.Context, db *gorm.DB) error {
	return db.WithContext(ctx).Exec(
		`DELETE FROM tables WHERE type IN (?, ?)`,
		domain.TypeTakeaway,
		domain.TypeDelivery,
	).Error
}

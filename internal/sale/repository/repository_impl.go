package repository

import (
	"context"
	"time"

	"github.com/smallbiznis/comanda/internal/sale/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

const selectColumns = `SELECT id, invoice_number, table_id, table_number, table_type, items, subtotal_usd, iva_usd, igtf_usd, total_usd, payments, status, cashier_id, created_at, closed_at FROM sales`

func (r *repo) Insert(ctx context.Context, db *gorm.DB, sale *domain.Sale) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO sales (id, invoice_number, table_id, table_number, table_type, items, subtotal_usd, iva_usd, igtf_usd, total_usd, payments, status, cashier_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sale.ID,
		sale.InvoiceNumber,
		sale.TableID,
		sale.TableNumber,
		sale.TableType,
		sale.Items,
		sale.SubtotalUSD,
		sale.IVAUSD,
		sale.IGTFUSD,
		sale.TotalUSD,
		sale.Payments,
		sale.Status,
		sale.CashierID,
		sale.CreatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id int64) (*domain.Sale, error) {
	var s domain.Sale
	err := db.WithContext(ctx).Raw(selectColumns+` WHERE id = ?`, id).Scan(&s).Error
	if err != nil {
		return nil, err
	}
	if s.ID == 0 {
		return nil, nil
	}
	return &s, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter) ([]domain.Sale, error) {
	var items []domain.Sale
	stmt := db.WithContext(ctx).Model(&domain.Sale{})
	if filter.From != nil {
		stmt = stmt.Where("created_at >= ?", *filter.From)
	}
	if filter.To != nil {
		stmt = stmt.Where("created_at < ?", *filter.To)
	}
	if filter.Status != "" {
		stmt = stmt.Where("status = ?", filter.Status)
	}
	if filter.After != nil {
		stmt = stmt.Where("(created_at < ? OR (created_at = ? AND id < ?))", filter.After.CreatedAt, filter.After.CreatedAt, filter.After.ID)
	}
	if filter.Limit > 0 {
		stmt = stmt.Limit(filter.Limit)
	}
	if err := stmt.Order("created_at DESC").Order("id DESC").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, id int64) error {
	res := db.WithContext(ctx).Exec(`DELETE FROM sales WHERE id = ?`, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *repo) CloseOpen(ctx context.Context, db *gorm.DB, now time.Time) (int64, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE sales SET status = ?, closed_at = ? WHERE status = ?`,
		domain.StatusClosed,
		now,
		domain.StatusOpen,
	)
	return res.RowsAffected, res.Error
}

func (r *repo) DeleteAll(ctx context.Context, db *gorm.DB) error {
	return db.WithContext(ctx).Exec(`DELETE FROM sales`).Error
}

package repository

import (
	"context"

	"github.com/smallbiznis/comanda/internal/product/domain"
	"github.com/smallbiznis/comanda/pkg/db/option"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Create(ctx context.Context, db *gorm.DB, product *domain.Product) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO products (id, name, category, price, zone_id, stock, min_stock, available, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		product.ID,
		product.Name,
		product.Category,
		product.Price,
		product.ZoneID,
		product.Stock,
		product.MinStock,
		product.Available,
		product.CreatedAt,
		product.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id int64) (*domain.Product, error) {
	var p domain.Product
	err := db.WithContext(ctx).Raw(
		`SELECT id, name, category, price, zone_id, stock, min_stock, available, created_at, updated_at
		 FROM products WHERE id = ?`,
		id,
	).Scan(&p).Error
	if err != nil {
		return nil, err
	}
	if p.ID == 0 {
		return nil, nil
	}
	return &p, nil
}

func (r *repo) FindByIDs(ctx context.Context, db *gorm.DB, ids []int64) ([]domain.Product, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var items []domain.Product
	err := db.WithContext(ctx).Raw(
		`SELECT id, name, category, price, zone_id, stock, min_stock, available, created_at, updated_at
		 FROM products WHERE id IN ?`,
		ids,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListRequest) ([]domain.Product, error) {
	var items []domain.Product
	stmt := db.WithContext(ctx).Model(&domain.Product{})

	if filter.Category != "" {
		stmt = stmt.Where("category = ?", filter.Category)
	}
	if filter.ZoneID != nil {
		stmt = stmt.Where("zone_id = ?", *filter.ZoneID)
	}
	if filter.Available != nil {
		stmt = stmt.Where("available = ?", *filter.Available)
	}
	if filter.LowStock {
		stmt = stmt.Where("stock >= 0 AND stock <= min_stock")
	}

	stmt = option.WithSortBy(option.WithQuerySortBy(filter.SortBy, filter.OrderBy, map[string]bool{
		"created_at": true,
		"name":       true,
		"category":   true,
		"price":      true,
		"stock":      true,
	})).Apply(stmt)

	if err := stmt.Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, product *domain.Product) error {
	if product == nil {
		return gorm.ErrInvalidData
	}
	return db.WithContext(ctx).Exec(
		`UPDATE products
		 SET name = ?, category = ?, price = ?, zone_id = ?, stock = ?, min_stock = ?, available = ?, updated_at = ?
		 WHERE id = ?`,
		product.Name,
		product.Category,
		product.Price,
		product.ZoneID,
		product.Stock,
		product.MinStock,
		product.Available,
		product.UpdatedAt,
		product.ID,
	).Error
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, id int64) error {
	return db.WithContext(ctx).Exec(`DELETE FROM products WHERE id = ?`, id).Error
}

// DecrementStock assigns available before stock so every dialect reads the
// pre-update stock value in both expressions.
func (r *repo) DecrementStock(ctx context.Context, db *gorm.DB, id int64, qty int) error {
	return db.WithContext(ctx).Exec(
		`UPDATE products
		 SET available = CASE WHEN stock < 0 THEN available WHEN stock - ? > 0 THEN TRUE ELSE FALSE END,
		     stock = CASE WHEN stock < 0 THEN stock WHEN stock - ? < 0 THEN 0 ELSE stock - ? END
		 WHERE id = ?`,
		qty,
		qty,
		qty,
		id,
	).Error
}

func (r *repo) DeleteAll(ctx context.Context, db *gorm.DB) error {
	return db.WithContext(ctx).Exec(`DELETE FROM products`).Error
}

package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// UntrackedStock marks a product whose stock is not counted.
const UntrackedStock = -1

type Product struct {
	ID        int64           `json:"id" gorm:"primaryKey"`
	Name      string          `json:"name" gorm:"type:text;not null"`
	Category  string          `json:"category" gorm:"type:text;not null;default:'';index"`
	Price     decimal.Decimal `json:"price" gorm:"type:decimal(12,2);not null"`
	ZoneID    *int64          `json:"zone_id,omitempty" gorm:"index"`
	Stock     int             `json:"stock" gorm:"not null;default:-1"`
	MinStock  int             `json:"min_stock" gorm:"not null;default:0"`
	Available bool            `json:"available" gorm:"not null;default:true"`
	CreatedAt time.Time       `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time       `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Product) TableName() string { return "products" }

func (p *Product) Tracked() bool {
	return p.Stock != UntrackedStock
}

// LowStock reports a tracked product at or below its reorder threshold.
func (p *Product) LowStock() bool {
	return p.Tracked() && p.Stock <= p.MinStock
}

// CanServe reports whether qty units can be added to a cart.
func (p *Product) CanServe(qty int) bool {
	if !p.Available {
		return false
	}
	if !p.Tracked() {
		return true
	}
	return p.Stock > 0 && qty <= p.Stock
}

// StockAfterSale applies a sale of qty units to stock. Untracked stock is left
// alone and tracked stock never drops below zero.
func StockAfterSale(stock, qty int) int {
	if stock == UntrackedStock {
		return stock
	}
	next := stock - qty
	if next < 0 {
		return 0
	}
	return next
}

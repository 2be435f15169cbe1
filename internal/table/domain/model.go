package domain

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

type Status string

const (
	StatusAvailable      Status = "available"
	StatusOccupied       Status = "occupied"
	StatusBilling        Status = "billing"
	StatusReady          Status = "ready"
	StatusPartiallyReady Status = "partially_ready"
)

type Type string

const (
	TypeTable    Type = "table"
	TypeTakeaway Type = "takeaway"
	TypeDelivery Type = "delivery"
)

func (t Type) Valid() bool {
	switch t {
	case TypeTable, TypeTakeaway, TypeDelivery:
		return true
	default:
		return false
	}
}

// IsExternal reports whether the tab is ephemeral and deleted once paid.
func (t Type) IsExternal() bool {
	return t == TypeTakeaway || t == TypeDelivery
}

// Table is a seating unit or an external tab. Version guards every write of
// the cart snapshot; a writer holding a stale version is rejected.
type Table struct {
	ID              int64           `json:"id" gorm:"primaryKey"`
	Number          string          `json:"number" gorm:"type:varchar(32);not null;uniqueIndex:ux_tables_number"`
	Type            Type            `json:"type" gorm:"type:text;not null;default:'table'"`
	Status          Status          `json:"status" gorm:"type:text;not null;default:'available';index"`
	CurrentTotalUSD decimal.Decimal `json:"current_total_usd" gorm:"type:decimal(12,2);not null;default:0"`
	StartTime       *time.Time      `json:"start_time,omitempty"`
	OrderData       datatypes.JSON  `json:"order_data,omitempty" gorm:"column:order_data"`
	OrderNote       string          `json:"order_note" gorm:"type:text;not null;default:''"`
	Version         int64           `json:"version" gorm:"not null;default:1"`
	CreatedAt       time.Time       `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt       time.Time       `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Table) TableName() string { return "tables" }

// Cart decodes the persisted cart snapshot. An empty snapshot is an empty cart.
func (t *Table) Cart() ([]CartLine, error) {
	if t == nil || len(t.OrderData) == 0 || string(t.OrderData) == "null" {
		return nil, nil
	}
	var lines []CartLine
	if err := json.Unmarshal(t.OrderData, &lines); err != nil {
		return nil, err
	}
	return lines, nil
}

// CartLine is one product line of a table's cart with the price and zone
// resolved when the line was last submitted.
type CartLine struct {
	ProductID int64           `json:"product_id"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
	ZoneID    *int64          `json:"zone_id,omitempty"`
}

// EncodeCart serializes a cart for the order_data column.
func EncodeCart(lines []CartLine) (datatypes.JSON, error) {
	if len(lines) == 0 {
		return datatypes.JSON("[]"), nil
	}
	b, err := json.Marshal(lines)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(b), nil
}

// Subtotal sums price times quantity over the cart.
func Subtotal(lines []CartLine) decimal.Decimal {
	total := decimal.Zero
	for _, line := range lines {
		total = total.Add(line.Price.Mul(decimal.NewFromInt(int64(line.Quantity))))
	}
	return total
}

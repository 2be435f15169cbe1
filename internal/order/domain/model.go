package domain

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

type Status string

const (
	StatusPending Status = "pending"
	StatusCooking Status = "cooking"
	StatusReady   Status = "ready"
)

// Order is one kitchen ticket: the positive delta of a single submission
// routed to one zone. Items are written once and never updated.
type Order struct {
	ID           int64          `json:"id" gorm:"primaryKey"`
	TableID      int64          `json:"table_id" gorm:"not null;index"`
	TableNumber  string         `json:"table_number" gorm:"type:text;not null"`
	ZoneID       *int64         `json:"zone_id,omitempty" gorm:"index"`
	Items        datatypes.JSON `json:"items" gorm:"not null"`
	Status       Status         `json:"status" gorm:"type:text;not null;default:'pending';index"`
	Note         string         `json:"note" gorm:"type:text;not null;default:''"`
	CreatedAt    time.Time      `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt    time.Time      `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	DispatchedAt *time.Time     `json:"dispatched_at,omitempty"`
}

func (Order) TableName() string { return "orders" }

// Open reports whether the ticket is still being worked on.
func (o *Order) Open() bool {
	return o.Status != StatusReady
}

func (o *Order) DecodeItems() ([]Item, error) {
	if len(o.Items) == 0 {
		return nil, nil
	}
	var items []Item
	if err := json.Unmarshal(o.Items, &items); err != nil {
		return nil, err
	}
	return items, nil
}

type Item struct {
	ProductID int64  `json:"product_id"`
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
}

func EncodeItems(items []Item) (datatypes.JSON, error) {
	b, err := json.Marshal(items)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(b), nil
}

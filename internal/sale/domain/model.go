package domain

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

type Status string

const (
	StatusOpen   Status = "open"
	StatusClosed Status = "closed"
)

// Sale is a finalized bill. It is never updated except to close the
// reporting period it belongs to.
type Sale struct {
	ID            int64           `json:"id" gorm:"primaryKey"`
	InvoiceNumber string          `json:"invoice_number" gorm:"type:varchar(32);not null;uniqueIndex:ux_sales_invoice_number"`
	TableID       int64           `json:"table_id" gorm:"not null"`
	TableNumber   string          `json:"table_number" gorm:"type:text;not null"`
	TableType     string          `json:"table_type" gorm:"type:text;not null"`
	Items         datatypes.JSON  `json:"items" gorm:"not null"`
	SubtotalUSD   decimal.Decimal `json:"subtotal_usd" gorm:"type:decimal(12,2);not null"`
	IVAUSD        decimal.Decimal `json:"iva_usd" gorm:"column:iva_usd;type:decimal(12,2);not null"`
	IGTFUSD       decimal.Decimal `json:"igtf_usd" gorm:"column:igtf_usd;type:decimal(12,2);not null"`
	TotalUSD      decimal.Decimal `json:"total_usd" gorm:"type:decimal(12,2);not null"`
	Payments      datatypes.JSON  `json:"payments" gorm:"not null"`
	Status        Status          `json:"status" gorm:"type:text;not null;default:'open';index"`
	CashierID     *int64          `json:"cashier_id,omitempty"`
	CreatedAt     time.Time       `json:"created_at" gorm:"not null;index"`
	ClosedAt      *time.Time      `json:"closed_at,omitempty"`
}

func (Sale) TableName() string { return "sales" }

// Item is a sold product with its price frozen at sale time.
type Item struct {
	ProductID int64           `json:"product_id"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
}

func (i Item) Amount() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

type PaymentLine struct {
	Method       string          `json:"method"`
	AmountUSD    decimal.Decimal `json:"amount_usd"`
	IGTFUSD      decimal.Decimal `json:"igtf_usd"`
	AmountVES    decimal.Decimal `json:"amount_ves"`
	ExchangeRate decimal.Decimal `json:"exchange_rate"`
}

func (s *Sale) DecodeItems() ([]Item, error) {
	var items []Item
	if len(s.Items) == 0 {
		return items, nil
	}
	if err := json.Unmarshal(s.Items, &items); err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Sale) DecodePayments() ([]PaymentLine, error) {
	var lines []PaymentLine
	if len(s.Payments) == 0 {
		return lines, nil
	}
	if err := json.Unmarshal(s.Payments, &lines); err != nil {
		return nil, err
	}
	return lines, nil
}

func EncodeJSON(v any) (datatypes.JSON, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(b), nil
}

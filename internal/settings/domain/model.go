package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// SingletonID is the primary key of the only settings row.
const SingletonID int64 = 1

type Settings struct {
	ID           int64           `json:"id" gorm:"primaryKey"`
	ExchangeRate decimal.Decimal `json:"exchange_rate" gorm:"type:decimal(18,6);not null"`
	IVA          decimal.Decimal `json:"iva" gorm:"type:decimal(8,6);not null"`
	IGTF         decimal.Decimal `json:"igtf" gorm:"type:decimal(8,6);not null"`
	IVAEnabled   bool            `json:"iva_enabled" gorm:"not null;default:true"`
	IGTFEnabled  bool            `json:"igtf_enabled" gorm:"not null;default:true"`
	UpdatedAt    time.Time       `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Settings) TableName() string { return "settings" }

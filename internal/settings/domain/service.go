package domain

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	billingdomain "github.com/smallbiznis/comanda/internal/billing/domain"
)

type Service interface {
	Get(ctx context.Context) (*Response, error)
	Update(ctx context.Context, req UpdateRequest) (*Response, error)
	// Rates returns the rates in effect now. A store without a settings row
	// falls back to the configured defaults.
	Rates(ctx context.Context) (billingdomain.Rates, error)
	// Seed writes the configured defaults when no settings row exists.
	Seed(ctx context.Context) error
}

// UpdateRequest patches the settings. Nil fields are left unchanged.
type UpdateRequest struct {
	ExchangeRate *string `json:"exchange_rate"`
	IVA          *string `json:"iva"`
	IGTF         *string `json:"igtf"`
	IVAEnabled   *bool   `json:"iva_enabled"`
	IGTFEnabled  *bool   `json:"igtf_enabled"`
}

type Response struct {
	ExchangeRate decimal.Decimal `json:"exchange_rate"`
	IVA          decimal.Decimal `json:"iva"`
	IGTF         decimal.Decimal `json:"igtf"`
	IVAEnabled   bool            `json:"iva_enabled"`
	IGTFEnabled  bool            `json:"igtf_enabled"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

var (
	ErrInvalidExchangeRate = errors.New("invalid_exchange_rate")
	ErrInvalidIVA          = errors.New("invalid_iva")
	ErrInvalidIGTF         = errors.New("invalid_igtf")
)

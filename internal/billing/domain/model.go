package domain

import (
	"errors"

	"github.com/shopspring/decimal"
)

type Method string

const (
	MethodCashUSD   Method = "cash_usd"
	MethodCashVES   Method = "cash_ves"
	MethodZelle     Method = "zelle"
	MethodPagoMovil Method = "pago_movil"
	MethodCard      Method = "card"
)

var Methods = []Method{MethodCashUSD, MethodCashVES, MethodZelle, MethodPagoMovil, MethodCard}

func (m Method) Valid() bool {
	for _, known := range Methods {
		if m == known {
			return true
		}
	}
	return false
}

// NeedsIGTF reports whether payments of this method carry the foreign
// currency surcharge.
func NeedsIGTF(m Method) bool {
	return m == MethodCashUSD || m == MethodZelle
}

// Payment is one partial settlement of a bill. AmountVES is fixed at the rate
// in effect when the line was added and is never recomputed.
type Payment struct {
	Method       Method          `json:"method"`
	AmountUSD    decimal.Decimal `json:"amount_usd"`
	IGTFUSD      decimal.Decimal `json:"igtf_usd"`
	AmountVES    decimal.Decimal `json:"amount_ves"`
	ExchangeRate decimal.Decimal `json:"exchange_rate"`
}

// Rates are the fiscal parameters applied to a bill.
type Rates struct {
	ExchangeRate decimal.Decimal `json:"exchange_rate"`
	IVA          decimal.Decimal `json:"iva"`
	IGTF         decimal.Decimal `json:"igtf"`
	IVAEnabled   bool            `json:"iva_enabled"`
	IGTFEnabled  bool            `json:"igtf_enabled"`
}

func (r Rates) Validate() error {
	if !r.ExchangeRate.IsPositive() {
		return ErrInvalidRate
	}
	one := decimal.NewFromInt(1)
	if r.IVA.IsNegative() || r.IVA.GreaterThanOrEqual(one) {
		return ErrInvalidRate
	}
	if r.IGTF.IsNegative() || r.IGTF.GreaterThanOrEqual(one) {
		return ErrInvalidRate
	}
	return nil
}

// surcharge is the IGTF fraction applied to method, zero when not applicable.
func (r Rates) surcharge(m Method) decimal.Decimal {
	if !r.IGTFEnabled || !NeedsIGTF(m) {
		return decimal.Zero
	}
	return r.IGTF
}

// Bill is the amount owed before any surcharge.
type Bill struct {
	Subtotal  decimal.Decimal `json:"subtotal_usd"`
	IVA       decimal.Decimal `json:"iva_usd"`
	BaseTotal decimal.Decimal `json:"base_total_usd"`
}

var (
	ErrInvalidAmount       = errors.New("invalid_amount")
	ErrInvalidMethod       = errors.New("invalid_payment_method")
	ErrInvalidRate         = errors.New("invalid_rate")
	ErrInvalidPaymentIndex = errors.New("invalid_payment_index")
)

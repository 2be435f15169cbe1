package domain

import "github.com/shopspring/decimal"

// Epsilon absorbs rounding left over from currency conversion round trips.
var Epsilon = decimal.RequireFromString("0.01")

const moneyPlaces = 2

// ComputeBill applies IVA to subtotal.
func ComputeBill(subtotal decimal.Decimal, rates Rates) Bill {
	subtotal = subtotal.Round(moneyPlaces)
	iva := decimal.Zero
	if rates.IVAEnabled {
		iva = subtotal.Mul(rates.IVA).Round(moneyPlaces)
	}
	return Bill{
		Subtotal:  subtotal,
		IVA:       iva,
		BaseTotal: subtotal.Add(iva),
	}
}

// NewPayment builds a payment line for amountUSD of base. The surcharge and
// the local currency amount are computed once, here.
func NewPayment(method Method, amountUSD decimal.Decimal, rates Rates) (Payment, error) {
	if !method.Valid() {
		return Payment{}, ErrInvalidMethod
	}
	amountUSD = amountUSD.Round(moneyPlaces)
	if !amountUSD.IsPositive() {
		return Payment{}, ErrInvalidAmount
	}
	if !rates.ExchangeRate.IsPositive() {
		return Payment{}, ErrInvalidRate
	}

	igtf := amountUSD.Mul(rates.surcharge(method)).Round(moneyPlaces)
	return Payment{
		Method:       method,
		AmountUSD:    amountUSD,
		IGTFUSD:      igtf,
		AmountVES:    amountUSD.Add(igtf).Mul(rates.ExchangeRate).Round(moneyPlaces),
		ExchangeRate: rates.ExchangeRate,
	}, nil
}

// TotalBasePaid sums the base amounts, excluding surcharge.
func TotalBasePaid(payments []Payment) decimal.Decimal {
	total := decimal.Zero
	for _, p := range payments {
		total = total.Add(p.AmountUSD)
	}
	return total
}

// TotalIGTF sums the surcharge collected across payments.
func TotalIGTF(payments []Payment) decimal.Decimal {
	total := decimal.Zero
	for _, p := range payments {
		total = total.Add(p.IGTFUSD)
	}
	return total
}

// SaleTotal is what the customer actually paid: base plus surcharge.
func SaleTotal(payments []Payment) decimal.Decimal {
	return TotalBasePaid(payments).Add(TotalIGTF(payments))
}

// Remaining is the base still owed, never negative.
func Remaining(bill Bill, payments []Payment) decimal.Decimal {
	remaining := bill.BaseTotal.Sub(TotalBasePaid(payments))
	if remaining.IsNegative() {
		return decimal.Zero
	}
	return remaining
}

// Change is the base paid beyond the bill, never negative.
func Change(bill Bill, payments []Payment) decimal.Decimal {
	change := TotalBasePaid(payments).Sub(bill.BaseTotal)
	if change.IsNegative() {
		return decimal.Zero
	}
	return change
}

// IsSettled reports whether the outstanding base is below Epsilon.
// Overpayment counts as settled.
func IsSettled(bill Bill, payments []Payment) bool {
	return bill.BaseTotal.Sub(TotalBasePaid(payments)).LessThan(Epsilon)
}

// RemovePayment drops the line at index. Nothing else is recomputed.
func RemovePayment(payments []Payment, index int) ([]Payment, error) {
	if index < 0 || index >= len(payments) {
		return payments, ErrInvalidPaymentIndex
	}
	out := make([]Payment, 0, len(payments)-1)
	out = append(out, payments[:index]...)
	return append(out, payments[index+1:]...), nil
}

// ConvertUSDToVES converts a drafted base amount to the local currency total
// the customer hands over, surcharge included.
func ConvertUSDToVES(method Method, usd decimal.Decimal, rates Rates) decimal.Decimal {
	gross := usd.Mul(decimal.NewFromInt(1).Add(rates.surcharge(method)))
	return gross.Mul(rates.ExchangeRate).Round(moneyPlaces)
}

// ConvertVESToUSD backs the surcharge out of a local currency amount and
// returns the base in dollars.
func ConvertVESToUSD(method Method, ves decimal.Decimal, rates Rates) decimal.Decimal {
	if !rates.ExchangeRate.IsPositive() {
		return decimal.Zero
	}
	base := ves.DivRound(rates.ExchangeRate, 8)
	if s := rates.surcharge(method); s.IsPositive() {
		base = base.DivRound(decimal.NewFromInt(1).Add(s), 8)
	}
	return base.Round(moneyPlaces)
}

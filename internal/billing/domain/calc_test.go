package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(v string) decimal.Decimal { return decimal.RequireFromString(v) }

func defaultRates() Rates {
	return Rates{
		ExchangeRate: d("36.5"),
		IVA:          d("0.16"),
		IGTF:         d("0.03"),
		IVAEnabled:   true,
		IGTFEnabled:  true,
	}
}

func TestComputeBillAppliesIVA(t *testing.T) {
	bill := ComputeBill(d("10.00"), defaultRates())
	assert.Equal(t, "1.60", bill.IVA.StringFixed(2))
	assert.Equal(t, "11.60", bill.BaseTotal.StringFixed(2))

	rates := defaultRates()
	rates.IVAEnabled = false
	bill = ComputeBill(d("10.00"), rates)
	assert.True(t, bill.IVA.IsZero())
	assert.Equal(t, "10.00", bill.BaseTotal.StringFixed(2))
}

func TestSurchargeOnlyForForeignCashMethods(t *testing.T) {
	rates := defaultRates()

	cash, err := NewPayment(MethodCashUSD, d("10.00"), rates)
	require.NoError(t, err)
	assert.Equal(t, "0.30", cash.IGTFUSD.StringFixed(2))
	assert.Equal(t, "375.95", cash.AmountVES.StringFixed(2))

	zelle, err := NewPayment(MethodZelle, d("10.00"), rates)
	require.NoError(t, err)
	assert.Equal(t, "0.30", zelle.IGTFUSD.StringFixed(2))

	card, err := NewPayment(MethodCard, d("10.00"), rates)
	require.NoError(t, err)
	assert.True(t, card.IGTFUSD.IsZero())
	assert.Equal(t, "365.00", card.AmountVES.StringFixed(2))

	rates.IGTFEnabled = false
	off, err := NewPayment(MethodCashUSD, d("10.00"), rates)
	require.NoError(t, err)
	assert.True(t, off.IGTFUSD.IsZero())
}

func TestNewPaymentRejectsInvalidInput(t *testing.T) {
	rates := defaultRates()

	_, err := NewPayment(MethodCard, d("0"), rates)
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = NewPayment(MethodCard, d("-5"), rates)
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = NewPayment(Method("bitcoin"), d("5"), rates)
	assert.ErrorIs(t, err, ErrInvalidMethod)

	rates.ExchangeRate = decimal.Zero
	_, err = NewPayment(MethodCard, d("5"), rates)
	assert.ErrorIs(t, err, ErrInvalidRate)
}

func TestSettlementPredicate(t *testing.T) {
	bill := Bill{BaseTotal: d("25.00")}
	pay := func(amounts ...string) []Payment {
		out := make([]Payment, 0, len(amounts))
		for _, a := range amounts {
			out = append(out, Payment{Method: MethodCard, AmountUSD: d(a)})
		}
		return out
	}

	assert.False(t, IsSettled(bill, pay("24.99")))
	assert.False(t, IsSettled(bill, pay("20.00", "4.99")))
	assert.True(t, IsSettled(bill, pay("25.00")))
	assert.True(t, IsSettled(bill, pay("25.005")))
	assert.True(t, IsSettled(bill, pay("25.01")))
	assert.True(t, IsSettled(bill, pay("10", "15")))
	assert.False(t, IsSettled(bill, nil))
}

func TestRemainingAndChange(t *testing.T) {
	bill := Bill{BaseTotal: d("25.00")}
	payments := []Payment{{AmountUSD: d("10.00"), IGTFUSD: d("0.30")}}

	assert.Equal(t, "15.00", Remaining(bill, payments).StringFixed(2))
	assert.True(t, Change(bill, payments).IsZero())

	payments = append(payments, Payment{AmountUSD: d("20.00")})
	assert.True(t, Remaining(bill, payments).IsZero())
	assert.Equal(t, "5.00", Change(bill, payments).StringFixed(2))
}

func TestSaleTotalIncludesSurcharge(t *testing.T) {
	payments := []Payment{
		{Method: MethodCashUSD, AmountUSD: d("10.00"), IGTFUSD: d("0.30")},
		{Method: MethodCard, AmountUSD: d("1.60"), IGTFUSD: decimal.Zero},
	}
	assert.Equal(t, "11.60", TotalBasePaid(payments).StringFixed(2))
	assert.Equal(t, "11.90", SaleTotal(payments).StringFixed(2))
}

func TestRemovePaymentFiltersByIndex(t *testing.T) {
	payments := []Payment{
		{Method: MethodCard, AmountUSD: d("1")},
		{Method: MethodZelle, AmountUSD: d("2")},
		{Method: MethodCashVES, AmountUSD: d("3")},
	}

	out, err := RemovePayment(payments, 1)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, MethodCard, out[0].Method)
	assert.Equal(t, MethodCashVES, out[1].Method)
	assert.Len(t, payments, 3)

	_, err = RemovePayment(payments, 3)
	assert.ErrorIs(t, err, ErrInvalidPaymentIndex)
}

func TestConversionRoundTrip(t *testing.T) {
	rates := defaultRates()
	cases := []struct {
		method Method
		usd    string
		rate   string
	}{
		{MethodCashUSD, "10.00", "36.5"},
		{MethodZelle, "7.77", "36.57"},
		{MethodCard, "13.33", "40.123"},
		{MethodPagoMovil, "0.01", "36.5"},
		{MethodZelle, "123.45", "52.80"},
	}
	for _, tc := range cases {
		rates.ExchangeRate = d(tc.rate)
		ves := ConvertUSDToVES(tc.method, d(tc.usd), rates)
		back := ConvertVESToUSD(tc.method, ves, rates)
		diff := back.Sub(d(tc.usd)).Abs()
		assert.True(t, diff.LessThanOrEqual(Epsilon), "%s %s -> %s -> %s", tc.method, tc.usd, ves, back)
	}
}

func TestConvertVESToUSDBacksOutSurcharge(t *testing.T) {
	rates := defaultRates()
	assert.Equal(t, "10.00", ConvertVESToUSD(MethodCashUSD, d("375.95"), rates).StringFixed(2))
	assert.Equal(t, "10.30", ConvertVESToUSD(MethodCard, d("375.95"), rates).StringFixed(2))
}

func TestRatesValidate(t *testing.T) {
	assert.NoError(t, defaultRates().Validate())

	rates := defaultRates()
	rates.ExchangeRate = d("0")
	assert.ErrorIs(t, rates.Validate(), ErrInvalidRate)

	rates = defaultRates()
	rates.IVA = d("1.5")
	assert.ErrorIs(t, rates.Validate(), ErrInvalidRate)
}

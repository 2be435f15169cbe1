package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeNumber(t *testing.T) {
	assert.Equal(t, "07", NormalizeNumber(" 7 "))
	assert.Equal(t, "07", NormalizeNumber("07"))
	assert.Equal(t, "12", NormalizeNumber("12"))
	assert.Equal(t, "TERRAZA", NormalizeNumber("terraza"))
	assert.Equal(t, "", NormalizeNumber("  "))
}

func TestSuggestNumberFindsFirstGap(t *testing.T) {
	assert.Equal(t, "01", SuggestNumber(nil))
	assert.Equal(t, "03", SuggestNumber([]string{"01", "02", "04"}))
	assert.Equal(t, "02", SuggestNumber([]string{"03", "01", "BARRA"}))
	assert.Equal(t, "04", SuggestNumber([]string{"1", "2", "3"}))
}

func TestSuggestExternalLabel(t *testing.T) {
	assert.Equal(t, "EXT-01", SuggestExternalLabel("ext", []string{"01", "02"}))
	assert.Equal(t, "EXT-02", SuggestExternalLabel("EXT", []string{"EXT-01", "EXT-03", "05"}))
}

func TestCartSubtotal(t *testing.T) {
	table := &Table{}
	data, err := EncodeCart([]CartLine{
		{ProductID: 1, Name: "Arepa", Price: mustDecimal("3.50"), Quantity: 2},
		{ProductID: 2, Name: "Jugo", Price: mustDecimal("1.25"), Quantity: 1},
	})
	assert.NoError(t, err)
	table.OrderData = data

	lines, err := table.Cart()
	assert.NoError(t, err)
	assert.Len(t, lines, 2)
	assert.Equal(t, "8.25", Subtotal(lines).StringFixed(2))
}

func TestEmptyCart(t *testing.T) {
	lines, err := (&Table{}).Cart()
	assert.NoError(t, err)
	assert.Empty(t, lines)
}

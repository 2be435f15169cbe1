package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStockAfterSale(t *testing.T) {
	assert.Equal(t, UntrackedStock, StockAfterSale(UntrackedStock, 5))
	assert.Equal(t, 7, StockAfterSale(10, 3))
	assert.Equal(t, 0, StockAfterSale(2, 5))
	assert.Equal(t, 0, StockAfterSale(0, 1))
}

func TestCanServe(t *testing.T) {
	untracked := &Product{Stock: UntrackedStock, Available: true}
	assert.True(t, untracked.CanServe(100))

	tracked := &Product{Stock: 3, Available: true}
	assert.True(t, tracked.CanServe(3))
	assert.False(t, tracked.CanServe(4))

	empty := &Product{Stock: 0, Available: true}
	assert.False(t, empty.CanServe(1))

	hidden := &Product{Stock: UntrackedStock, Available: false}
	assert.False(t, hidden.CanServe(1))
}

func TestLowStock(t *testing.T) {
	assert.True(t, (&Product{Stock: 2, MinStock: 2}).LowStock())
	assert.False(t, (&Product{Stock: 3, MinStock: 2}).LowStock())
	assert.False(t, (&Product{Stock: UntrackedStock, MinStock: 2}).LowStock())
}

package domain

import (
	"testing"

	tabledomain "github.com/smallbiznis/comanda/internal/table/domain"
	"github.com/stretchr/testify/assert"
)

func orders(statuses ...Status) []Order {
	out := make([]Order, 0, len(statuses))
	for i, s := range statuses {
		out = append(out, Order{ID: int64(i + 1), Status: s})
	}
	return out
}

func TestDeriveStatus(t *testing.T) {
	assert.Equal(t, tabledomain.StatusOccupied, DeriveStatus(nil))
	assert.Equal(t, tabledomain.StatusOccupied, DeriveStatus(orders(StatusPending, StatusCooking)))
	assert.Equal(t, tabledomain.StatusPartiallyReady, DeriveStatus(orders(StatusReady, StatusPending, StatusReady)))
	assert.Equal(t, tabledomain.StatusReady, DeriveStatus(orders(StatusReady, StatusReady, StatusReady)))
}

func TestDeriveStatusIsOrderIndependent(t *testing.T) {
	set := orders(StatusPending, StatusPending, StatusPending)
	perms := [][]int{{0, 1, 2}, {2, 1, 0}, {1, 2, 0}}
	for _, perm := range perms {
		current := append([]Order(nil), set...)
		for _, idx := range perm {
			current[idx].Status = StatusReady
		}
		assert.Equal(t, tabledomain.StatusReady, DeriveStatus(current))
	}
}

func TestFilterByZonePartitions(t *testing.T) {
	kitchen := int64(10)
	bar := int64(20)
	all := []Order{
		{ID: 1},
		{ID: 2, ZoneID: &kitchen},
		{ID: 3, ZoneID: &bar},
		{ID: 4},
	}

	general := FilterByZone(all, nil)
	assert.Len(t, general, 2)
	for _, o := range general {
		assert.Nil(t, o.ZoneID)
	}

	onlyBar := FilterByZone(all, &bar)
	if assert.Len(t, onlyBar, 1) {
		assert.Equal(t, int64(3), onlyBar[0].ID)
	}

	missing := int64(99)
	assert.Empty(t, FilterByZone(all, &missing))
}

func TestLabelFor(t *testing.T) {
	assert.Equal(t, BoardBillRequested, LabelFor(tabledomain.StatusBilling, orders(StatusPending)))
	assert.Equal(t, BoardPartiallyDispatched, LabelFor(tabledomain.StatusPartiallyReady, orders(StatusReady, StatusPending)))
	assert.Equal(t, BoardInKitchen, LabelFor(tabledomain.StatusOccupied, orders(StatusCooking)))
	assert.Equal(t, BoardReady, LabelFor(tabledomain.StatusReady, orders(StatusReady)))
	assert.Equal(t, BoardConsuming, LabelFor(tabledomain.StatusOccupied, nil))
}

package domain

import (
	tabledomain "github.com/smallbiznis/comanda/internal/table/domain"
)

// DeriveStatus computes a table's status from the full set of its orders. It
// is recomputed from source after every order mutation so concurrent writers
// converge regardless of completion order.
func DeriveStatus(orders []Order) tabledomain.Status {
	if len(orders) == 0 {
		return tabledomain.StatusOccupied
	}
	ready := 0
	for i := range orders {
		if orders[i].Status == StatusReady {
			ready++
		}
	}
	switch {
	case ready == len(orders):
		return tabledomain.StatusReady
	case ready > 0:
		return tabledomain.StatusPartiallyReady
	default:
		return tabledomain.StatusOccupied
	}
}

// FilterByZone returns the orders shown on one kitchen display. A nil zone is
// the general display and only matches orders without a zone.
func FilterByZone(orders []Order, zoneID *int64) []Order {
	out := make([]Order, 0, len(orders))
	for _, o := range orders {
		switch {
		case zoneID == nil && o.ZoneID == nil:
			out = append(out, o)
		case zoneID != nil && o.ZoneID != nil && *o.ZoneID == *zoneID:
			out = append(out, o)
		}
	}
	return out
}

type BoardLabel string

const (
	BoardInKitchen           BoardLabel = "in_kitchen"
	BoardPartiallyDispatched BoardLabel = "partially_dispatched"
	BoardReady               BoardLabel = "ready"
	BoardBillRequested       BoardLabel = "bill_requested"
	BoardConsuming           BoardLabel = "consuming"
)

// LabelFor tells the cashier what a table is waiting on.
func LabelFor(status tabledomain.Status, orders []Order) BoardLabel {
	if status == tabledomain.StatusBilling {
		return BoardBillRequested
	}
	if status == tabledomain.StatusPartiallyReady {
		return BoardPartiallyDispatched
	}
	for i := range orders {
		if orders[i].Open() {
			return BoardInKitchen
		}
	}
	if status == tabledomain.StatusReady {
		return BoardReady
	}
	return BoardConsuming
}

package domain

import (
	"context"
	"time"
)

type EventType string

const (
	EventTicketCreated  EventType = "ticket.created"
	EventTicketUpdated  EventType = "ticket.updated"
	EventTicketCooking  EventType = "ticket.cooking"
	EventTicketReady    EventType = "ticket.ready"
	EventTicketReverted EventType = "ticket.reverted"
	EventTicketCleared  EventType = "ticket.cleared"
	EventTicketDelayed  EventType = "ticket.delayed"
	EventTableChanged   EventType = "table.changed"
)

// Event tells displays that something changed. It carries no state:
// subscribers reload from the store.
type Event struct {
	Type       EventType `json:"type"`
	Zone       string    `json:"zone"`
	TableID    string    `json:"table_id,omitempty"`
	OrderID    string    `json:"order_id,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
	// Origin identifies the instance that produced the event so relays can
	// skip their own messages.
	Origin string `json:"origin,omitempty"`
}

// Notifier receives change events. Delivery is best effort.
type Notifier interface {
	Notify(ctx context.Context, ev Event)
}

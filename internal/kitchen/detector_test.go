package kitchen

import (
	"testing"

	orderdomain "github.com/smallbiznis/comanda/internal/order/domain"
	"github.com/stretchr/testify/assert"
)

func ticket(id string, status orderdomain.Status, note string, qty int) orderdomain.Response {
	return orderdomain.Response{
		ID:     id,
		Status: status,
		Note:   note,
		Items:  []orderdomain.ItemResponse{{ProductID: "1", Name: "Arepa", Quantity: qty}},
	}
}

func TestDetectorPrimesOnFirstObservation(t *testing.T) {
	d := NewDetector()
	assert.Equal(t, AlertNone, d.Observe([]orderdomain.Response{ticket("1", orderdomain.StatusPending, "", 1)}))
	assert.Equal(t, AlertNone, d.Observe([]orderdomain.Response{ticket("1", orderdomain.StatusPending, "", 1)}))
}

func TestDetectorNewTicket(t *testing.T) {
	d := NewDetector()
	d.Observe(nil)
	assert.Equal(t, AlertNewTicket, d.Observe([]orderdomain.Response{ticket("1", orderdomain.StatusPending, "", 1)}))
}

func TestDetectorUpdatedTicket(t *testing.T) {
	d := NewDetector()
	d.Observe([]orderdomain.Response{ticket("1", orderdomain.StatusPending, "", 1)})

	assert.Equal(t, AlertUpdatedTicket, d.Observe([]orderdomain.Response{ticket("1", orderdomain.StatusPending, "sin sal", 1)}))
	assert.Equal(t, AlertUpdatedTicket, d.Observe([]orderdomain.Response{ticket("1", orderdomain.StatusCooking, "sin sal", 2)}))
	assert.Equal(t, AlertNone, d.Observe([]orderdomain.Response{ticket("1", orderdomain.StatusCooking, "sin sal", 2)}))
}

func TestDetectorNewTakesPrecedence(t *testing.T) {
	d := NewDetector()
	d.Observe([]orderdomain.Response{ticket("1", orderdomain.StatusPending, "", 1)})

	alert := d.Observe([]orderdomain.Response{
		ticket("1", orderdomain.StatusPending, "changed", 1),
		ticket("2", orderdomain.StatusPending, "", 1),
	})
	assert.Equal(t, AlertNewTicket, alert)
}

func TestDetectorIgnoresReadyTickets(t *testing.T) {
	d := NewDetector()
	d.Observe(nil)

	assert.Equal(t, AlertNone, d.Observe([]orderdomain.Response{ticket("9", orderdomain.StatusReady, "", 1)}))

	d.Observe([]orderdomain.Response{ticket("1", orderdomain.StatusPending, "", 1)})
	assert.Equal(t, AlertNone, d.Observe([]orderdomain.Response{ticket("1", orderdomain.StatusReady, "late note", 3)}))
}

func TestDetectorRevertedTicketIsAnUpdate(t *testing.T) {
	d := NewDetector()
	d.Observe([]orderdomain.Response{ticket("1", orderdomain.StatusPending, "", 1)})
	assert.Equal(t, AlertNone, d.Observe([]orderdomain.Response{ticket("1", orderdomain.StatusReady, "", 1)}))

	assert.Equal(t, AlertUpdatedTicket, d.Observe([]orderdomain.Response{ticket("1", orderdomain.StatusPending, "", 1)}))
	assert.Equal(t, AlertNone, d.Observe([]orderdomain.Response{ticket("1", orderdomain.StatusPending, "", 1)}))
}

func TestDetectorReadyTicketSeenAtPrimeIsNotNewOnRevert(t *testing.T) {
	d := NewDetector()
	d.Observe([]orderdomain.Response{ticket("4", orderdomain.StatusReady, "", 2)})

	assert.Equal(t, AlertUpdatedTicket, d.Observe([]orderdomain.Response{ticket("4", orderdomain.StatusPending, "", 2)}))
}

package kitchen

import (
	"slices"

	orderdomain "github.com/smallbiznis/comanda/internal/order/domain"
)

type Alert string

const (
	AlertNone          Alert = ""
	AlertNewTicket     Alert = "new_ticket"
	AlertUpdatedTicket Alert = "updated_ticket"
)

// Detector classifies what changed between two consecutive snapshots of a
// display. It is not safe for concurrent use; each display connection owns
// one.
type Detector struct {
	primed   bool
	previous map[string]orderdomain.Response
}

func NewDetector() *Detector {
	return &Detector{previous: make(map[string]orderdomain.Response)}
}

// Observe records snapshot and reports at most one alert. A ticket is new
// only the first time its id shows up; one reverted from ready comes back as
// an update. Changes to ready tickets are ignored. A new ticket wins over an
// updated one. The first call only primes the detector.
func (d *Detector) Observe(snapshot []orderdomain.Response) Alert {
	current := make(map[string]orderdomain.Response, len(snapshot))
	for _, o := range snapshot {
		current[o.ID] = o
	}

	previous := d.previous
	primed := d.primed
	d.previous = current
	d.primed = true
	if !primed {
		return AlertNone
	}

	updated := false
	for id, o := range current {
		if o.Status == orderdomain.StatusReady {
			continue
		}
		before, ok := previous[id]
		switch {
		case !ok:
			return AlertNewTicket
		case before.Status == orderdomain.StatusReady:
			updated = true
		case before.Note != o.Note || !slices.Equal(before.Items, o.Items):
			updated = true
		}
	}
	if updated {
		return AlertUpdatedTicket
	}
	return AlertNone
}

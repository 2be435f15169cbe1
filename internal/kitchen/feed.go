package kitchen

import (
	"errors"
	"strings"
	"sync"

	orderdomain "github.com/smallbiznis/comanda/internal/order/domain"
)

// AllZones subscribes to every event regardless of zone. The cashier monitor
// listens here.
const AllZones = "*"

const DefaultSubscriberBuffer = 16

var ErrFeedUnavailable = errors.New("feed_unavailable")

// Feed fans change notifications out to the displays subscribed to a zone.
// Sends never block: a slow subscriber drops events and catches up on its
// next reload.
type Feed struct {
	mu               sync.RWMutex
	streams          map[string]*stream
	subscriberBuffer int
}

type stream struct {
	mu     sync.Mutex
	subs   map[uint64]chan orderdomain.Event
	nextID uint64
}

type Subscription struct {
	feed *Feed
	zone string
	id   uint64
	ch   chan orderdomain.Event
	once sync.Once
}

func NewFeed() *Feed {
	return &Feed{
		streams:          make(map[string]*stream),
		subscriberBuffer: DefaultSubscriberBuffer,
	}
}

// Publish delivers ev to the subscribers of its zone and to AllZones.
func (f *Feed) Publish(ev orderdomain.Event) {
	if f == nil {
		return
	}
	zone := strings.TrimSpace(ev.Zone)
	if zone != "" && zone != AllZones {
		f.deliver(zone, ev)
	}
	f.deliver(AllZones, ev)
}

func (f *Feed) deliver(zone string, ev orderdomain.Event) {
	f.mu.RLock()
	st := f.streams[zone]
	f.mu.RUnlock()
	if st == nil {
		return
	}

	st.mu.Lock()
	subs := make([]chan orderdomain.Event, 0, len(st.subs))
	for _, ch := range st.subs {
		subs = append(subs, ch)
	}
	st.mu.Unlock()

	for _, ch := range subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

// Subscribe registers a listener for zone. An empty zone is the general
// kitchen.
func (f *Feed) Subscribe(zone string) (*Subscription, error) {
	if f == nil {
		return nil, ErrFeedUnavailable
	}
	zone = strings.TrimSpace(zone)
	if zone == "" {
		zone = orderdomain.DefaultZoneKey
	}

	st := f.ensureStream(zone)
	st.mu.Lock()
	id := st.nextID
	st.nextID++
	ch := make(chan orderdomain.Event, f.subscriberBuffer)
	st.subs[id] = ch
	st.mu.Unlock()

	return &Subscription{feed: f, zone: zone, id: id, ch: ch}, nil
}

// Subscribers reports the number of listeners of zone.
func (f *Feed) Subscribers(zone string) int {
	f.mu.RLock()
	st := f.streams[zone]
	f.mu.RUnlock()
	if st == nil {
		return 0
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.subs)
}

func (f *Feed) ensureStream(zone string) *stream {
	f.mu.RLock()
	current := f.streams[zone]
	f.mu.RUnlock()
	if current != nil {
		return current
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	current = f.streams[zone]
	if current == nil {
		current = &stream{subs: make(map[uint64]chan orderdomain.Event)}
		f.streams[zone] = current
	}
	return current
}

func (f *Feed) unsubscribe(zone string, id uint64) {
	f.mu.RLock()
	st := f.streams[zone]
	f.mu.RUnlock()
	if st == nil {
		return
	}

	st.mu.Lock()
	delete(st.subs, id)
	remaining := len(st.subs)
	st.mu.Unlock()
	if remaining != 0 {
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.streams[zone] != st {
		return
	}
	st.mu.Lock()
	empty := len(st.subs) == 0
	st.mu.Unlock()
	if empty {
		delete(f.streams, zone)
	}
}

func (s *Subscription) Events() <-chan orderdomain.Event {
	if s == nil {
		return nil
	}
	return s.ch
}

func (s *Subscription) Close() {
	if s == nil || s.feed == nil {
		return
	}
	s.once.Do(func() {
		s.feed.unsubscribe(s.zone, s.id)
	})
}

// Package geofence decides whether a shopper is close enough to the store
// to scan, and streams location updates to whoever needs them.
package geofence

import (
	"math"
	"sync"
	"time"
)

const earthRadiusMeters = 6371008.8

// Coordinate is a WGS84 point in degrees.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Distance is the great-circle distance between a and b in meters.
func Distance(a, b Coordinate) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLng := (b.Lng - a.Lng) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadiusMeters * math.Asin(math.Min(1, math.Sqrt(h)))
}

// Decision is the outcome of a gate check.
type Decision struct {
	Allowed        bool    `json:"allowed"`
	DistanceMeters float64 `json:"distance_m"`
}

// Gate allows positions within RadiusMeters of Anchor.
type Gate struct {
	Anchor       Coordinate
	RadiusMeters float64
}

func (g Gate) Check(c Coordinate) Decision {
	d := Distance(g.Anchor, c)
	return Decision{Allowed: d <= g.RadiusMeters, DistanceMeters: d}
}

// Evaluate applies the gate to a watcher event; an unavailable location
// is always denied.
func (g Gate) Evaluate(e Event) Decision {
	if e.Unavailable || e.Position == nil {
		return Decision{Allowed: false, DistanceMeters: math.Inf(1)}
	}
	return g.Check(*e.Position)
}

// Event is a location update, or a report that location is unavailable
// (permission revoked, services off).
type Event struct {
	Position    *Coordinate `json:"position,omitempty"`
	Unavailable bool        `json:"unavailable"`
	At          time.Time   `json:"at"`
}

const subscriberBuffer = 8

// Watcher fans location events out to subscribers and remembers the last
// one. A subscriber that falls behind misses events instead of blocking
// Publish.
type Watcher struct {
	mu     sync.Mutex
	last   Event
	subs   map[int]chan Event
	nextID int
}

// NewWatcher starts with location unavailable.
func NewWatcher() *Watcher {
	return &Watcher{
		last: Event{Unavailable: true},
		subs: make(map[int]chan Event),
	}
}

// Subscribe returns a channel of events and a cancel func that closes it.
// Cancel is safe to call more than once.
func (w *Watcher) Subscribe() (<-chan Event, func()) {
	w.mu.Lock()
	defer w.mu.Unlock()

	id := w.nextID
	w.nextID++
	ch := make(chan Event, subscriberBuffer)
	w.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			w.mu.Lock()
			defer w.mu.Unlock()
			if c, ok := w.subs[id]; ok {
				delete(w.subs, id)
				close(c)
			}
		})
	}
}

// Publish records e as the latest event and delivers it to subscribers.
func (w *Watcher) Publish(e Event) {
	if e.At.IsZero() {
		e.At = time.Now()
	}
	if e.Position == nil {
		e.Unavailable = true
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	w.last = e
	for _, ch := range w.subs {
		select {
		case ch <- e:
		default:
		}
	}
}

// Last returns the most recent event.
func (w *Watcher) Last() Event {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.last
}

// Subscribers is the number of open subscriptions.
func (w *Watcher) Subscribers() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.subs)
}

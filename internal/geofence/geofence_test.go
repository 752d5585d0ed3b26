package geofence

import (
	"math"
	"testing"
	"time"
)

var store = Coordinate{Lat: 12.9716, Lng: 77.5946}

func TestDistance_KnownPair(t *testing.T) {
	// Bengaluru to Chennai city centres, roughly 290 km.
	chennai := Coordinate{Lat: 13.0827, Lng: 80.2707}
	d := Distance(store, chennai)
	if d < 285_000 || d > 295_000 {
		t.Fatalf("distance: got %.0f m, want ~290 km", d)
	}
}

func TestDistance_ZeroAndSymmetric(t *testing.T) {
	if d := Distance(store, store); d != 0 {
		t.Errorf("self distance: got %f", d)
	}
	other := Coordinate{Lat: 12.98, Lng: 77.60}
	if math.Abs(Distance(store, other)-Distance(other, store)) > 1e-6 {
		t.Error("distance not symmetric")
	}
}

func TestGate_Check(t *testing.T) {
	g := Gate{Anchor: store, RadiusMeters: 150}

	// ~0.001 deg latitude is ~111 m.
	near := Coordinate{Lat: store.Lat + 0.001, Lng: store.Lng}
	far := Coordinate{Lat: store.Lat + 0.01, Lng: store.Lng}

	if d := g.Check(near); !d.Allowed {
		t.Errorf("near point denied at %.1f m", d.DistanceMeters)
	}
	if d := g.Check(far); d.Allowed {
		t.Errorf("far point allowed at %.1f m", d.DistanceMeters)
	}
}

func TestGate_EvaluateUnavailable(t *testing.T) {
	g := Gate{Anchor: store, RadiusMeters: 150}
	if g.Evaluate(Event{Unavailable: true}).Allowed {
		t.Fatal("unavailable location allowed")
	}
	if !g.Evaluate(Event{Position: &store}).Allowed {
		t.Fatal("anchor position denied")
	}
}

func TestWatcher_StartsUnavailable(t *testing.T) {
	w := NewWatcher()
	if !w.Last().Unavailable {
		t.Fatal("new watcher should report unavailable")
	}
}

func TestWatcher_SubscribeReceivesEvents(t *testing.T) {
	w := NewWatcher()
	ch, cancel := w.Subscribe()
	defer cancel()

	p := Coordinate{Lat: 1, Lng: 2}
	w.Publish(Event{Position: &p})

	select {
	case e := <-ch:
		if e.Position == nil || *e.Position != p {
			t.Fatalf("event position: got %+v", e.Position)
		}
		if e.At.IsZero() {
			t.Error("publish did not stamp event time")
		}
	case <-time.After(time.Second):
		t.Fatal("no event delivered")
	}

	if w.Last().Position == nil {
		t.Error("last event not recorded")
	}
}

func TestWatcher_CancelClosesAndDetaches(t *testing.T) {
	w := NewWatcher()
	ch, cancel := w.Subscribe()
	cancel()
	cancel()

	if _, ok := <-ch; ok {
		t.Fatal("channel still open after cancel")
	}
	if w.Subscribers() != 0 {
		t.Fatalf("subscribers: got %d, want 0", w.Subscribers())
	}

	// Publishing after cancel must not panic on a closed channel.
	w.Publish(Event{Unavailable: true})
}

func TestWatcher_SlowSubscriberDoesNotBlock(t *testing.T) {
	w := NewWatcher()
	_, cancel := w.Subscribe()
	defer cancel()

	done := make(chan struct{})
	go func() {
		for i := 0; i < subscriberBuffer*4; i++ {
			w.Publish(Event{Unavailable: true})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a full subscriber")
	}
}

func TestWatcher_NilPositionMeansUnavailable(t *testing.T) {
	w := NewWatcher()
	w.Publish(Event{})
	if !w.Last().Unavailable {
		t.Fatal("event without position should be unavailable")
	}
}

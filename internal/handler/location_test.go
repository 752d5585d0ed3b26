package handler_test

import (
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/scanpay/api/internal/geofence"
	"github.com/scanpay/api/internal/handler"
	"github.com/scanpay/api/internal/service"
)

var testGate = geofence.Gate{
	Anchor:       geofence.Coordinate{Lat: 12.9716, Lng: 77.5946},
	RadiusMeters: 100,
}

func locationRouter(sessions *service.Sessions) chi.Router {
	h := handler.NewLocationHandler(sessions, testGate)
	r := chi.NewRouter()
	h.RegisterRoutes(r)
	return r
}

func TestLocation_InsideAndOutside(t *testing.T) {
	router := locationRouter(service.NewSessions())
	asha := customer("asha")

	rr := sendAs(t, router, asha, "POST", "/location", map[string]float64{"lat": 12.9717, "lng": 77.5946})
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d; body: %s", rr.Code, rr.Body.String())
	}
	if resp := decodeResponse(t, rr); resp["allowed"] != true {
		t.Errorf("inside: %+v", resp)
	}

	rr = sendAs(t, router, asha, "POST", "/location", map[string]float64{"lat": 12.99, "lng": 77.5946})
	resp := decodeResponse(t, rr)
	if resp["allowed"] != false {
		t.Errorf("outside: %+v", resp)
	}
	if d, _ := resp["distance_meters"].(float64); d < 100 {
		t.Errorf("distance: got %v", resp["distance_meters"])
	}
}

func TestLocation_Unavailable(t *testing.T) {
	router := locationRouter(service.NewSessions())
	rr := sendAs(t, router, customer("asha"), "POST", "/location", map[string]bool{"unavailable": true})
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d", rr.Code)
	}
	resp := decodeResponse(t, rr)
	if resp["allowed"] != false || resp["distance_meters"] != nil {
		t.Errorf("unavailable: %+v", resp)
	}
}

func TestLocation_Validation(t *testing.T) {
	router := locationRouter(service.NewSessions())
	tests := []interface{}{
		map[string]float64{"lat": 12.97},
		map[string]float64{"lat": 95, "lng": 77},
		map[string]interface{}{},
	}
	for _, body := range tests {
		if rr := sendAs(t, router, customer("asha"), "POST", "/location", body); rr.Code != http.StatusBadRequest {
			t.Errorf("%v: status %d, want 400", body, rr.Code)
		}
	}
}

func TestGeofenceStatus_NoFixYet(t *testing.T) {
	rr := sendAs(t, locationRouter(service.NewSessions()), customer("asha"), "GET", "/geofence", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d", rr.Code)
	}
	if resp := decodeResponse(t, rr); resp["allowed"] != false {
		t.Errorf("expected denial before any fix: %+v", resp)
	}
}

func TestGeofenceFeed_StreamsAndCancels(t *testing.T) {
	sessions := service.NewSessions()
	feed := handler.GeofenceFeed(sessions, testGate)
	events, cancel := feed("asha")

	loc := sessions.Get("asha").Location
	if loc.Subscribers() != 1 {
		t.Fatalf("subscribers: got %d, want 1", loc.Subscribers())
	}

	loc.Publish(geofence.Event{Position: &geofence.Coordinate{Lat: 12.9716, Lng: 77.5946}})
	select {
	case ev := <-events:
		if ev.Type != "geofence.changed" {
			t.Errorf("type: got %q", ev.Type)
		}
	case <-time.After(time.Second):
		t.Fatal("no event received")
	}

	cancel()
	select {
	case _, ok := <-events:
		if ok {
			t.Fatal("unexpected event after cancel")
		}
	case <-time.After(time.Second):
		t.Fatal("feed not closed after cancel")
	}
	if loc.Subscribers() != 0 {
		t.Errorf("subscribers after cancel: got %d", loc.Subscribers())
	}
}

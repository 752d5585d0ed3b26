package handler

import (
	"encoding/json"
	"math"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/scanpay/api/internal/geofence"
	"github.com/scanpay/api/internal/service"
	"github.com/scanpay/api/internal/ws"
)

// LocationHandler receives device positions and answers whether the
// shopper is inside the store.
type LocationHandler struct {
	sessions *service.Sessions
	gate     geofence.Gate
}

func NewLocationHandler(sessions *service.Sessions, gate geofence.Gate) *LocationHandler {
	return &LocationHandler{sessions: sessions, gate: gate}
}

func (h *LocationHandler) RegisterRoutes(r chi.Router) {
	r.Post("/location", h.Report)
	r.Get("/geofence", h.Status)
}

// locationRequest carries either a position or unavailable=true.
type locationRequest struct {
	Lat         *float64 `json:"lat" validate:"omitempty,latitude"`
	Lng         *float64 `json:"lng" validate:"omitempty,longitude"`
	Unavailable bool     `json:"unavailable"`
}

type geofenceResponse struct {
	Allowed        bool     `json:"allowed"`
	DistanceMeters *float64 `json:"distance_meters"`
	RadiusMeters   float64  `json:"radius_meters"`
}

func (h *LocationHandler) decision(e geofence.Event) geofenceResponse {
	d := h.gate.Evaluate(e)
	resp := geofenceResponse{Allowed: d.Allowed, RadiusMeters: h.gate.RadiusMeters}
	if !math.IsInf(d.DistanceMeters, 0) {
		dist := math.Round(d.DistanceMeters*10) / 10
		resp.DistanceMeters = &dist
	}
	return resp
}

// Report publishes the device's latest location event to its session.
func (h *LocationHandler) Report(w http.ResponseWriter, r *http.Request) {
	s, ok := currentSession(w, r, h.sessions)
	if !ok {
		return
	}
	var req locationRequest
	if !decodeValid(w, r, &req) {
		return
	}

	if !req.Unavailable && (req.Lat == nil || req.Lng == nil) {
		writeJSON(w, http.StatusBadRequest, validationResponse{
			Error:  "validation failed",
			Fields: map[string]string{"lat": "lat and lng are required unless unavailable is set"},
		})
		return
	}

	e := geofence.Event{Unavailable: true}
	if !req.Unavailable {
		e = geofence.Event{Position: &geofence.Coordinate{Lat: *req.Lat, Lng: *req.Lng}}
	}
	s.Location.Publish(e)
	writeJSON(w, http.StatusOK, h.decision(s.Location.Last()))
}

func (h *LocationHandler) Status(w http.ResponseWriter, r *http.Request) {
	s, ok := currentSession(w, r, h.sessions)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, h.decision(s.Location.Last()))
}

// GeofenceFeed streams a user's gate decisions over their WebSocket
// connection for as long as it stays open.
func GeofenceFeed(sessions *service.Sessions, gate geofence.Gate) ws.Feed {
	h := &LocationHandler{sessions: sessions, gate: gate}
	return func(username string) (<-chan ws.Event, func()) {
		src, cancel := sessions.Get(username).Location.Subscribe()
		out := make(chan ws.Event, 8)
		go func() {
			defer close(out)
			for e := range src {
				b, err := json.Marshal(h.decision(e))
				if err != nil {
					continue
				}
				select {
				case out <- ws.Event{Type: "geofence.changed", Payload: b}:
				default:
				}
			}
		}()
		return out, cancel
	}
}

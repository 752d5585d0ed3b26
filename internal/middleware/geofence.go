package middleware

import (
	"net/http"

	"github.com/scanpay/api/internal/geofence"
)

// LocationLookup returns the last location event reported by username.
type LocationLookup func(username string) geofence.Event

// RequireInsideStore rejects requests from users whose last reported
// position is unknown or outside the gate.
func RequireInsideStore(gate geofence.Gate, last LocationLookup) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := ClaimsFromContext(r.Context())
			if claims == nil {
				writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
				return
			}
			d := gate.Evaluate(last(claims.Username))
			if !d.Allowed {
				writeJSON(w, http.StatusForbidden, map[string]string{"error": "you must be inside the store"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

package handler

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/scanpay/api/internal/middleware"
	"github.com/scanpay/api/internal/service"
	"github.com/scanpay/api/internal/validate"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("ERROR: failed to encode JSON response: %v", err)
	}
}

type validationResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields"`
}

// decodeValid decodes the body into dst and validates it, writing a 400
// and returning false on any problem.
func decodeValid(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return false
	}
	if res := validate.Struct(dst); !res.OK() {
		writeJSON(w, http.StatusBadRequest, validationResponse{Error: "validation failed", Fields: res.Fields})
		return false
	}
	return true
}

// currentSession resolves the caller's session from the auth claims.
func currentSession(w http.ResponseWriter, r *http.Request, sessions *service.Sessions) (*service.Session, bool) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return nil, false
	}
	return sessions.Get(claims.Username), true
}

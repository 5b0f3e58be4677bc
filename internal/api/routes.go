package api

import (
	"encoding/json"
	"net/http"

	"github.com/pion/logging"

	"aq-media-node/internal/database"
)

// RegisterAuditRoutes wires the JWT-gated audit endpoints onto mux:
// GET /admin/v1/audit/rooms and GET /admin/v1/audit/relays, both reading
// from the write-only persistence tables in internal/database.
func RegisterAuditRoutes(mux *http.ServeMux, logger logging.LeveledLogger) {
	auth := AuthMiddleware(adminSecret(), logger)

	mux.Handle("/admin/v1/audit/rooms", auth(http.HandlerFunc(roomsAuditHandler)))
	mux.Handle("/admin/v1/audit/relays", auth(http.HandlerFunc(relaysAuditHandler)))
	mux.HandleFunc("/admin/v1/token", GenerateAdminTokenHandler)
}

func roomsAuditHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	rows, err := database.RecentRoomEvents(100)
	if err != nil {
		respondJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	json.NewEncoder(w).Encode(rows)
}

func relaysAuditHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	rows, err := database.RecentRelayEvents(100)
	if err != nil {
		respondJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	json.NewEncoder(w).Encode(rows)
}

package gateway

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// WebSocketHandler serves the market event feed
type WebSocketHandler struct {
	connectionManager *ConnectionManager
}

func NewWebSocketHandler(cm *ConnectionManager) *WebSocketHandler {
	return &WebSocketHandler{connectionManager: cm}
}

// HandleMarketConnection upgrades /ws/market. With team_id set the client only receives
// events concerning that team; without it, every event.
func (h *WebSocketHandler) HandleMarketConnection(w http.ResponseWriter, r *http.Request) {
	teamID := uuid.Nil
	if raw := r.URL.Query().Get("team_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			http.Error(w, "invalid team_id format", http.StatusBadRequest)
			return
		}
		teamID = id
	}

	if err := h.connectionManager.UpgradeConnection(w, r, teamID); err != nil {
		// the upgrader has already replied to the client
		log.Error().Err(err).Str("team_id", teamID.String()).Msg("failed to upgrade WebSocket connection")
	}
}

func (h *WebSocketHandler) HandleConnectionStats(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(h.connectionManager.Stats())
}

func (h *WebSocketHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/ws/market", h.HandleMarketConnection)
	mux.HandleFunc("/ws/stats", h.HandleConnectionStats)
}

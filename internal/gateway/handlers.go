package gateway

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin:       func(r *http.Request) bool { return true },
	EnableCompression: true,
}

// Routes returns a mux serving /ws and /api/events.
func (h *Hub) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", h.ServeWS)
	mux.HandleFunc("/api/events", h.ServeEvents)
	return mux
}

func (h *Hub) authorize(w http.ResponseWriter, r *http.Request) bool {
	if h.auth == nil {
		return true
	}
	if _, err := h.auth.Authenticate(r); err != nil {
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return false
	}
	return true
}

// ServeWS upgrades to WebSocket. ?since=<seq> replays buffered frames newer
// than seq before live frames.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	if !h.authorize(w, r) {
		return
	}
	since := parseSince(r)
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[gateway] upgrade failed: %v", err)
		return
	}
	h.register(conn, since)
}

// ServeEvents returns buffered frames newer than ?since as a JSON array.
func (h *Hub) ServeEvents(w http.ResponseWriter, r *http.Request) {
	if !h.authorize(w, r) {
		return
	}
	entries := h.replay.Since(parseSince(r))
	frames := make([]json.RawMessage, len(entries))
	for i, e := range entries {
		frames[i] = e.Data
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(frames)
}

// noReplay makes Since return nothing.
const noReplay = 1<<63 - 1

// parseSince reads ?since. Absent or invalid means live frames only;
// since=0 replays the whole buffer.
func parseSince(r *http.Request) int64 {
	v := r.URL.Query().Get("since")
	if v == "" {
		return noReplay
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return noReplay
	}
	return n
}

package server

import (
	"log"
	"net/http"

	"github.com/danceframe/danceframe/internal/app"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

// ScoreHandler pushes the throttled score feed to WebSocket clients. Each
// client gets its own subscription; the publisher already coalesces
// updates, so the handler just forwards.
type ScoreHandler struct {
	app *app.App
}

// NewScoreHandler creates a new ScoreHandler backed by the given app.
func NewScoreHandler(a *app.App) *ScoreHandler {
	return &ScoreHandler{app: a}
}

// ServeHTTP handles WebSocket upgrade requests.
func (h *ScoreHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade error: %v", err)
		return
	}
	defer conn.Close()

	updates, cancel := h.app.Publisher().Subscribe()
	defer cancel()

	// Drain client messages so pings and close frames are processed.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-done:
			return
		case u, ok := <-updates:
			if !ok {
				return
			}
			if err := conn.WriteJSON(u); err != nil {
				return
			}
		}
	}
}

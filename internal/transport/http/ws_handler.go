package http

import (
	"log"
	"net/http"

	"github.com/gorilla/websocket"
	"relapitch/internal/app"
	"relapitch/internal/domain"
)

// WSHandler streams progress snapshots to the score/quest widget so every
// open tab sees awards and quest updates as they happen.
type WSHandler struct {
	service  *app.ProgressService
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.ProgressService) *WSHandler {
	return &WSHandler{
		service: service,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type outboundMessage struct {
	Type    string                  `json:"type"`
	Payload domain.ProgressSnapshot `json:"payload"`
}

// ServeWS upgrades the request and pushes a snapshot on every session change.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	user := r.URL.Query().Get("userId")
	if user == "" {
		http.Error(w, "missing userId", http.StatusBadRequest)
		return
	}

	updates, cancel, err := h.service.Subscribe(r.Context(), user)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	defer cancel()

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	// Reader only watches for the client going away.
	readerDone := make(chan struct{})
	go func() {
		defer close(readerDone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case snapshot, ok := <-updates:
			if !ok {
				return
			}
			if err := conn.WriteJSON(outboundMessage{Type: "progress", Payload: snapshot}); err != nil {
				log.Printf("ws write error: %v", err)
				return
			}
		case <-readerDone:
			return
		}
	}
}

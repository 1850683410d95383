package api

import (
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

const keepAlivePingInterval = 10 * time.Second

// streamFeed отдает новые посты по мере создания через websocket.
func (h *Handler) streamFeed(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade уже ответил клиенту
		log.Printf("websocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	subID, posts := h.Observer.Subscribe()
	defer h.Observer.Unsubscribe(subID)

	// Горутина для обнаружения отключения клиента.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(keepAlivePingInterval)
	defer ticker.Stop()

	for {
		select {
		case post := <-posts:
			if err := conn.WriteJSON(post); err != nil {
				return
			}
		case <-ticker.C:
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-done:
			return
		case <-r.Context().Done():
			return
		}
	}
}

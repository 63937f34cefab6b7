package api

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"star-core/internal/events"
	"star-core/pkg/i18n"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// websocket streams every run lifecycle event as an events.Envelope.
func (s *Server) websocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf(i18n.Get("WSUpgradeFailed"), err)
		return
	}
	defer conn.Close()

	if s.Bus == nil {
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"error":"bus not ready"}`))
		return
	}

	addr := c.ClientIP()
	log.Printf(i18n.Get("WSClientConnected"), addr)
	defer log.Printf(i18n.Get("WSClientDisconnected"), addr)

	stream, unsub := s.Bus.SubscribeAll(events.All, 100)
	defer unsub()

	// The reader only detects the client going away.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-closed:
			return
		case <-c.Request.Context().Done():
			return
		case msg, ok := <-stream:
			if !ok {
				return
			}
			if err := conn.WriteJSON(msg); err != nil {
				log.Printf("[WS] write error: %v", err)
				return
			}
		}
	}
}

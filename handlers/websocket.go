package handlers

import (
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	gorilla "github.com/gorilla/websocket"

	"github.com/DamianoLaRosa/Participium/models"
	"github.com/DamianoLaRosa/Participium/websocket"
)

var upgrader = gorilla.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // CORS is enforced at the HTTP layer
	},
}

// HandleWebSocket upgrades the connection and registers the client with the
// hub. The client is auto-joined to its identity room; report rooms are
// joined through join_report frames.
func (h *Handlers) HandleWebSocket(c *gin.Context) {
	actor, ok := identity(c)
	if !ok {
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	hub := h.service.Hub()
	client := websocket.NewClient(hub, conn, websocket.Identity{
		Kind: actor.Kind(),
		ID:   actor.ID,
	})
	hub.Register <- client

	go client.WritePump()
	go client.ReadPump()
}

// WebSocketHealth reports hub statistics.
func (h *Handlers) WebSocketHealth(c *gin.Context) {
	clients, rooms, delivered := h.service.Hub().GetStats()
	c.JSON(http.StatusOK, models.HealthResponse{
		Status:           "healthy",
		Service:          "participium-realtime",
		Timestamp:        time.Now().UTC().Format(time.RFC3339),
		ConnectedClients: clients,
		ActiveRooms:      rooms,
		EventsDelivered:  delivered,
	})
}

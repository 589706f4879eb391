package websocket

import (
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/DamianoLaRosa/Participium/models"
)

// Event names pushed to clients.
const (
	EventNewMessage      = "new_message"
	EventNewNotification = "new_notification"
)

// RoomReport is the per-report channel joined while viewing a chat.
func RoomReport(reportID int) string {
	return fmt.Sprintf("report:%d", reportID)
}

// RoomIdentity is the per-identity channel joined automatically on connect.
func RoomIdentity(kind string, id int) string {
	return fmt.Sprintf("%s:%d", kind, id)
}

type subscription struct {
	client *Client
	room   string
}

type envelope struct {
	room string
	data []byte
}

// Hub is the connection registry and room membership model. Connections are
// registered per authenticated identity (multiple per identity allowed),
// auto-joined to their identity room, and may join/leave report rooms.
// All live subscriptions are in-memory only; clients rebuild them on
// reconnect.
type Hub struct {
	// Registered clients
	clients map[*Client]bool

	// Room membership, both directions
	rooms       map[string]map[*Client]bool
	clientRooms map[*Client]map[string]bool

	// Register requests from clients
	Register chan *Client

	// Unregister requests from clients
	Unregister chan *Client

	join  chan subscription
	leave chan subscription
	emit  chan envelope

	// Mutex for thread-safe operations
	mutex sync.RWMutex

	// Statistics
	connectedClients int
	eventsDelivered  int
}

// NewHub creates a new WebSocket hub
func NewHub() *Hub {
	return &Hub{
		clients:     make(map[*Client]bool),
		rooms:       make(map[string]map[*Client]bool),
		clientRooms: make(map[*Client]map[string]bool),
		Register:    make(chan *Client),
		Unregister:  make(chan *Client),
		join:        make(chan subscription, 64),
		leave:       make(chan subscription, 64),
		emit:        make(chan envelope, 256),
	}
}

// Run starts the hub's main loop
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.Register:
			h.mutex.Lock()
			h.clients[client] = true
			h.clientRooms[client] = make(map[string]bool)
			h.connectedClients = len(h.clients)
			h.mutex.Unlock()

			// Identity room membership is automatic, never joinable.
			h.addToRoom(client, RoomIdentity(client.identity.Kind, client.identity.ID))
			log.Printf("Client connected: %s:%d. Total clients: %d",
				client.identity.Kind, client.identity.ID, h.connectedClients)

		case client := <-h.Unregister:
			h.removeClient(client)

		case sub := <-h.join:
			h.addToRoom(sub.client, sub.room)

		case sub := <-h.leave:
			h.removeFromRoom(sub.client, sub.room)

		case env := <-h.emit:
			h.deliver(env)
		}
	}
}

func (h *Hub) addToRoom(client *Client, room string) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	if !h.clients[client] {
		return
	}
	if h.rooms[room] == nil {
		h.rooms[room] = make(map[*Client]bool)
	}
	h.rooms[room][client] = true
	h.clientRooms[client][room] = true
}

func (h *Hub) removeFromRoom(client *Client, room string) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	if members, ok := h.rooms[room]; ok {
		delete(members, client)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
	if rooms, ok := h.clientRooms[client]; ok {
		delete(rooms, room)
	}
}

// removeClient drops a connection from every joined room unconditionally.
func (h *Hub) removeClient(client *Client) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	if _, ok := h.clients[client]; !ok {
		return
	}
	for room := range h.clientRooms[client] {
		if members, ok := h.rooms[room]; ok {
			delete(members, client)
			if len(members) == 0 {
				delete(h.rooms, room)
			}
		}
	}
	delete(h.clientRooms, client)
	delete(h.clients, client)
	close(client.send)
	h.connectedClients = len(h.clients)
	log.Printf("Client disconnected: %s:%d. Total clients: %d",
		client.identity.Kind, client.identity.ID, h.connectedClients)
}

func (h *Hub) deliver(env envelope) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	for client := range h.rooms[env.room] {
		select {
		case client.send <- env.data:
			h.eventsDelivered++
		default:
			// Slow consumer: drop the connection rather than block the hub.
			for room := range h.clientRooms[client] {
				delete(h.rooms[room], client)
				if len(h.rooms[room]) == 0 {
					delete(h.rooms, room)
				}
			}
			delete(h.clientRooms, client)
			delete(h.clients, client)
			close(client.send)
		}
	}
	h.connectedClients = len(h.clients)
}

// Join subscribes a connection to a room.
func (h *Hub) Join(client *Client, room string) {
	h.join <- subscription{client: client, room: room}
}

// Leave unsubscribes a connection from a room.
func (h *Hub) Leave(client *Client, room string) {
	h.leave <- subscription{client: client, room: room}
}

// Emit pushes an event to every connection currently in the room. Delivery
// is best effort: when nobody is subscribed the event is simply not pushed.
func (h *Hub) Emit(room, event string, payload interface{}) {
	message := models.BroadcastMessage{
		Type:      event,
		Data:      payload,
		Timestamp: time.Now(),
	}

	data, err := json.Marshal(message)
	if err != nil {
		log.Printf("Failed to marshal broadcast message: %v", err)
		return
	}

	h.emit <- envelope{room: room, data: data}
}

// GetStats returns current hub statistics
func (h *Hub) GetStats() (int, int, int) {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return h.connectedClients, len(h.rooms), h.eventsDelivered
}

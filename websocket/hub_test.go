package websocket

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/DamianoLaRosa/Participium/models"
)

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func receive(t *testing.T, c *Client) models.BroadcastMessage {
	t.Helper()
	select {
	case data := <-c.send:
		var msg models.BroadcastMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			t.Fatalf("invalid frame: %v", err)
		}
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("no frame received")
	}
	return models.BroadcastMessage{}
}

func TestHubAutoJoinsIdentityRoom(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	client := NewClient(hub, nil, Identity{Kind: "citizen", ID: 10})
	hub.Register <- client
	waitFor(t, "registration", func() bool {
		clients, _, _ := hub.GetStats()
		return clients == 1
	})

	hub.Emit(RoomIdentity("citizen", 10), EventNewNotification, map[string]int{"id": 1})

	msg := receive(t, client)
	if msg.Type != EventNewNotification {
		t.Errorf("expected %q frame, got %q", EventNewNotification, msg.Type)
	}
}

func TestHubReportRoomJoinAndLeave(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	client := NewClient(hub, nil, Identity{Kind: "operator", ID: 7})
	hub.Register <- client
	waitFor(t, "registration", func() bool {
		clients, _, _ := hub.GetStats()
		return clients == 1
	})

	room := RoomReport(42)
	hub.Join(client, room)
	waitFor(t, "room join", func() bool {
		hub.mutex.RLock()
		defer hub.mutex.RUnlock()
		return hub.rooms[room][client]
	})

	hub.Emit(room, EventNewMessage, map[string]int{"report_id": 42})
	if msg := receive(t, client); msg.Type != EventNewMessage {
		t.Errorf("expected %q frame, got %q", EventNewMessage, msg.Type)
	}

	hub.Leave(client, room)
	waitFor(t, "room leave", func() bool {
		hub.mutex.RLock()
		defer hub.mutex.RUnlock()
		return hub.rooms[room] == nil
	})

	// No frame should arrive after leaving the room.
	hub.Emit(room, EventNewMessage, map[string]int{"report_id": 42})
	select {
	case data := <-client.send:
		t.Errorf("unexpected frame after leave: %s", data)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHubDeliversToEveryConnectionOfAnIdentity(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	first := NewClient(hub, nil, Identity{Kind: "citizen", ID: 10})
	second := NewClient(hub, nil, Identity{Kind: "citizen", ID: 10})
	hub.Register <- first
	hub.Register <- second
	waitFor(t, "registrations", func() bool {
		clients, _, _ := hub.GetStats()
		return clients == 2
	})

	hub.Emit(RoomIdentity("citizen", 10), EventNewNotification, map[string]int{"id": 1})

	if msg := receive(t, first); msg.Type != EventNewNotification {
		t.Errorf("first connection got %q", msg.Type)
	}
	if msg := receive(t, second); msg.Type != EventNewNotification {
		t.Errorf("second connection got %q", msg.Type)
	}
}

func TestHubUnregisterCleansUpRooms(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	client := NewClient(hub, nil, Identity{Kind: "citizen", ID: 10})
	hub.Register <- client
	waitFor(t, "registration", func() bool {
		clients, _, _ := hub.GetStats()
		return clients == 1
	})
	hub.Join(client, RoomReport(42))
	waitFor(t, "room join", func() bool {
		hub.mutex.RLock()
		defer hub.mutex.RUnlock()
		return hub.rooms[RoomReport(42)][client]
	})

	hub.Unregister <- client
	waitFor(t, "unregistration", func() bool {
		clients, rooms, _ := hub.GetStats()
		return clients == 0 && rooms == 0
	})

	// The send channel is closed on unregister.
	if _, ok := <-client.send; ok {
		t.Error("send channel should be closed after unregister")
	}
}

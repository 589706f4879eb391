package service

import (
	"github.com/apex/log"

	"github.com/DamianoLaRosa/Participium/events"
	"github.com/DamianoLaRosa/Participium/rabbitmq"
	"github.com/DamianoLaRosa/Participium/websocket"
)

// bindDelivery wires the event bus into the WebSocket hub. Messages go to
// the report room, notifications to the owning citizen's identity room.
func (s *Service) bindDelivery() {
	s.bus.Subscribe(func(e events.Event) {
		switch e.Type {
		case events.TypeMessageCreated:
			if e.Message != nil {
				s.hub.Emit(websocket.RoomReport(e.Message.ReportID), websocket.EventNewMessage, e.Message)
			}
		case events.TypeNotificationCreated:
			if e.Notification != nil {
				room := websocket.RoomIdentity("citizen", e.Notification.CitizenID)
				s.hub.Emit(room, websocket.EventNewNotification, e.Notification)
			}
		}
	})
}

// bindPublisher mirrors every domain event onto the RabbitMQ exchange so
// sibling municipal services can react. Publish failures are logged and
// never fail the originating request.
func (s *Service) bindPublisher() {
	s.bus.Subscribe(func(e events.Event) {
		var (
			key     string
			payload interface{}
		)
		switch e.Type {
		case events.TypeStatusChanged:
			key, payload = rabbitmq.RoutingKeyStatus, e.Report
		case events.TypeMessageCreated:
			key, payload = rabbitmq.RoutingKeyMessage, e.Message
		case events.TypeNotificationCreated:
			key, payload = rabbitmq.RoutingKeyNotification, e.Notification
		default:
			return
		}
		if err := s.publisher.Publish(key, wireEvent{Type: e.Type, Data: payload}); err != nil {
			log.WithError(err).WithField("routing_key", key).Error("failed to publish event")
		}
	})
}

// wireEvent is the envelope published to RabbitMQ.
type wireEvent struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// Hub exposes the live delivery stats for health reporting.
func (s *Service) Hub() *websocket.Hub {
	return s.hub
}

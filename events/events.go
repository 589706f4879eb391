package events

import (
	"github.com/DamianoLaRosa/Participium/models"
)

// Event types published on the bus.
const (
	TypeStatusChanged       = "status_changed"
	TypeMessageCreated      = "message_created"
	TypeNotificationCreated = "notification_created"
)

// Event is a domain event emitted by the services after a committed write.
// Exactly one of the payload fields is set, matching Type.
type Event struct {
	Type         string
	Report       *models.Report
	Message      *models.Message
	Notification *models.Notification
}

// StatusChanged builds a status transition event.
func StatusChanged(report *models.Report) Event {
	return Event{Type: TypeStatusChanged, Report: report}
}

// MessageCreated builds a new chat message event.
func MessageCreated(message *models.Message) Event {
	return Event{Type: TypeMessageCreated, Message: message}
}

// NotificationCreated builds a new notification event.
func NotificationCreated(notification *models.Notification) Event {
	return Event{Type: TypeNotificationCreated, Notification: notification}
}

package events

import (
	"testing"

	"github.com/DamianoLaRosa/Participium/models"
)

func TestBusDeliversInSubscriptionOrder(t *testing.T) {
	bus := NewBus()

	var order []string
	bus.Subscribe(func(e Event) { order = append(order, "first") })
	bus.Subscribe(func(e Event) { order = append(order, "second") })

	bus.Publish(MessageCreated(&models.Message{ID: 1, ReportID: 2}))

	if len(order) != 2 || order[0] != "first" || order[1] != "second" {
		t.Errorf("unexpected handler order: %v", order)
	}
}

func TestBusPublishWithoutSubscribers(t *testing.T) {
	bus := NewBus()
	// Must not panic.
	bus.Publish(StatusChanged(&models.Report{ID: 1}))
}

func TestEventConstructors(t *testing.T) {
	msg := &models.Message{ID: 3}
	notif := &models.Notification{ID: 4}
	report := &models.Report{ID: 5}

	if e := MessageCreated(msg); e.Type != TypeMessageCreated || e.Message != msg {
		t.Errorf("MessageCreated produced %+v", e)
	}
	if e := NotificationCreated(notif); e.Type != TypeNotificationCreated || e.Notification != notif {
		t.Errorf("NotificationCreated produced %+v", e)
	}
	if e := StatusChanged(report); e.Type != TypeStatusChanged || e.Report != report {
		t.Errorf("StatusChanged produced %+v", e)
	}
}

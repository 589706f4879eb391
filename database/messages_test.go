package database

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"

	"github.com/DamianoLaRosa/Participium/models"
)

func TestHasOperatorMessageIgnoresSystemSender(t *testing.T) {
	it(func() {
		mock.ExpectQuery("SELECT EXISTS").
			WithArgs(42, models.SenderOperator, models.SystemSenderID).
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

		d := NewFromDB(db)
		started, err := d.HasOperatorMessage(context.Background(), 42)
		if err != nil {
			t.Fatalf("HasOperatorMessage failed: %v", err)
		}
		if started {
			t.Error("system messages must not count as operator messages")
		}
	})
}

func TestInsertMessage(t *testing.T) {
	it(func() {
		mock.ExpectExec("INSERT INTO messages").
			WithArgs(42, 7, models.SenderOperator, "We are on it", sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(101, 1))

		d := NewFromDB(db)
		msg, err := d.InsertMessage(context.Background(), 42, 7, models.SenderOperator, "We are on it")
		if err != nil {
			t.Fatalf("InsertMessage failed: %v", err)
		}
		if msg.ID != 101 || msg.ReportID != 42 || msg.SenderID != 7 {
			t.Errorf("unexpected message %+v", msg)
		}
	})
}

func TestGetMessagesOrder(t *testing.T) {
	it(func() {
		base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
		mock.ExpectQuery("SELECT message_id, report_id, sender_id, sender_type, content, sent_at").
			WithArgs(42).
			WillReturnRows(sqlmock.NewRows(
				[]string{"message_id", "report_id", "sender_id", "sender_type", "content", "sent_at"}).
				AddRow(1, 42, 0, models.SenderSystem, "Status changed to Approved", base).
				AddRow(2, 42, 7, models.SenderOperator, "We are on it", base.Add(time.Minute)))

		d := NewFromDB(db)
		messages, err := d.GetMessages(context.Background(), 42)
		if err != nil {
			t.Fatalf("GetMessages failed: %v", err)
		}
		if len(messages) != 2 {
			t.Fatalf("expected 2 messages, got %d", len(messages))
		}
		if messages[0].SenderType != models.SenderSystem || messages[1].SenderType != models.SenderOperator {
			t.Errorf("unexpected ordering: %+v", messages)
		}
	})
}

func TestGetChatsByCitizenExcludesPendingAndRejected(t *testing.T) {
	it(func() {
		mock.ExpectQuery("SELECT(.+)FROM reports r(.+)WHERE r.citizen_id = (.+)").
			WithArgs(10, models.StatusPending, models.StatusRejected).
			WillReturnRows(sqlmock.NewRows(
				[]string{"report_id", "title", "status_id", "status_name", "report_created_at",
					"content", "sender_type", "sent_at", "message_count", "last_activity"}).
				AddRow(42, "Broken streetlight", models.StatusApproved, "Approved",
					time.Now(), nil, nil, nil, 0, nil))

		d := NewFromDB(db)
		chats, err := d.GetChatsByCitizen(context.Background(), 10)
		if err != nil {
			t.Fatalf("GetChatsByCitizen failed: %v", err)
		}
		if len(chats) != 1 {
			t.Fatalf("expected 1 chat, got %d", len(chats))
		}
		if chats[0].LastMessage != nil {
			t.Error("chat with no messages should have a nil last message")
		}
		if chats[0].LastActivity.IsZero() {
			t.Error("last activity should fall back to the report creation time")
		}
	})
}

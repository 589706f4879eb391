package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/DamianoLaRosa/Participium/models"
)

func insertNotificationTx(ctx context.Context, tx execer, citizenID, reportID int, reportTitle, message string, newStatusID *int, sentAt time.Time) (*models.Notification, error) {
	var statusVal interface{}
	if newStatusID != nil {
		statusVal = *newStatusID
	}
	result, err := tx.ExecContext(ctx,
		`INSERT INTO notifications (citizen_id, report_id, message, new_status_id, sent_at, seen)
		 VALUES (?, ?, ?, ?, ?, FALSE)`,
		citizenID, reportID, message, statusVal, sentAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert notification: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get notification id: %w", err)
	}

	n := &models.Notification{
		ID:          int(id),
		CitizenID:   citizenID,
		ReportID:    reportID,
		ReportTitle: reportTitle,
		Message:     message,
		NewStatusID: newStatusID,
		SentAt:      sentAt,
	}
	if newStatusID != nil {
		n.StatusName = models.StatusName(*newStatusID)
	}
	return n, nil
}

// InsertNotification persists a notification outside a lifecycle transaction.
func (d *Database) InsertNotification(ctx context.Context, citizenID, reportID int, message string, newStatusID *int) (*models.Notification, error) {
	var title string
	err := d.db.QueryRowContext(ctx,
		`SELECT title FROM reports WHERE report_id = ?`, reportID).Scan(&title)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get report title: %w", err)
	}
	return insertNotificationTx(ctx, d.db, citizenID, reportID, title, message, newStatusID, time.Now().UTC())
}

// GetNotificationsByCitizen returns a citizen's notifications, newest first.
// A limit <= 0 means no limit.
func (d *Database) GetNotificationsByCitizen(ctx context.Context, citizenID, limit int) ([]models.Notification, error) {
	query := `
		SELECT
			n.notification_id, n.citizen_id, n.report_id, n.message,
			n.new_status_id, n.sent_at, n.seen,
			COALESCE(r.title, '') AS report_title,
			COALESCE(s.name, '') AS status_name
		FROM notifications n
		LEFT JOIN reports r ON n.report_id = r.report_id
		LEFT JOIN statuses s ON n.new_status_id = s.status_id
		WHERE n.citizen_id = ?
		ORDER BY n.sent_at DESC, n.notification_id DESC`

	args := []interface{}{citizenID}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query notifications: %w", err)
	}
	defer rows.Close()

	notifications := []models.Notification{}
	for rows.Next() {
		var n models.Notification
		var newStatusID sql.NullInt64
		err := rows.Scan(&n.ID, &n.CitizenID, &n.ReportID, &n.Message,
			&newStatusID, &n.SentAt, &n.Seen, &n.ReportTitle, &n.StatusName)
		if err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		if newStatusID.Valid {
			id := int(newStatusID.Int64)
			n.NewStatusID = &id
		}
		notifications = append(notifications, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating notifications: %w", err)
	}
	return notifications, nil
}

// GetUnreadCount returns the number of unseen notifications for a citizen.
func (d *Database) GetUnreadCount(ctx context.Context, citizenID int) (int, error) {
	var count int
	err := d.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM notifications WHERE citizen_id = ? AND seen = FALSE`,
		citizenID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count unread notifications: %w", err)
	}
	return count, nil
}

// MarkSeen flips a single notification to seen. The citizen id scopes the
// update: a notification belonging to someone else is not found. Returns
// false when no row matched.
func (d *Database) MarkSeen(ctx context.Context, notificationID, citizenID int) (bool, error) {
	result, err := d.db.ExecContext(ctx,
		`UPDATE notifications SET seen = TRUE WHERE notification_id = ? AND citizen_id = ?`,
		notificationID, citizenID)
	if err != nil {
		return false, fmt.Errorf("failed to mark notification seen: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get affected rows: %w", err)
	}
	if affected > 0 {
		return true, nil
	}

	// MySQL reports zero affected rows for a no-change update, so an
	// already-seen notification needs an existence check to stay idempotent.
	var exists bool
	err = d.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM notifications WHERE notification_id = ? AND citizen_id = ?)`,
		notificationID, citizenID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check notification: %w", err)
	}
	return exists, nil
}

// MarkAllSeen flips every unseen notification of a citizen to seen.
func (d *Database) MarkAllSeen(ctx context.Context, citizenID int) error {
	_, err := d.db.ExecContext(ctx,
		`UPDATE notifications SET seen = TRUE WHERE citizen_id = ? AND seen = FALSE`,
		citizenID)
	if err != nil {
		return fmt.Errorf("failed to mark all notifications seen: %w", err)
	}
	return nil
}

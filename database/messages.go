package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/DamianoLaRosa/Participium/models"
)

type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

func insertMessageTx(ctx context.Context, tx execer, reportID, senderID int, senderType, content string, sentAt time.Time) (*models.Message, error) {
	result, err := tx.ExecContext(ctx,
		`INSERT INTO messages (report_id, sender_id, sender_type, content, sent_at) VALUES (?, ?, ?, ?, ?)`,
		reportID, senderID, senderType, content, sentAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert message: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get message id: %w", err)
	}
	return &models.Message{
		ID:         int(id),
		ReportID:   reportID,
		SenderID:   senderID,
		SenderType: senderType,
		Content:    content,
		SentAt:     sentAt,
	}, nil
}

// InsertMessage persists a user-authored message in a report's thread.
func (d *Database) InsertMessage(ctx context.Context, reportID, senderID int, senderType, content string) (*models.Message, error) {
	return insertMessageTx(ctx, d.db, reportID, senderID, senderType, content, time.Now().UTC())
}

// GetMessages returns a thread in strict chronological order; equal
// timestamps are broken by insertion order.
func (d *Database) GetMessages(ctx context.Context, reportID int) ([]models.Message, error) {
	rows, err := d.db.QueryContext(ctx,
		`SELECT message_id, report_id, sender_id, sender_type, content, sent_at
		 FROM messages WHERE report_id = ?
		 ORDER BY sent_at ASC, message_id ASC`, reportID)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()

	messages := []models.Message{}
	for rows.Next() {
		var m models.Message
		if err := rows.Scan(&m.ID, &m.ReportID, &m.SenderID, &m.SenderType, &m.Content, &m.SentAt); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating messages: %w", err)
	}
	return messages, nil
}

// HasOperatorMessage reports whether the thread contains at least one real
// operator-authored message. System messages carry the synthetic sender id
// and do not count: the check requires an operator sender that is not the
// system actor.
func (d *Database) HasOperatorMessage(ctx context.Context, reportID int) (bool, error) {
	var exists bool
	err := d.db.QueryRowContext(ctx,
		`SELECT EXISTS(
			SELECT 1 FROM messages
			WHERE report_id = ? AND sender_type = ? AND sender_id != ?
		)`, reportID, models.SenderOperator, models.SystemSenderID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check operator messages: %w", err)
	}
	return exists, nil
}

// chatSummarySelect annotates each report row with the thread summary. Chats
// are only meaningful once a report has entered active handling, so Pending
// and Rejected reports are excluded.
const chatSummarySelect = `
	SELECT
		r.report_id,
		r.title,
		r.status_id,
		s.name AS status_name,
		r.created_at AS report_created_at,
		lm.content, lm.sender_type, lm.sent_at,
		(SELECT COUNT(*) FROM messages m WHERE m.report_id = r.report_id) AS message_count,
		(SELECT MAX(m.sent_at) FROM messages m WHERE m.report_id = r.report_id) AS last_activity
	FROM reports r
	JOIN statuses s ON r.status_id = s.status_id
	LEFT JOIN messages lm ON lm.message_id = (
		SELECT m.message_id FROM messages m
		WHERE m.report_id = r.report_id
		ORDER BY m.sent_at DESC, m.message_id DESC
		LIMIT 1
	)
`

func scanChatSummary(rows *sql.Rows, withCitizen bool) (*models.ChatSummary, error) {
	var (
		c            models.ChatSummary
		citizenID    sql.NullInt64
		citizenName  sql.NullString
		anonymous    bool
		lmContent    sql.NullString
		lmSenderType sql.NullString
		lmSentAt     sql.NullTime
		lastActivity sql.NullTime
	)

	dest := []interface{}{
		&c.ReportID, &c.Title, &c.StatusID, &c.StatusName, &c.ReportCreatedAt,
		&lmContent, &lmSenderType, &lmSentAt,
		&c.MessageCount, &lastActivity,
	}
	if withCitizen {
		dest = append(dest, &citizenID, &citizenName, &anonymous)
	}
	if err := rows.Scan(dest...); err != nil {
		return nil, err
	}

	if lmContent.Valid {
		c.LastMessage = &models.LastMessage{
			Content:    lmContent.String,
			SenderType: lmSenderType.String,
			SentAt:     lmSentAt.Time,
		}
	}
	c.LastActivity = c.ReportCreatedAt
	if lastActivity.Valid {
		c.LastActivity = lastActivity.Time
	}
	if withCitizen && citizenID.Valid && !anonymous {
		c.Citizen = &models.UserRef{ID: int(citizenID.Int64), Username: citizenName.String}
	}
	return &c, nil
}

// GetChatsByCitizen returns the chat summaries for every report the citizen
// owns, most recent activity first.
func (d *Database) GetChatsByCitizen(ctx context.Context, citizenID int) ([]models.ChatSummary, error) {
	query := chatSummarySelect + `
		WHERE r.citizen_id = ? AND r.status_id NOT IN (?, ?)
		ORDER BY COALESCE(
			(SELECT MAX(m.sent_at) FROM messages m WHERE m.report_id = r.report_id),
			r.created_at
		) DESC`

	rows, err := d.db.QueryContext(ctx, query, citizenID, models.StatusPending, models.StatusRejected)
	if err != nil {
		return nil, fmt.Errorf("failed to query citizen chats: %w", err)
	}
	defer rows.Close()

	chats := []models.ChatSummary{}
	for rows.Next() {
		c, err := scanChatSummary(rows, false)
		if err != nil {
			return nil, fmt.Errorf("failed to scan chat summary: %w", err)
		}
		chats = append(chats, *c)
	}
	return chats, rows.Err()
}

// GetChatsByOperator returns the chat summaries for every report assigned to
// the operator. External maintainers match on the external assignment column.
// The citizen identity is included unless the report is anonymous.
func (d *Database) GetChatsByOperator(ctx context.Context, operatorID int, role string) ([]models.ChatSummary, error) {
	column := "r.assigned_to_operator_id"
	if role == models.RoleExternal {
		column = "r.assigned_to_external_id"
	}

	query := `
	SELECT
		r.report_id,
		r.title,
		r.status_id,
		s.name AS status_name,
		r.created_at AS report_created_at,
		lm.content, lm.sender_type, lm.sent_at,
		(SELECT COUNT(*) FROM messages m WHERE m.report_id = r.report_id) AS message_count,
		(SELECT MAX(m.sent_at) FROM messages m WHERE m.report_id = r.report_id) AS last_activity,
		r.citizen_id, c.username AS citizen_username, r.anonymous
	FROM reports r
	JOIN statuses s ON r.status_id = s.status_id
	LEFT JOIN citizens c ON r.citizen_id = c.citizen_id
	LEFT JOIN messages lm ON lm.message_id = (
		SELECT m.message_id FROM messages m
		WHERE m.report_id = r.report_id
		ORDER BY m.sent_at DESC, m.message_id DESC
		LIMIT 1
	)
	WHERE ` + column + ` = ? AND r.status_id NOT IN (?, ?)
	ORDER BY COALESCE(
		(SELECT MAX(m.sent_at) FROM messages m WHERE m.report_id = r.report_id),
		r.created_at
	) DESC`

	rows, err := d.db.QueryContext(ctx, query, operatorID, models.StatusPending, models.StatusRejected)
	if err != nil {
		return nil, fmt.Errorf("failed to query operator chats: %w", err)
	}
	defer rows.Close()

	chats := []models.ChatSummary{}
	for rows.Next() {
		c, err := scanChatSummary(rows, true)
		if err != nil {
			return nil, fmt.Errorf("failed to scan chat summary: %w", err)
		}
		chats = append(chats, *c)
	}
	return chats, rows.Err()
}

// GetChatDetails returns the thread metadata and access-control identities
// for a report, or nil when the report does not exist.
func (d *Database) GetChatDetails(ctx context.Context, reportID int) (*models.ChatDetails, error) {
	var (
		details     models.ChatDetails
		citizenID   sql.NullInt64
		citizenName sql.NullString
		opID        sql.NullInt64
		opName      sql.NullString
		extID       sql.NullInt64
		extName     sql.NullString
	)

	err := d.db.QueryRowContext(ctx, `
		SELECT
			r.report_id, r.title, r.description, r.status_id, s.name, r.created_at,
			r.citizen_id, c.username,
			r.assigned_to_operator_id, op.username,
			r.assigned_to_external_id, ext.username
		FROM reports r
		JOIN statuses s ON r.status_id = s.status_id
		LEFT JOIN citizens c ON r.citizen_id = c.citizen_id
		LEFT JOIN operators op ON r.assigned_to_operator_id = op.operator_id
		LEFT JOIN operators ext ON r.assigned_to_external_id = ext.operator_id
		WHERE r.report_id = ?`, reportID).
		Scan(&details.ReportID, &details.Title, &details.Description,
			&details.StatusID, &details.StatusName, &details.CreatedAt,
			&citizenID, &citizenName, &opID, &opName, &extID, &extName)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get chat details: %w", err)
	}

	if citizenID.Valid {
		details.Citizen = &models.UserRef{ID: int(citizenID.Int64), Username: citizenName.String}
	}
	if opID.Valid {
		details.Operator = &models.UserRef{ID: int(opID.Int64), Username: opName.String}
	}
	if extID.Valid {
		details.External = &models.UserRef{ID: int(extID.Int64), Username: extName.String}
	}
	return &details, nil
}

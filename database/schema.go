package database

import (
	"context"
	"fmt"

	"github.com/apex/log"
)

// Schema contains the tables the realtime core reads and writes. Citizen and
// operator profile management lives in another service; the shapes here are
// the minimal ones the core needs.
const Schema = `
CREATE TABLE IF NOT EXISTS statuses (
    status_id INT PRIMARY KEY,
    name VARCHAR(64) NOT NULL
);

CREATE TABLE IF NOT EXISTS citizens (
    citizen_id INT AUTO_INCREMENT PRIMARY KEY,
    username VARCHAR(128) NOT NULL,
    email VARCHAR(256) NOT NULL,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS operators (
    operator_id INT AUTO_INCREMENT PRIMARY KEY,
    username VARCHAR(128) NOT NULL,
    email VARCHAR(256) NOT NULL,
    role_name VARCHAR(64) NOT NULL,
    office_id INT NULL,
    company_name VARCHAR(128) NULL,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    INDEX idx_operators_office (office_id)
);

CREATE TABLE IF NOT EXISTS reports (
    report_id INT AUTO_INCREMENT PRIMARY KEY,
    citizen_id INT NULL,
    category_id INT NOT NULL,
    office_id INT NOT NULL,
    status_id INT NOT NULL DEFAULT 1,
    title VARCHAR(256) NOT NULL,
    description TEXT NOT NULL,
    latitude DOUBLE NOT NULL,
    longitude DOUBLE NOT NULL,
    anonymous BOOLEAN NOT NULL DEFAULT FALSE,
    rejection_reason TEXT NULL,
    assigned_to_operator_id INT NULL,
    assigned_to_external_id INT NULL,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
    FOREIGN KEY (status_id) REFERENCES statuses(status_id),
    INDEX idx_reports_citizen (citizen_id),
    INDEX idx_reports_status (status_id),
    INDEX idx_reports_operator (assigned_to_operator_id),
    INDEX idx_reports_external (assigned_to_external_id)
);

CREATE TABLE IF NOT EXISTS photos (
    photo_id INT AUTO_INCREMENT PRIMARY KEY,
    report_id INT NOT NULL,
    image_url VARCHAR(1024) NOT NULL,
    uploaded_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    FOREIGN KEY (report_id) REFERENCES reports(report_id) ON DELETE CASCADE,
    INDEX idx_photos_report (report_id)
);

CREATE TABLE IF NOT EXISTS messages (
    message_id INT AUTO_INCREMENT PRIMARY KEY,
    report_id INT NOT NULL,
    sender_id INT NOT NULL,
    sender_type ENUM('citizen', 'operator', 'system') NOT NULL,
    content TEXT NOT NULL,
    sent_at TIMESTAMP(6) DEFAULT CURRENT_TIMESTAMP(6),
    FOREIGN KEY (report_id) REFERENCES reports(report_id) ON DELETE CASCADE,
    INDEX idx_messages_report (report_id, sent_at, message_id)
);

CREATE TABLE IF NOT EXISTS notifications (
    notification_id INT AUTO_INCREMENT PRIMARY KEY,
    citizen_id INT NOT NULL,
    report_id INT NOT NULL,
    message TEXT NOT NULL,
    new_status_id INT NULL,
    sent_at TIMESTAMP(6) DEFAULT CURRENT_TIMESTAMP(6),
    seen BOOLEAN NOT NULL DEFAULT FALSE,
    FOREIGN KEY (report_id) REFERENCES reports(report_id) ON DELETE CASCADE,
    INDEX idx_notifications_citizen (citizen_id, seen),
    INDEX idx_notifications_sent (citizen_id, sent_at)
);
`

// statusSeed holds the fixed status id space referenced by business rules.
var statusSeed = [...]struct {
	ID   int
	Name string
}{
	{1, "Pending"},
	{2, "Approved"},
	{3, "Rejected"},
	{4, "In Progress"},
	{5, "Resolved"},
}

// EnsureSchema creates the tables and seeds the status enumeration.
func (d *Database) EnsureSchema(ctx context.Context) error {
	if _, err := d.db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	for _, s := range statusSeed {
		_, err := d.db.ExecContext(ctx,
			`INSERT INTO statuses (status_id, name) VALUES (?, ?)
			 ON DUPLICATE KEY UPDATE name = VALUES(name)`, s.ID, s.Name)
		if err != nil {
			return fmt.Errorf("failed to seed status %d: %w", s.ID, err)
		}
	}

	log.Info("database schema ensured")
	return nil
}

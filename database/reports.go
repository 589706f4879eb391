package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/DamianoLaRosa/Participium/models"
)

// reportSelect is the shared read-model projection for reports.
const reportSelect = `
	SELECT
		r.report_id, r.title, r.description, r.latitude, r.longitude, r.anonymous,
		r.category_id, r.office_id, r.rejection_reason,
		r.status_id, s.name AS status_name,
		r.citizen_id, c.username AS citizen_username,
		r.assigned_to_operator_id, op.username, op.email, op.office_id,
		r.assigned_to_external_id, ext.username, ext.email, ext.company_name,
		r.created_at, r.updated_at
	FROM reports r
	JOIN statuses s ON r.status_id = s.status_id
	LEFT JOIN citizens c ON r.citizen_id = c.citizen_id
	LEFT JOIN operators op ON r.assigned_to_operator_id = op.operator_id
	LEFT JOIN operators ext ON r.assigned_to_external_id = ext.operator_id
`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanReport(row rowScanner) (*models.Report, error) {
	var (
		r               models.Report
		rejectionReason sql.NullString
		citizenID       sql.NullInt64
		citizenName     sql.NullString
		opID            sql.NullInt64
		opName, opMail  sql.NullString
		opOffice        sql.NullInt64
		extID           sql.NullInt64
		extName         sql.NullString
		extMail         sql.NullString
		extCompany      sql.NullString
	)

	err := row.Scan(
		&r.ID, &r.Title, &r.Description, &r.Latitude, &r.Longitude, &r.Anonymous,
		&r.CategoryID, &r.OfficeID, &rejectionReason,
		&r.Status.ID, &r.Status.Name,
		&citizenID, &citizenName,
		&opID, &opName, &opMail, &opOffice,
		&extID, &extName, &extMail, &extCompany,
		&r.CreatedAt, &r.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	r.RejectionReason = rejectionReason.String
	if citizenID.Valid {
		r.Citizen = &models.UserRef{ID: int(citizenID.Int64), Username: citizenName.String}
	}
	if opID.Valid {
		r.AssignedToOperator = &models.OperatorRef{
			ID:       int(opID.Int64),
			Username: opName.String,
			Email:    opMail.String,
			OfficeID: int(opOffice.Int64),
		}
	}
	if extID.Valid {
		r.AssignedToExternal = &models.OperatorRef{
			ID:       int(extID.Int64),
			Username: extName.String,
			Email:    extMail.String,
			Company:  extCompany.String,
		}
	}
	r.Photos = []models.Photo{}
	return &r, nil
}

func (d *Database) loadPhotos(ctx context.Context, reportID int) ([]models.Photo, error) {
	rows, err := d.db.QueryContext(ctx,
		`SELECT photo_id, image_url FROM photos WHERE report_id = ? ORDER BY photo_id`, reportID)
	if err != nil {
		return nil, fmt.Errorf("failed to query photos: %w", err)
	}
	defer rows.Close()

	photos := []models.Photo{}
	for rows.Next() {
		var p models.Photo
		if err := rows.Scan(&p.ID, &p.URL); err != nil {
			return nil, fmt.Errorf("failed to scan photo: %w", err)
		}
		photos = append(photos, p)
	}
	return photos, rows.Err()
}

// GetReportByID returns the full report read model, or nil when not found.
func (d *Database) GetReportByID(ctx context.Context, reportID int) (*models.Report, error) {
	row := d.db.QueryRowContext(ctx, reportSelect+` WHERE r.report_id = ?`, reportID)
	report, err := scanReport(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get report %d: %w", reportID, err)
	}

	photos, err := d.loadPhotos(ctx, reportID)
	if err != nil {
		return nil, err
	}
	report.Photos = photos
	return report, nil
}

func (d *Database) queryReports(ctx context.Context, where string, args ...interface{}) ([]models.Report, error) {
	rows, err := d.db.QueryContext(ctx, reportSelect+where, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query reports: %w", err)
	}
	defer rows.Close()

	reports := []models.Report{}
	for rows.Next() {
		report, err := scanReport(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan report: %w", err)
		}
		reports = append(reports, *report)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating reports: %w", err)
	}

	for i := range reports {
		photos, err := d.loadPhotos(ctx, reports[i].ID)
		if err != nil {
			return nil, err
		}
		reports[i].Photos = photos
	}
	return reports, nil
}

// GetAllReports returns every report, newest first. Internal staff surface.
func (d *Database) GetAllReports(ctx context.Context) ([]models.Report, error) {
	return d.queryReports(ctx, ` ORDER BY r.created_at DESC`)
}

// GetApprovedReports returns the publicly visible reports (everything past
// triage that was not rejected). Anonymous reports have the citizen nulled.
func (d *Database) GetApprovedReports(ctx context.Context) ([]models.Report, error) {
	reports, err := d.queryReports(ctx,
		` WHERE r.status_id NOT IN (?, ?) ORDER BY r.created_at DESC`,
		models.StatusPending, models.StatusRejected)
	if err != nil {
		return nil, err
	}
	for i := range reports {
		if reports[i].Anonymous {
			reports[i].Citizen = nil
		}
	}
	return reports, nil
}

// GetReportsAssigned returns the reports assigned to an operator. The role
// selects the assignment column: external maintainers match on the external
// column, internal staff on the operator column.
func (d *Database) GetReportsAssigned(ctx context.Context, operatorID int, role string) ([]models.Report, error) {
	column := "r.assigned_to_operator_id"
	if role == models.RoleExternal {
		column = "r.assigned_to_external_id"
	}
	return d.queryReports(ctx,
		` WHERE `+column+` = ? ORDER BY r.updated_at DESC`, operatorID)
}

// Operator is the operators-table row used for assignment validation.
type Operator struct {
	ID       int
	Username string
	Email    string
	RoleName string
	OfficeID sql.NullInt64
	Company  sql.NullString
}

// GetOperatorByID returns an operator row, or nil when not found.
func (d *Database) GetOperatorByID(ctx context.Context, operatorID int) (*Operator, error) {
	var op Operator
	err := d.db.QueryRowContext(ctx,
		`SELECT operator_id, username, email, role_name, office_id, company_name
		 FROM operators WHERE operator_id = ?`, operatorID).
		Scan(&op.ID, &op.Username, &op.Email, &op.RoleName, &op.OfficeID, &op.Company)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get operator %d: %w", operatorID, err)
	}
	return &op, nil
}

// GetTechnicalOfficersByOffice lists the technical officers of an office.
func (d *Database) GetTechnicalOfficersByOffice(ctx context.Context, officeID int) ([]models.OperatorRef, error) {
	rows, err := d.db.QueryContext(ctx,
		`SELECT operator_id, username, email, office_id FROM operators
		 WHERE office_id = ? AND role_name = ? ORDER BY username`,
		officeID, models.RoleTechnical)
	if err != nil {
		return nil, fmt.Errorf("failed to query technical officers: %w", err)
	}
	defer rows.Close()

	officers := []models.OperatorRef{}
	for rows.Next() {
		var o models.OperatorRef
		if err := rows.Scan(&o.ID, &o.Username, &o.Email, &o.OfficeID); err != nil {
			return nil, fmt.Errorf("failed to scan operator: %w", err)
		}
		officers = append(officers, o)
	}
	return officers, rows.Err()
}

// StatusUpdateResult is the outcome of a lifecycle write. Message and
// Notification are the rows persisted in the same transaction as the status
// change; both are nil when the write was a terminal-state no-op.
type StatusUpdateResult struct {
	Report       *models.Report
	Message      *models.Message
	Notification *models.Notification
	NoOp         bool
}

// UpdateReportStatus applies a status transition atomically with its derived
// rows: the system message in the report's thread and the notification to the
// owning citizen. A report already in a terminal state (or already at the
// requested status) yields a no-op result with the current row. Returns
// (nil, nil) when the report does not exist.
func (d *Database) UpdateReportStatus(ctx context.Context, reportID, newStatusID int, rejectionReason string) (*StatusUpdateResult, error) {
	res := &StatusUpdateResult{}
	found := true

	err := d.withTx(ctx, func(tx *sql.Tx) error {
		var current int
		var citizenID sql.NullInt64
		var title string
		err := tx.QueryRowContext(ctx,
			`SELECT status_id, citizen_id, title FROM reports WHERE report_id = ? FOR UPDATE`,
			reportID).Scan(&current, &citizenID, &title)
		if err == sql.ErrNoRows {
			found = false
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read report status: %w", err)
		}

		if models.IsTerminalStatus(current) || current == newStatusID {
			res.NoOp = true
			return nil
		}
		if !models.CanTransition(current, newStatusID) {
			return ErrInvalidTransition
		}

		now := time.Now().UTC()

		if newStatusID == models.StatusRejected {
			_, err = tx.ExecContext(ctx,
				`UPDATE reports SET status_id = ?, rejection_reason = ?, updated_at = ? WHERE report_id = ?`,
				newStatusID, rejectionReason, now, reportID)
		} else {
			_, err = tx.ExecContext(ctx,
				`UPDATE reports SET status_id = ?, updated_at = ? WHERE report_id = ?`,
				newStatusID, now, reportID)
		}
		if err != nil {
			return fmt.Errorf("failed to update report status: %w", err)
		}

		statusName := models.StatusName(newStatusID)
		content := fmt.Sprintf("Status changed to %s", statusName)
		if newStatusID == models.StatusRejected && rejectionReason != "" {
			content += ". Reason: " + rejectionReason
		}
		msg, err := insertMessageTx(ctx, tx, reportID, models.SystemSenderID, models.SenderSystem, content, now)
		if err != nil {
			return err
		}
		res.Message = msg

		if citizenID.Valid {
			text := fmt.Sprintf("Your report %q is now %s", title, statusName)
			if newStatusID == models.StatusRejected && rejectionReason != "" {
				text += ". Reason: " + rejectionReason
			}
			statusID := newStatusID
			notif, err := insertNotificationTx(ctx, tx, int(citizenID.Int64), reportID, title, text, &statusID, now)
			if err != nil {
				return err
			}
			res.Notification = notif
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}

	report, err := d.GetReportByID(ctx, reportID)
	if err != nil {
		return nil, err
	}
	res.Report = report
	return res, nil
}

// AssignOperator assigns a report to an internal technical officer. The
// other assignment column is cleared; an Approved report moves to In
// Progress. Reassigning the same operator is a no-op. The operator must be a
// technical officer of the report's office.
func (d *Database) AssignOperator(ctx context.Context, reportID, operatorID int) (*StatusUpdateResult, error) {
	op, err := d.GetOperatorByID(ctx, operatorID)
	if err != nil {
		return nil, err
	}
	if op == nil || op.RoleName != models.RoleTechnical {
		return nil, ErrOperatorNotFound
	}
	return d.assign(ctx, reportID, operatorID, op, false)
}

// AssignExternal assigns a report to an external maintainer, clearing any
// internal assignment. No office authority check applies to externals.
func (d *Database) AssignExternal(ctx context.Context, reportID, externalID int) (*StatusUpdateResult, error) {
	op, err := d.GetOperatorByID(ctx, externalID)
	if err != nil {
		return nil, err
	}
	if op == nil || op.RoleName != models.RoleExternal {
		return nil, ErrOperatorNotFound
	}
	return d.assign(ctx, reportID, externalID, op, true)
}

func (d *Database) assign(ctx context.Context, reportID, assigneeID int, op *Operator, external bool) (*StatusUpdateResult, error) {
	res := &StatusUpdateResult{}
	found := true

	err := d.withTx(ctx, func(tx *sql.Tx) error {
		var current, officeID int
		var citizenID, currentOp, currentExt sql.NullInt64
		var title string
		err := tx.QueryRowContext(ctx,
			`SELECT status_id, office_id, citizen_id, assigned_to_operator_id, assigned_to_external_id, title
			 FROM reports WHERE report_id = ? FOR UPDATE`,
			reportID).Scan(&current, &officeID, &citizenID, &currentOp, &currentExt, &title)
		if err == sql.ErrNoRows {
			found = false
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read report for assignment: %w", err)
		}

		if models.IsTerminalStatus(current) {
			res.NoOp = true
			return nil
		}
		if current == models.StatusPending {
			return ErrInvalidTransition
		}

		if !external && !op.OfficeID.Valid {
			return ErrWrongOffice
		}
		if !external && int(op.OfficeID.Int64) != officeID {
			return ErrWrongOffice
		}

		// Idempotent: reassigning the same actor changes nothing.
		if !external && currentOp.Valid && int(currentOp.Int64) == assigneeID {
			res.NoOp = true
			return nil
		}
		if external && currentExt.Valid && int(currentExt.Int64) == assigneeID {
			res.NoOp = true
			return nil
		}

		now := time.Now().UTC()
		statusChanged := current == models.StatusApproved
		newStatus := current
		if statusChanged {
			newStatus = models.StatusInProgress
		}

		if external {
			_, err = tx.ExecContext(ctx,
				`UPDATE reports SET assigned_to_external_id = ?, assigned_to_operator_id = NULL,
				 status_id = ?, updated_at = ? WHERE report_id = ?`,
				assigneeID, newStatus, now, reportID)
		} else {
			_, err = tx.ExecContext(ctx,
				`UPDATE reports SET assigned_to_operator_id = ?, assigned_to_external_id = NULL,
				 status_id = ?, updated_at = ? WHERE report_id = ?`,
				assigneeID, newStatus, now, reportID)
		}
		if err != nil {
			return fmt.Errorf("failed to assign report: %w", err)
		}

		content := fmt.Sprintf("Report assigned to %s", op.Username)
		msg, err := insertMessageTx(ctx, tx, reportID, models.SystemSenderID, models.SenderSystem, content, now)
		if err != nil {
			return err
		}
		res.Message = msg

		if citizenID.Valid {
			var statusID *int
			text := fmt.Sprintf("Your report %q was reassigned", title)
			if statusChanged {
				s := models.StatusInProgress
				statusID = &s
				text = fmt.Sprintf("Your report %q is now %s", title, models.StatusName(s))
			}
			notif, err := insertNotificationTx(ctx, tx, int(citizenID.Int64), reportID, title, text, statusID, now)
			if err != nil {
				return err
			}
			res.Notification = notif
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}

	report, err := d.GetReportByID(ctx, reportID)
	if err != nil {
		return nil, err
	}
	res.Report = report
	return res, nil
}

package database

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jknair0/beforeeach"

	"github.com/DamianoLaRosa/Participium/models"
)

var (
	db   *sql.DB
	mock sqlmock.Sqlmock
)

func setUp() {
	db, mock, _ = sqlmock.New()
}

func tearDown() {
	db.Close()
}

var it = beforeeach.Create(setUp, tearDown)

var reportColumns = []string{
	"report_id", "title", "description", "latitude", "longitude", "anonymous",
	"category_id", "office_id", "rejection_reason",
	"status_id", "status_name",
	"citizen_id", "citizen_username",
	"assigned_to_operator_id", "username", "email", "office_id",
	"assigned_to_external_id", "username", "email", "company_name",
	"created_at", "updated_at",
}

func reportRow(reportID, statusID int) *sqlmock.Rows {
	now := time.Now().UTC()
	return sqlmock.NewRows(reportColumns).AddRow(
		reportID, "Broken streetlight", "The light is out", 45.07, 7.68, false,
		2, 3, nil,
		statusID, models.StatusName(statusID),
		10, "mario",
		nil, nil, nil, nil,
		nil, nil, nil, nil,
		now, now,
	)
}

func expectReportReload(reportID, statusID int) {
	mock.ExpectQuery("SELECT(.+)FROM reports r(.+)WHERE r.report_id = (.+)").
		WithArgs(reportID).
		WillReturnRows(reportRow(reportID, statusID))
	mock.ExpectQuery("SELECT photo_id, image_url FROM photos").
		WithArgs(reportID).
		WillReturnRows(sqlmock.NewRows([]string{"photo_id", "image_url"}))
}

func TestUpdateReportStatusTerminalNoOp(t *testing.T) {
	it(func() {
		mock.ExpectBegin()
		mock.ExpectQuery("SELECT status_id, citizen_id, title FROM reports WHERE report_id = (.+) FOR UPDATE").
			WithArgs(42).
			WillReturnRows(sqlmock.NewRows([]string{"status_id", "citizen_id", "title"}).
				AddRow(models.StatusResolved, 10, "Broken streetlight"))
		mock.ExpectCommit()
		expectReportReload(42, models.StatusResolved)

		d := NewFromDB(db)
		res, err := d.UpdateReportStatus(context.Background(), 42, models.StatusApproved, "")
		if err != nil {
			t.Fatalf("UpdateReportStatus failed: %v", err)
		}
		if !res.NoOp {
			t.Error("expected a no-op on a terminal report")
		}
		if res.Message != nil || res.Notification != nil {
			t.Error("no-op must not produce side-effect rows")
		}
		if res.Report == nil || res.Report.Status.ID != models.StatusResolved {
			t.Errorf("no-op must return the current row, got %+v", res.Report)
		}
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unmet expectations: %v", err)
		}
	})
}

func TestUpdateReportStatusInvalidTransitionRollsBack(t *testing.T) {
	it(func() {
		mock.ExpectBegin()
		mock.ExpectQuery("SELECT status_id, citizen_id, title FROM reports WHERE report_id = (.+) FOR UPDATE").
			WithArgs(42).
			WillReturnRows(sqlmock.NewRows([]string{"status_id", "citizen_id", "title"}).
				AddRow(models.StatusPending, 10, "Broken streetlight"))
		mock.ExpectRollback()

		d := NewFromDB(db)
		_, err := d.UpdateReportStatus(context.Background(), 42, models.StatusResolved, "")
		if !errors.Is(err, ErrInvalidTransition) {
			t.Fatalf("expected ErrInvalidTransition, got %v", err)
		}
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unmet expectations: %v", err)
		}
	})
}

func TestUpdateReportStatusMissingReport(t *testing.T) {
	it(func() {
		mock.ExpectBegin()
		mock.ExpectQuery("SELECT status_id, citizen_id, title FROM reports WHERE report_id = (.+) FOR UPDATE").
			WithArgs(42).
			WillReturnError(sql.ErrNoRows)
		mock.ExpectCommit()

		d := NewFromDB(db)
		res, err := d.UpdateReportStatus(context.Background(), 42, models.StatusApproved, "")
		if err != nil {
			t.Fatalf("UpdateReportStatus failed: %v", err)
		}
		if res != nil {
			t.Errorf("expected nil result for missing report, got %+v", res)
		}
	})
}

func TestUpdateReportStatusRejectionPersistsSideEffects(t *testing.T) {
	it(func() {
		mock.ExpectBegin()
		mock.ExpectQuery("SELECT status_id, citizen_id, title FROM reports WHERE report_id = (.+) FOR UPDATE").
			WithArgs(42).
			WillReturnRows(sqlmock.NewRows([]string{"status_id", "citizen_id", "title"}).
				AddRow(models.StatusPending, 10, "Broken streetlight"))
		mock.ExpectExec("UPDATE reports SET status_id = (.+), rejection_reason = (.+)").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("INSERT INTO messages").
			WillReturnResult(sqlmock.NewResult(101, 1))
		mock.ExpectExec("INSERT INTO notifications").
			WillReturnResult(sqlmock.NewResult(55, 1))
		mock.ExpectCommit()
		expectReportReload(42, models.StatusRejected)

		d := NewFromDB(db)
		res, err := d.UpdateReportStatus(context.Background(), 42, models.StatusRejected, "duplicate report")
		if err != nil {
			t.Fatalf("UpdateReportStatus failed: %v", err)
		}
		if res.NoOp {
			t.Fatal("expected a real transition")
		}
		if res.Message == nil || res.Message.SenderType != models.SenderSystem ||
			res.Message.SenderID != models.SystemSenderID {
			t.Errorf("expected a system message, got %+v", res.Message)
		}
		if res.Message.Content != "Status changed to Rejected. Reason: duplicate report" {
			t.Errorf("unexpected system message content %q", res.Message.Content)
		}
		if res.Notification == nil || res.Notification.CitizenID != 10 {
			t.Errorf("expected a citizen notification, got %+v", res.Notification)
		}
		if res.Notification.NewStatusID == nil || *res.Notification.NewStatusID != models.StatusRejected {
			t.Errorf("notification should carry the new status id, got %+v", res.Notification.NewStatusID)
		}
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unmet expectations: %v", err)
		}
	})
}

func TestAssignOperatorWrongOffice(t *testing.T) {
	it(func() {
		mock.ExpectQuery("SELECT operator_id, username, email, role_name, office_id, company_name").
			WithArgs(7).
			WillReturnRows(sqlmock.NewRows(
				[]string{"operator_id", "username", "email", "role_name", "office_id", "company_name"}).
				AddRow(7, "giulia", "g@comune.it", models.RoleTechnical, 9, nil))
		mock.ExpectBegin()
		mock.ExpectQuery("SELECT status_id, office_id, citizen_id, assigned_to_operator_id, assigned_to_external_id, title").
			WithArgs(42).
			WillReturnRows(sqlmock.NewRows(
				[]string{"status_id", "office_id", "citizen_id", "assigned_to_operator_id", "assigned_to_external_id", "title"}).
				AddRow(models.StatusApproved, 3, 10, nil, nil, "Broken streetlight"))
		mock.ExpectRollback()

		d := NewFromDB(db)
		_, err := d.AssignOperator(context.Background(), 42, 7)
		if !errors.Is(err, ErrWrongOffice) {
			t.Fatalf("expected ErrWrongOffice, got %v", err)
		}
	})
}

func TestAssignOperatorRejectsNonTechnicalRole(t *testing.T) {
	it(func() {
		mock.ExpectQuery("SELECT operator_id, username, email, role_name, office_id, company_name").
			WithArgs(7).
			WillReturnRows(sqlmock.NewRows(
				[]string{"operator_id", "username", "email", "role_name", "office_id", "company_name"}).
				AddRow(7, "giulia", "g@comune.it", models.RoleRelations, 3, nil))

		d := NewFromDB(db)
		_, err := d.AssignOperator(context.Background(), 42, 7)
		if !errors.Is(err, ErrOperatorNotFound) {
			t.Fatalf("expected ErrOperatorNotFound, got %v", err)
		}
	})
}

func TestAssignOperatorSameAssigneeNoOp(t *testing.T) {
	it(func() {
		mock.ExpectQuery("SELECT operator_id, username, email, role_name, office_id, company_name").
			WithArgs(7).
			WillReturnRows(sqlmock.NewRows(
				[]string{"operator_id", "username", "email", "role_name", "office_id", "company_name"}).
				AddRow(7, "giulia", "g@comune.it", models.RoleTechnical, 3, nil))
		mock.ExpectBegin()
		mock.ExpectQuery("SELECT status_id, office_id, citizen_id, assigned_to_operator_id, assigned_to_external_id, title").
			WithArgs(42).
			WillReturnRows(sqlmock.NewRows(
				[]string{"status_id", "office_id", "citizen_id", "assigned_to_operator_id", "assigned_to_external_id", "title"}).
				AddRow(models.StatusInProgress, 3, 10, 7, nil, "Broken streetlight"))
		mock.ExpectCommit()
		expectReportReload(42, models.StatusInProgress)

		d := NewFromDB(db)
		res, err := d.AssignOperator(context.Background(), 42, 7)
		if err != nil {
			t.Fatalf("AssignOperator failed: %v", err)
		}
		if !res.NoOp {
			t.Error("reassigning the current assignee should be a no-op")
		}
	})
}

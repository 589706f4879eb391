package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/DamianoLaRosa/Participium/database"
	"github.com/DamianoLaRosa/Participium/events"
	"github.com/DamianoLaRosa/Participium/models"
)

// UpdateStatus applies a lifecycle transition on behalf of an actor.
// Triage decisions (Approved, Rejected) belong to public relations officers;
// progress updates (Resolved, back to Approved) belong to the assignee.
// Admins may do either.
func (s *Service) UpdateStatus(ctx context.Context, actor models.Identity, reportID, newStatusID int, rejectionReason string) (*database.StatusUpdateResult, error) {
	if models.StatusName(newStatusID) == "" {
		return nil, fmt.Errorf("%w: unknown status id %d", ErrValidation, newStatusID)
	}
	if newStatusID == models.StatusPending {
		return nil, fmt.Errorf("%w: a report cannot return to Pending", ErrValidation)
	}
	if newStatusID == models.StatusInProgress {
		return nil, fmt.Errorf("%w: reports move to In Progress through assignment", ErrValidation)
	}
	if newStatusID == models.StatusRejected && strings.TrimSpace(rejectionReason) == "" {
		return nil, fmt.Errorf("%w: rejection requires a reason", ErrValidation)
	}

	switch newStatusID {
	case models.StatusApproved, models.StatusRejected:
		// Triage path, unless it is the assignee moving In Progress back
		// to Approved.
		if actor.Role != models.RoleRelations && actor.Role != models.RoleAdmin && !actor.IsOperator() {
			return nil, ErrForbidden
		}
	case models.StatusResolved:
		if !actor.IsOperator() && actor.Role != models.RoleAdmin {
			return nil, ErrForbidden
		}
	}

	report, err := s.db.GetReportByID(ctx, reportID)
	if err != nil {
		return nil, err
	}
	if report == nil {
		return nil, ErrNotFound
	}

	// In Progress reports are mutated by whoever holds the assignment;
	// every other source state is a triage decision.
	if actor.Role != models.RoleAdmin {
		if report.Status.ID == models.StatusInProgress {
			if !s.isAssignee(report, actor) {
				return nil, ErrForbidden
			}
		} else if actor.Role != models.RoleRelations {
			return nil, ErrForbidden
		}
	}

	res, err := s.db.UpdateReportStatus(ctx, reportID, newStatusID, strings.TrimSpace(rejectionReason))
	if errors.Is(err, database.ErrInvalidTransition) {
		return nil, fmt.Errorf("%w: cannot move from %s to %s",
			ErrValidation, report.Status.Name, models.StatusName(newStatusID))
	}
	if err != nil {
		return nil, err
	}
	if res == nil {
		return nil, ErrNotFound
	}

	s.publishResult(res)
	return res, nil
}

// AssignOperator assigns a report to a technical officer of its office.
func (s *Service) AssignOperator(ctx context.Context, actor models.Identity, reportID, operatorID int) (*database.StatusUpdateResult, error) {
	if actor.Role != models.RoleRelations && actor.Role != models.RoleAdmin {
		return nil, ErrForbidden
	}
	res, err := s.db.AssignOperator(ctx, reportID, operatorID)
	return s.assignResult(res, err)
}

// AssignExternal hands a report to an external maintenance company.
func (s *Service) AssignExternal(ctx context.Context, actor models.Identity, reportID, externalID int) (*database.StatusUpdateResult, error) {
	if actor.Role != models.RoleRelations && actor.Role != models.RoleAdmin {
		return nil, ErrForbidden
	}
	res, err := s.db.AssignExternal(ctx, reportID, externalID)
	return s.assignResult(res, err)
}

func (s *Service) assignResult(res *database.StatusUpdateResult, err error) (*database.StatusUpdateResult, error) {
	switch {
	case errors.Is(err, database.ErrOperatorNotFound):
		return nil, fmt.Errorf("%w: no such operator for this assignment", ErrNotFound)
	case errors.Is(err, database.ErrWrongOffice):
		return nil, fmt.Errorf("%w: operator does not belong to the report's office", ErrValidation)
	case errors.Is(err, database.ErrInvalidTransition):
		return nil, fmt.Errorf("%w: a Pending report cannot be assigned", ErrValidation)
	case err != nil:
		return nil, err
	case res == nil:
		return nil, ErrNotFound
	}
	s.publishResult(res)
	return res, nil
}

func (s *Service) isAssignee(report *models.Report, actor models.Identity) bool {
	if report.AssignedToOperator != nil && actor.Role == models.RoleTechnical &&
		report.AssignedToOperator.ID == actor.ID {
		return true
	}
	if report.AssignedToExternal != nil && actor.Role == models.RoleExternal &&
		report.AssignedToExternal.ID == actor.ID {
		return true
	}
	return false
}

// publishResult fans the transaction's side effects out on the event bus.
// Called only after the transaction committed.
func (s *Service) publishResult(res *database.StatusUpdateResult) {
	if res == nil || res.NoOp {
		return
	}
	if res.Report != nil {
		s.bus.Publish(events.StatusChanged(res.Report))
	}
	if res.Message != nil {
		s.bus.Publish(events.MessageCreated(res.Message))
	}
	if res.Notification != nil {
		s.bus.Publish(events.NotificationCreated(res.Notification))
	}
}

// GetReport returns a single report. Citizens only see their own reports
// unless the report has passed triage.
func (s *Service) GetReport(ctx context.Context, actor models.Identity, reportID int) (*models.Report, error) {
	report, err := s.db.GetReportByID(ctx, reportID)
	if err != nil {
		return nil, err
	}
	if report == nil {
		return nil, ErrNotFound
	}
	if actor.Role == models.RoleCitizen {
		owner := report.Citizen != nil && report.Citizen.ID == actor.ID
		visible := report.Status.ID != models.StatusPending && report.Status.ID != models.StatusRejected
		if !owner && !visible {
			return nil, ErrForbidden
		}
		if report.Anonymous && !owner {
			report.Citizen = nil
		}
	}
	return report, nil
}

// ListReports returns every report. Staff surface.
func (s *Service) ListReports(ctx context.Context, actor models.Identity) ([]models.Report, error) {
	if actor.Role == models.RoleCitizen {
		return nil, ErrForbidden
	}
	return s.db.GetAllReports(ctx)
}

// ListApprovedReports returns the publicly visible reports.
func (s *Service) ListApprovedReports(ctx context.Context) ([]models.Report, error) {
	return s.db.GetApprovedReports(ctx)
}

// ListAssignedReports returns the reports assigned to the acting operator.
func (s *Service) ListAssignedReports(ctx context.Context, actor models.Identity) ([]models.Report, error) {
	if !actor.IsOperator() {
		return nil, ErrForbidden
	}
	return s.db.GetReportsAssigned(ctx, actor.ID, actor.Role)
}

// ListTechnicalOfficers lists the assignable technical officers of an office.
func (s *Service) ListTechnicalOfficers(ctx context.Context, actor models.Identity, officeID int) ([]models.OperatorRef, error) {
	if actor.Role != models.RoleRelations && actor.Role != models.RoleAdmin {
		return nil, ErrForbidden
	}
	return s.db.GetTechnicalOfficersByOffice(ctx, officeID)
}

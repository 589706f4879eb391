package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/DamianoLaRosa/Participium/events"
	"github.com/DamianoLaRosa/Participium/models"
)

// ListNotifications returns the citizen's notifications, newest first.
// limit <= 0 returns everything.
func (s *Service) ListNotifications(ctx context.Context, actor models.Identity, limit int) ([]models.Notification, error) {
	if actor.Role != models.RoleCitizen {
		return nil, ErrForbidden
	}
	return s.db.GetNotificationsByCitizen(ctx, actor.ID, limit)
}

// UnreadCount returns the citizen's unseen notification count.
func (s *Service) UnreadCount(ctx context.Context, actor models.Identity) (int, error) {
	if actor.Role != models.RoleCitizen {
		return 0, ErrForbidden
	}
	return s.db.GetUnreadCount(ctx, actor.ID)
}

// MarkNotificationSeen marks one of the citizen's notifications as seen.
// Marking an already-seen notification succeeds without effect.
func (s *Service) MarkNotificationSeen(ctx context.Context, actor models.Identity, notificationID int) error {
	if actor.Role != models.RoleCitizen {
		return ErrForbidden
	}
	found, err := s.db.MarkSeen(ctx, notificationID, actor.ID)
	if err != nil {
		return err
	}
	if !found {
		return ErrNotFound
	}
	return nil
}

// MarkAllNotificationsSeen marks every notification of the citizen as seen.
func (s *Service) MarkAllNotificationsSeen(ctx context.Context, actor models.Identity) error {
	if actor.Role != models.RoleCitizen {
		return ErrForbidden
	}
	return s.db.MarkAllSeen(ctx, actor.ID)
}

// CreateNotification persists a free-form notification for a report's
// citizen and fans it out. Staff surface, used for announcements outside
// the lifecycle flow.
func (s *Service) CreateNotification(ctx context.Context, actor models.Identity, reportID int, message string) (*models.Notification, error) {
	if actor.Role == models.RoleCitizen {
		return nil, ErrForbidden
	}
	if strings.TrimSpace(message) == "" {
		return nil, fmt.Errorf("%w: notification message is empty", ErrValidation)
	}

	report, err := s.db.GetReportByID(ctx, reportID)
	if err != nil {
		return nil, err
	}
	if report == nil {
		return nil, ErrNotFound
	}
	if report.Citizen == nil {
		return nil, fmt.Errorf("%w: report has no citizen to notify", ErrValidation)
	}

	notif, err := s.db.InsertNotification(ctx, report.Citizen.ID, reportID, strings.TrimSpace(message), nil)
	if err != nil {
		return nil, err
	}
	if notif == nil {
		return nil, ErrNotFound
	}
	s.bus.Publish(events.NotificationCreated(notif))
	return notif, nil
}

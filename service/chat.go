package service

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/DamianoLaRosa/Participium/events"
	"github.com/DamianoLaRosa/Participium/models"
)

const maxMessageLength = 2000

// ListChats returns the chat summaries visible to the actor: citizens see
// the threads of their own reports, operators the threads of their
// assignments. Threads of Pending and Rejected reports are never listed.
func (s *Service) ListChats(ctx context.Context, actor models.Identity) ([]models.ChatSummary, error) {
	switch {
	case actor.Role == models.RoleCitizen:
		return s.db.GetChatsByCitizen(ctx, actor.ID)
	case actor.IsOperator():
		return s.db.GetChatsByOperator(ctx, actor.ID, actor.Role)
	}
	return nil, ErrForbidden
}

// GetChat returns the thread metadata and full message history. Only the
// owning citizen, the assigned operators and admins may read a thread.
func (s *Service) GetChat(ctx context.Context, actor models.Identity, reportID int) (*models.ChatDetails, error) {
	details, err := s.db.GetChatDetails(ctx, reportID)
	if err != nil {
		return nil, err
	}
	if details == nil {
		return nil, ErrNotFound
	}
	if !s.canAccessChat(details, actor) {
		return nil, ErrForbidden
	}

	messages, err := s.db.GetMessages(ctx, reportID)
	if err != nil {
		return nil, err
	}
	details.Messages = messages
	return details, nil
}

// ListMessages returns the ordered message history of a thread.
func (s *Service) ListMessages(ctx context.Context, actor models.Identity, reportID int) ([]models.Message, error) {
	details, err := s.db.GetChatDetails(ctx, reportID)
	if err != nil {
		return nil, err
	}
	if details == nil {
		return nil, ErrNotFound
	}
	if !s.canAccessChat(details, actor) {
		return nil, ErrForbidden
	}
	return s.db.GetMessages(ctx, reportID)
}

// SendMessage appends a message to a report thread and fans it out.
// Citizens may only reply once a human operator has written first, so
// threads are always operator-initiated.
func (s *Service) SendMessage(ctx context.Context, actor models.Identity, reportID int, content string) (*models.Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, fmt.Errorf("%w: message content is empty", ErrValidation)
	}
	if utf8.RuneCountInString(content) > maxMessageLength {
		return nil, fmt.Errorf("%w: message exceeds %d characters", ErrValidation, maxMessageLength)
	}

	details, err := s.db.GetChatDetails(ctx, reportID)
	if err != nil {
		return nil, err
	}
	if details == nil {
		return nil, ErrNotFound
	}
	if details.StatusID == models.StatusPending || details.StatusID == models.StatusRejected {
		return nil, fmt.Errorf("%w: chat is not available for %s reports", ErrValidation, details.StatusName)
	}
	if !s.canAccessChat(details, actor) {
		return nil, ErrForbidden
	}

	senderType := models.SenderOperator
	if actor.Role == models.RoleCitizen {
		senderType = models.SenderCitizen
		started, err := s.db.HasOperatorMessage(ctx, reportID)
		if err != nil {
			return nil, err
		}
		if !started {
			return nil, fmt.Errorf("%w: wait for an operator to start the conversation", ErrValidation)
		}
	}

	msg, err := s.db.InsertMessage(ctx, reportID, actor.ID, senderType, content)
	if err != nil {
		return nil, err
	}

	s.bus.Publish(events.MessageCreated(msg))
	return msg, nil
}

// canAccessChat restricts a thread to the owning citizen, the assigned
// operator or external maintainer, and admins.
func (s *Service) canAccessChat(details *models.ChatDetails, actor models.Identity) bool {
	switch actor.Role {
	case models.RoleAdmin:
		return true
	case models.RoleCitizen:
		return details.Citizen != nil && details.Citizen.ID == actor.ID
	case models.RoleTechnical:
		return details.Operator != nil && details.Operator.ID == actor.ID
	case models.RoleExternal:
		return details.External != nil && details.External.ID == actor.ID
	}
	return false
}

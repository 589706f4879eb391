package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/DamianoLaRosa/Participium/middleware"
	"github.com/DamianoLaRosa/Participium/models"
	"github.com/DamianoLaRosa/Participium/service"
)

// Handlers holds the HTTP handlers for the realtime core.
type Handlers struct {
	service *service.Service
}

// NewHandlers creates handlers backed by the given service.
func NewHandlers(svc *service.Service) *Handlers {
	return &Handlers{service: svc}
}

// respondError maps service errors to HTTP status codes. Anything that is
// not a domain error is treated as the backing store being unavailable.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrNotAuthenticated):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
	case errors.Is(err, service.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, service.ErrValidation):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "service unavailable"})
	}
}

func identity(c *gin.Context) (models.Identity, bool) {
	id, ok := middleware.GetIdentity(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
	}
	return id, ok
}

func intParam(c *gin.Context, name string) (int, bool) {
	v, err := strconv.Atoi(c.Param(name))
	if err != nil || v <= 0 {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return v, true
}

// HealthCheck reports process liveness.
func (h *Handlers) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, models.HealthResponse{
		Status:    "healthy",
		Service:   "participium-realtime",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// GetChats lists the chat summaries visible to the caller.
func (h *Handlers) GetChats(c *gin.Context) {
	actor, ok := identity(c)
	if !ok {
		return
	}
	chats, err := h.service.ListChats(c.Request.Context(), actor)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"chats": chats, "count": len(chats)})
}

// GetChat returns one thread with its full history.
func (h *Handlers) GetChat(c *gin.Context) {
	actor, ok := identity(c)
	if !ok {
		return
	}
	reportID, ok := intParam(c, "reportId")
	if !ok {
		return
	}
	details, err := h.service.GetChat(c.Request.Context(), actor, reportID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, details)
}

// GetMessages returns a thread's ordered message history.
func (h *Handlers) GetMessages(c *gin.Context) {
	actor, ok := identity(c)
	if !ok {
		return
	}
	reportID, ok := intParam(c, "reportId")
	if !ok {
		return
	}
	messages, err := h.service.ListMessages(c.Request.Context(), actor, reportID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": messages, "count": len(messages)})
}

type sendMessageRequest struct {
	Content string `json:"content"`
}

// SendMessage appends a message to a thread.
func (h *Handlers) SendMessage(c *gin.Context) {
	actor, ok := identity(c)
	if !ok {
		return
	}
	reportID, ok := intParam(c, "reportId")
	if !ok {
		return
	}
	var req sendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "invalid request body"})
		return
	}
	msg, err := h.service.SendMessage(c.Request.Context(), actor, reportID, req.Content)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, msg)
}

// GetNotifications lists the caller's notifications.
func (h *Handlers) GetNotifications(c *gin.Context) {
	actor, ok := identity(c)
	if !ok {
		return
	}
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 0 {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "invalid limit"})
			return
		}
		limit = v
	}
	notifications, err := h.service.ListNotifications(c.Request.Context(), actor, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"notifications": notifications, "count": len(notifications)})
}

// GetUnreadCount returns the caller's unseen notification count.
func (h *Handlers) GetUnreadCount(c *gin.Context) {
	actor, ok := identity(c)
	if !ok {
		return
	}
	count, err := h.service.UnreadCount(c.Request.Context(), actor)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": count})
}

// MarkNotificationSeen marks one notification as seen.
func (h *Handlers) MarkNotificationSeen(c *gin.Context) {
	actor, ok := identity(c)
	if !ok {
		return
	}
	notificationID, ok := intParam(c, "notificationId")
	if !ok {
		return
	}
	if err := h.service.MarkNotificationSeen(c.Request.Context(), actor, notificationID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// MarkAllNotificationsSeen marks every notification of the caller as seen.
func (h *Handlers) MarkAllNotificationsSeen(c *gin.Context) {
	actor, ok := identity(c)
	if !ok {
		return
	}
	if err := h.service.MarkAllNotificationsSeen(c.Request.Context(), actor); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

type createNotificationRequest struct {
	Message string `json:"message"`
}

// CreateNotification sends a free-form notification to a report's citizen.
func (h *Handlers) CreateNotification(c *gin.Context) {
	actor, ok := identity(c)
	if !ok {
		return
	}
	reportID, ok := intParam(c, "reportId")
	if !ok {
		return
	}
	var req createNotificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "invalid request body"})
		return
	}
	notif, err := h.service.CreateNotification(c.Request.Context(), actor, reportID, req.Message)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, notif)
}

type updateStatusRequest struct {
	StatusID        int    `json:"status_id"`
	RejectionReason string `json:"rejection_reason"`
}

// UpdateStatus applies a lifecycle transition.
func (h *Handlers) UpdateStatus(c *gin.Context) {
	actor, ok := identity(c)
	if !ok {
		return
	}
	reportID, ok := intParam(c, "reportId")
	if !ok {
		return
	}
	var req updateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "invalid request body"})
		return
	}
	res, err := h.service.UpdateStatus(c.Request.Context(), actor, reportID, req.StatusID, req.RejectionReason)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"report": res.Report, "changed": !res.NoOp})
}

type assignOperatorRequest struct {
	OperatorID int `json:"operator_id"`
}

// AssignOperator assigns a report to a technical officer.
func (h *Handlers) AssignOperator(c *gin.Context) {
	actor, ok := identity(c)
	if !ok {
		return
	}
	reportID, ok := intParam(c, "reportId")
	if !ok {
		return
	}
	var req assignOperatorRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.OperatorID <= 0 {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "invalid request body"})
		return
	}
	res, err := h.service.AssignOperator(c.Request.Context(), actor, reportID, req.OperatorID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"report": res.Report, "changed": !res.NoOp})
}

type assignExternalRequest struct {
	ExternalID int `json:"external_id"`
}

// AssignExternal hands a report to an external maintenance company.
func (h *Handlers) AssignExternal(c *gin.Context) {
	actor, ok := identity(c)
	if !ok {
		return
	}
	reportID, ok := intParam(c, "reportId")
	if !ok {
		return
	}
	var req assignExternalRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.ExternalID <= 0 {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "invalid request body"})
		return
	}
	res, err := h.service.AssignExternal(c.Request.Context(), actor, reportID, req.ExternalID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"report": res.Report, "changed": !res.NoOp})
}

// GetReports lists every report. Staff surface.
func (h *Handlers) GetReports(c *gin.Context) {
	actor, ok := identity(c)
	if !ok {
		return
	}
	reports, err := h.service.ListReports(c.Request.Context(), actor)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reports": reports, "count": len(reports)})
}

// GetApprovedReports lists the publicly visible reports.
func (h *Handlers) GetApprovedReports(c *gin.Context) {
	reports, err := h.service.ListApprovedReports(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reports": reports, "count": len(reports)})
}

// GetAssignedReports lists the reports assigned to the caller.
func (h *Handlers) GetAssignedReports(c *gin.Context) {
	actor, ok := identity(c)
	if !ok {
		return
	}
	reports, err := h.service.ListAssignedReports(c.Request.Context(), actor)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reports": reports, "count": len(reports)})
}

// GetReport returns a single report.
func (h *Handlers) GetReport(c *gin.Context) {
	actor, ok := identity(c)
	if !ok {
		return
	}
	reportID, ok := intParam(c, "reportId")
	if !ok {
		return
	}
	report, err := h.service.GetReport(c.Request.Context(), actor, reportID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// GetTechnicalOfficers lists the assignable technical officers of an office.
func (h *Handlers) GetTechnicalOfficers(c *gin.Context) {
	actor, ok := identity(c)
	if !ok {
		return
	}
	officeID, err := strconv.Atoi(c.Query("office_id"))
	if err != nil || officeID <= 0 {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "invalid office_id"})
		return
	}
	officers, err := h.service.ListTechnicalOfficers(c.Request.Context(), actor, officeID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"officers": officers, "count": len(officers)})
}

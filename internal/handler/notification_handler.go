package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/elective-portal-api/internal/models"
	appErrors "github.com/noah-isme/elective-portal-api/pkg/errors"
	"github.com/noah-isme/elective-portal-api/pkg/response"
)

type notificationService interface {
	Broadcast(ctx context.Context, actor *models.JWTClaims, req models.NotificationRequest) (*models.NotificationResult, error)
}

// NotificationHandler exposes email broadcasts.
type NotificationHandler struct {
	notifications notificationService
}

// NewNotificationHandler constructs NotificationHandler.
func NewNotificationHandler(notifications notificationService) *NotificationHandler {
	return &NotificationHandler{notifications: notifications}
}

// Broadcast godoc
// @Summary Email students
// @Description Queues an email to the students of an elective or a department
// @Tags Notifications
// @Accept json
// @Produce json
// @Param payload body models.NotificationRequest true "Notification payload"
// @Success 202 {object} response.Envelope
// @Router /notifications [post]
func (h *NotificationHandler) Broadcast(c *gin.Context) {
	var req models.NotificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid notification payload"))
		return
	}
	result, err := h.notifications.Broadcast(c.Request.Context(), claimsFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusAccepted, result, nil)
}

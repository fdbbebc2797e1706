package handlers

import (
	"net/http"

	portssvc "github.com/SscSPs/checkout_ledger_app/internal/core/ports/services"
	"github.com/SscSPs/checkout_ledger_app/internal/dto"
	"github.com/gin-gonic/gin"
)

// notificationHandler serves the caller's notifications.
type notificationHandler struct {
	notificationService portssvc.NotificationSvc
}

func registerNotificationRoutes(rg *gin.RouterGroup, ns portssvc.NotificationSvc) {
	h := &notificationHandler{notificationService: ns}

	notes := rg.Group("/notifications")
	{
		notes.GET("", h.listNotifications)
		notes.POST("/:notificationID/read", h.markRead)
	}
}

func (h *notificationHandler) listNotifications(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}
	unreadOnly := c.Query("unread") == "true"
	notes, err := h.notificationService.ListNotifications(c.Request.Context(), actor, unreadOnly)
	if err != nil {
		respondError(c, err, "list notifications")
		return
	}
	c.JSON(http.StatusOK, dto.ToListNotificationResponse(notes))
}

func (h *notificationHandler) markRead(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}
	n, err := h.notificationService.MarkRead(c.Request.Context(), actor, c.Param("notificationID"))
	if err != nil {
		respondError(c, err, "mark notification read")
		return
	}
	c.JSON(http.StatusOK, dto.ToNotificationResponse(n))
}

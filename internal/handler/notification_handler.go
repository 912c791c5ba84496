package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"skillswap/internal/middleware"
	"skillswap/internal/notify"
)

type NotificationHandler struct {
	notifier *notify.Notifier
}

func NewNotificationHandler(n *notify.Notifier) *NotificationHandler {
	return &NotificationHandler{notifier: n}
}

func (h *NotificationHandler) Feed(c *gin.Context) {
	recipient, ok := middleware.ParticipantID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse("unauthorized", "UNAUTHORIZED"))
		return
	}
	feed, err := h.notifier.FeedFor(recipient)
	if err != nil {
		respondError(c, err)
		return
	}
	out := make([]NotificationView, 0, len(feed))
	for _, rec := range feed {
		out = append(out, FromNotification(rec))
	}
	c.JSON(http.StatusOK, NewSuccessResponse(out))
}

func (h *NotificationHandler) MarkRead(c *gin.Context) {
	if err := h.notifier.MarkRead(c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, NewSuccessResponse[any](nil))
}

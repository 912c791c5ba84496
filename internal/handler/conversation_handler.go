package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"skillswap/internal/conversation"
	"skillswap/internal/middleware"
)

type ConversationHandler struct {
	convs *conversation.Manager
}

func NewConversationHandler(convs *conversation.Manager) *ConversationHandler {
	return &ConversationHandler{convs: convs}
}

func (h *ConversationHandler) Send(c *gin.Context) {
	sender, ok := middleware.ParticipantID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse("unauthorized", "UNAUTHORIZED"))
		return
	}
	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse("invalid request", "INVALID_REQUEST"))
		return
	}
	msg, err := h.convs.Send(c.Request.Context(), c.Param("id"), sender, req.Body)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, NewSuccessResponse(FromMessage(msg)))
}

func (h *ConversationHandler) List(c *gin.Context) {
	msgs, err := h.convs.List(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	if c.Query("grouped") == "true" {
		c.JSON(http.StatusOK, NewSuccessResponse(FromDayGroups(conversation.GroupByDay(msgs))))
		return
	}
	c.JSON(http.StatusOK, NewSuccessResponse(FromMessageSlice(msgs)))
}

func (h *ConversationHandler) Refresh(c *gin.Context) {
	viewer, ok := middleware.ParticipantID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse("unauthorized", "UNAUTHORIZED"))
		return
	}
	if err := h.convs.Refresh(c.Request.Context(), c.Param("id"), viewer); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, NewSuccessResponse[any](nil))
}

func (h *ConversationHandler) Meta(c *gin.Context) {
	meta, err := h.convs.Meta(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, NewSuccessResponse(FromMeta(meta)))
}

func (h *ConversationHandler) UpdateMeta(c *gin.Context) {
	var req UpdateMetaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse("invalid request", "INVALID_REQUEST"))
		return
	}
	relID := c.Param("id")
	for _, upd := range []struct {
		v   *bool
		set func(string, bool) error
	}{
		{req.Pinned, h.convs.SetPinned},
		{req.Muted, h.convs.SetMuted},
		{req.Archived, h.convs.SetArchived},
		{req.Typing, h.convs.SetTyping},
	} {
		if upd.v == nil {
			continue
		}
		if err := upd.set(relID, *upd.v); err != nil {
			respondError(c, err)
			return
		}
	}
	meta, err := h.convs.Meta(relID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, NewSuccessResponse(FromMeta(meta)))
}

func (h *ConversationHandler) MarkRead(c *gin.Context) {
	if err := h.convs.MarkRead(c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, NewSuccessResponse[any](nil))
}

// Draft returns the body of the last failed send so clients can repopulate
// the compose input.
func (h *ConversationHandler) Draft(c *gin.Context) {
	body, err := h.convs.LastFailedBody(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, NewSuccessResponse(gin.H{"body": body}))
}

func (h *ConversationHandler) ScheduleMeeting(c *gin.Context) {
	by, ok := middleware.ParticipantID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse("unauthorized", "UNAUTHORIZED"))
		return
	}
	var req ScheduleMeetingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse("invalid request", "INVALID_REQUEST"))
		return
	}
	meeting, err := h.convs.ScheduleMeeting(c.Request.Context(), c.Param("id"), by, req.At, req.Note)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, NewSuccessResponse(FromMeeting(meeting)))
}

func (h *ConversationHandler) Star(c *gin.Context) {
	if err := h.convs.Star(c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, NewSuccessResponse[any](nil))
}

func (h *ConversationHandler) Unstar(c *gin.Context) {
	if err := h.convs.Unstar(c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, NewSuccessResponse[any](nil))
}

func (h *ConversationHandler) Delete(c *gin.Context) {
	by, ok := middleware.ParticipantID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse("unauthorized", "UNAUTHORIZED"))
		return
	}
	if err := h.convs.Delete(c.Param("id"), by); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, NewSuccessResponse[any](nil))
}

package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"skillswap/internal/connection"
	"skillswap/internal/conversation"
	"skillswap/internal/domain"
	swap_errors "skillswap/pkg/errors"
)

type SuccessResponse[T any] struct {
	Success bool `json:"success"`
	Data    T    `json:"data"`
}

type ErrorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

func NewSuccessResponse[T any](data T) SuccessResponse[T] {
	return SuccessResponse[T]{Success: true, Data: data}
}

func NewErrorResponse(message, code string) ErrorResponse {
	return ErrorResponse{Message: message, Code: code}
}

// respondError maps the error taxonomy to HTTP statuses at the boundary.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, swap_errors.ErrNotFound):
		c.JSON(http.StatusNotFound, NewErrorResponse(err.Error(), "NOT_FOUND"))
	case errors.Is(err, swap_errors.ErrForbidden), errors.Is(err, swap_errors.ErrNotRequester):
		c.JSON(http.StatusForbidden, NewErrorResponse(err.Error(), "FORBIDDEN"))
	case errors.Is(err, swap_errors.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, NewErrorResponse(err.Error(), "INVALID_REQUEST"))
	case errors.Is(err, swap_errors.ErrNotConnected),
		errors.Is(err, swap_errors.ErrAlreadyConnected),
		errors.Is(err, swap_errors.ErrRequestPending):
		c.JSON(http.StatusConflict, NewErrorResponse(err.Error(), "CONFLICT"))
	case errors.Is(err, swap_errors.ErrPersistence):
		c.JSON(http.StatusBadGateway, NewErrorResponse(err.Error(), "PERSISTENCE_FAILED"))
	default:
		c.JSON(http.StatusInternalServerError, NewErrorResponse(err.Error(), "INTERNAL"))
	}
}

type RelationshipView struct {
	ID          string    `json:"id"`
	Participant string    `json:"participant"`
	Requester   string    `json:"requester"`
	State       string    `json:"state"`
	CacheOnly   bool      `json:"cache_only"`
	RequestedAt time.Time `json:"requested_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// FromRelationshipView flattens a relationship to one viewer's perspective.
func FromRelationshipView(v connection.View, viewer string) RelationshipView {
	return RelationshipView{
		ID:          v.Relationship.ID,
		Participant: v.Relationship.Other(viewer),
		Requester:   v.Relationship.RequesterID,
		State:       string(v.State),
		CacheOnly:   v.Relationship.CacheOnly,
		RequestedAt: v.Relationship.RequestedAt,
		UpdatedAt:   v.Relationship.UpdatedAt,
	}
}

type MessageView struct {
	ID             string    `json:"id"`
	RelationshipID string    `json:"relationship_id"`
	SenderID       string    `json:"sender_id"`
	Body           string    `json:"body"`
	CreatedAt      time.Time `json:"created_at"`
	Delivery       string    `json:"delivery"`
	Starred        bool      `json:"starred"`
	Optimistic     bool      `json:"optimistic"`
}

func FromMessage(msg domain.Message) MessageView {
	return MessageView{
		ID:             msg.ID,
		RelationshipID: msg.RelationshipID,
		SenderID:       msg.SenderID,
		Body:           msg.Body,
		CreatedAt:      msg.CreatedAt,
		Delivery:       string(msg.Delivery),
		Starred:        msg.Starred,
		Optimistic:     msg.Optimistic,
	}
}

func FromMessageSlice(msgs []domain.Message) []MessageView {
	out := make([]MessageView, 0, len(msgs))
	for _, msg := range msgs {
		out = append(out, FromMessage(msg))
	}
	return out
}

type DayGroupView struct {
	Day      string        `json:"day"`
	Messages []MessageView `json:"messages"`
}

func FromDayGroups(groups []conversation.DayGroup) []DayGroupView {
	out := make([]DayGroupView, 0, len(groups))
	for _, g := range groups {
		out = append(out, DayGroupView{
			Day:      g.Day.Format("2006-01-02"),
			Messages: FromMessageSlice(g.Messages),
		})
	}
	return out
}

type NotificationView struct {
	ID             string    `json:"id"`
	Kind           string    `json:"kind"`
	Body           string    `json:"body"`
	IsRead         bool      `json:"is_read"`
	CreatedAt      time.Time `json:"created_at"`
	RelationshipID string    `json:"relationship_id,omitempty"`
}

func FromNotification(rec domain.NotificationRecord) NotificationView {
	return NotificationView{
		ID:             rec.ID,
		Kind:           string(rec.Kind),
		Body:           rec.Body,
		IsRead:         rec.IsRead,
		CreatedAt:      rec.CreatedAt,
		RelationshipID: rec.RelatedRelationshipID,
	}
}

type MeetingView struct {
	ID          string    `json:"id"`
	ScheduledBy string    `json:"scheduled_by"`
	At          time.Time `json:"at"`
	Note        string    `json:"note,omitempty"`
}

func FromMeeting(m domain.Meeting) MeetingView {
	return MeetingView{ID: m.ID, ScheduledBy: m.ScheduledBy, At: m.At, Note: m.Note}
}

type MetaView struct {
	Pinned      bool          `json:"pinned"`
	Muted       bool          `json:"muted"`
	Archived    bool          `json:"archived"`
	Typing      bool          `json:"typing"`
	UnreadCount int           `json:"unread_count"`
	Meetings    []MeetingView `json:"meetings,omitempty"`
}

func FromMeta(meta domain.ConversationMeta) MetaView {
	out := MetaView{
		Pinned:      meta.Pinned,
		Muted:       meta.Muted,
		Archived:    meta.Archived,
		Typing:      meta.Typing,
		UnreadCount: meta.UnreadCount,
	}
	for _, m := range meta.Meetings {
		out.Meetings = append(out.Meetings, FromMeeting(m))
	}
	return out
}

type RequestConnectionRequest struct {
	To string `json:"to"`
}

type SendMessageRequest struct {
	Body string `json:"body"`
}

type UpdateMetaRequest struct {
	Pinned   *bool `json:"pinned,omitempty"`
	Muted    *bool `json:"muted,omitempty"`
	Archived *bool `json:"archived,omitempty"`
	Typing   *bool `json:"typing,omitempty"`
}

type ScheduleMeetingRequest struct {
	At   time.Time `json:"at"`
	Note string    `json:"note"`
}

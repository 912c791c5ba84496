package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"skillswap/internal/connection"
	"skillswap/internal/middleware"
)

type ConnectionHandler struct {
	conns *connection.Manager
}

func NewConnectionHandler(conns *connection.Manager) *ConnectionHandler {
	return &ConnectionHandler{conns: conns}
}

func (h *ConnectionHandler) Request(c *gin.Context) {
	from, ok := middleware.ParticipantID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse("unauthorized", "UNAUTHORIZED"))
		return
	}
	var req RequestConnectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse("invalid request", "INVALID_REQUEST"))
		return
	}

	rel, err := h.conns.Request(c.Request.Context(), from, req.To)
	if err != nil {
		respondError(c, err)
		return
	}
	view := connection.View{Relationship: rel, State: rel.StateFor(from)}
	c.JSON(http.StatusOK, NewSuccessResponse(FromRelationshipView(view, from)))
}

func (h *ConnectionHandler) Accept(c *gin.Context) {
	by, ok := middleware.ParticipantID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse("unauthorized", "UNAUTHORIZED"))
		return
	}
	rel, err := h.conns.Accept(c.Request.Context(), c.Param("id"), by)
	if err != nil {
		respondError(c, err)
		return
	}
	view := connection.View{Relationship: rel, State: rel.StateFor(by)}
	c.JSON(http.StatusOK, NewSuccessResponse(FromRelationshipView(view, by)))
}

func (h *ConnectionHandler) Reject(c *gin.Context) {
	by, ok := middleware.ParticipantID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse("unauthorized", "UNAUTHORIZED"))
		return
	}
	if err := h.conns.Reject(c.Request.Context(), c.Param("id"), by); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, NewSuccessResponse[any](nil))
}

func (h *ConnectionHandler) Cancel(c *gin.Context) {
	by, ok := middleware.ParticipantID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse("unauthorized", "UNAUTHORIZED"))
		return
	}
	if err := h.conns.Cancel(c.Request.Context(), c.Param("id"), by); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, NewSuccessResponse[any](nil))
}

func (h *ConnectionHandler) Get(c *gin.Context) {
	viewer, ok := middleware.ParticipantID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse("unauthorized", "UNAUTHORIZED"))
		return
	}
	rel, err := h.conns.Get(c.Request.Context(), c.Param("id"), viewer)
	if err != nil {
		respondError(c, err)
		return
	}
	view := connection.View{Relationship: rel, State: rel.StateFor(viewer)}
	c.JSON(http.StatusOK, NewSuccessResponse(FromRelationshipView(view, viewer)))
}

func (h *ConnectionHandler) List(c *gin.Context) {
	viewer, ok := middleware.ParticipantID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse("unauthorized", "UNAUTHORIZED"))
		return
	}
	views, err := h.conns.ListFor(c.Request.Context(), viewer)
	if err != nil {
		respondError(c, err)
		return
	}
	out := make([]RelationshipView, 0, len(views))
	for _, v := range views {
		out = append(out, FromRelationshipView(v, viewer))
	}
	c.JSON(http.StatusOK, NewSuccessResponse(out))
}

func (h *ConnectionHandler) Sync(c *gin.Context) {
	viewer, ok := middleware.ParticipantID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse("unauthorized", "UNAUTHORIZED"))
		return
	}
	if err := h.conns.Sync(c.Request.Context(), viewer); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, NewSuccessResponse[any](nil))
}

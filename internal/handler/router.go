package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"skillswap/internal/middleware"
)

// NewRouter wires the daemon's HTTP surface. The handlers are a thin views
// boundary over the managers; all business rules live below them.
func NewRouter(logger *zap.Logger, conns *ConnectionHandler, convs *ConversationHandler, notifs *NotificationHandler) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(middleware.Logging(logger))

	engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := engine.Group("/v1", middleware.Identity())
	{
		v1.POST("/connections", conns.Request)
		v1.GET("/connections", conns.List)
		v1.POST("/connections/sync", conns.Sync)
		v1.GET("/connections/:id", conns.Get)
		v1.POST("/connections/:id/accept", conns.Accept)
		v1.POST("/connections/:id/reject", conns.Reject)
		v1.POST("/connections/:id/cancel", conns.Cancel)

		v1.POST("/conversations/:id/messages", convs.Send)
		v1.GET("/conversations/:id/messages", convs.List)
		v1.POST("/conversations/:id/refresh", convs.Refresh)
		v1.GET("/conversations/:id/meta", convs.Meta)
		v1.PATCH("/conversations/:id/meta", convs.UpdateMeta)
		v1.POST("/conversations/:id/read", convs.MarkRead)
		v1.GET("/conversations/:id/draft", convs.Draft)
		v1.POST("/conversations/:id/meetings", convs.ScheduleMeeting)

		v1.POST("/messages/:id/star", convs.Star)
		v1.DELETE("/messages/:id/star", convs.Unstar)
		v1.DELETE("/messages/:id", convs.Delete)

		v1.GET("/notifications", notifs.Feed)
		v1.POST("/notifications/:id/read", notifs.MarkRead)
	}

	return engine
}

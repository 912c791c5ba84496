package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ParticipantHeader carries the caller's participant id. The daemon serves a
// per-profile unix socket, so the header is trusted identity, not
// authentication.
const ParticipantHeader = "X-Participant-ID"

const participantKey = "participant_id"

// Identity requires the participant header on every request and stashes it
// in the gin context.
func Identity() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(ParticipantHeader)
		if id == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"message": "missing " + ParticipantHeader + " header",
				"code":    "UNAUTHORIZED",
			})
			return
		}
		c.Set(participantKey, id)
		c.Next()
	}
}

// ParticipantID returns the identity set by the Identity middleware.
func ParticipantID(c *gin.Context) (string, bool) {
	v, ok := c.Get(participantKey)
	if !ok {
		return "", false
	}
	id, ok := v.(string)
	return id, ok && id != ""
}

package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/landworks/cadastre/internal/actorcontext"
	notificationdomain "github.com/landworks/cadastre/internal/notification/domain"
)

// ListNotifications returns the acting user's own inbox. There is no
// way to read another user's notifications over the wire.
func (s *Server) ListNotifications(c *gin.Context) {
	var query struct {
		UnreadOnly bool `form:"unread_only"`
		Limit      int  `form:"limit"`
		Offset     int  `form:"offset"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	actorID, ok := actorcontext.ActorIDFromContext(c.Request.Context())
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	resp, err := s.notificationSvc.ListByUser(c.Request.Context(), notificationdomain.ListNotificationRequest{
		UserID:     actorID.String(),
		UnreadOnly: query.UnreadOnly,
		Limit:      query.Limit,
		Offset:     query.Offset,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) MarkNotificationRead(c *gin.Context) {
	actorID, ok := actorcontext.ActorIDFromContext(c.Request.Context())
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	err := s.notificationSvc.MarkRead(c.Request.Context(), notificationdomain.MarkReadRequest{
		ID:     strings.TrimSpace(c.Param("id")),
		UserID: actorID.String(),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"read": true}})
}

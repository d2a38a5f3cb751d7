package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	activitydomain "github.com/landworks/cadastre/internal/activity/domain"
	auditdomain "github.com/landworks/cadastre/internal/audit/domain"
)

func (s *Server) ListAuditLogs(c *gin.Context) {
	var query struct {
		EntityType string `form:"entity_type"`
		EntityID   string `form:"entity_id"`
		ActorID    string `form:"actor_id"`
		Action     string `form:"action"`
		StartAt    string `form:"start_at"`
		EndAt      string `form:"end_at"`
		Limit      int    `form:"limit"`
		Offset     int    `form:"offset"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	var startAt, endAt *time.Time
	if v := strings.TrimSpace(query.StartAt); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			AbortWithError(c, newValidationError("start_at", "invalid_date", "invalid date"))
			return
		}
		startAt = &t
	}
	if v := strings.TrimSpace(query.EndAt); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			AbortWithError(c, newValidationError("end_at", "invalid_date", "invalid date"))
			return
		}
		endAt = &t
	}

	resp, err := s.auditSvc.ListByEntity(c.Request.Context(), auditdomain.ListAuditRequest{
		EntityKind: strings.TrimSpace(query.EntityType),
		EntityID:   strings.TrimSpace(query.EntityID),
		ActorID:    strings.TrimSpace(query.ActorID),
		Action:     strings.TrimSpace(query.Action),
		StartAt:    startAt,
		EndAt:      endAt,
		Limit:      query.Limit,
		Offset:     query.Offset,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListActivityLogs(c *gin.Context) {
	var query struct {
		EntityType string `form:"entity_type"`
		EntityID   string `form:"entity_id"`
		Limit      int    `form:"limit"`
		Offset     int    `form:"offset"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.activitySvc.ListByEntity(c.Request.Context(), activitydomain.ListActivityRequest{
		EntityKind: strings.TrimSpace(query.EntityType),
		EntityID:   strings.TrimSpace(query.EntityID),
		Limit:      query.Limit,
		Offset:     query.Offset,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

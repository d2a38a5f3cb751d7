package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	workflowdomain "github.com/landworks/cadastre/internal/workflow/domain"
)

func (s *Server) SubmitEntity(c *gin.Context) {
	resp, err := s.workflowSvc.Submit(c.Request.Context(), workflowdomain.SubmitRequest{
		EntityKind: strings.TrimSpace(c.Param("entityType")),
		EntityID:   strings.TrimSpace(c.Param("id")),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ApproveEntity(c *gin.Context) {
	resp, err := s.workflowSvc.Approve(c.Request.Context(), workflowdomain.ApproveRequest{
		EntityKind: strings.TrimSpace(c.Param("entityType")),
		EntityID:   strings.TrimSpace(c.Param("id")),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type rejectEntityRequest struct {
	Feedback string `json:"feedback"`
}

func (s *Server) RejectEntity(c *gin.Context) {
	var req rejectEntityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.workflowSvc.Reject(c.Request.Context(), workflowdomain.RejectRequest{
		EntityKind: strings.TrimSpace(c.Param("entityType")),
		EntityID:   strings.TrimSpace(c.Param("id")),
		Feedback:   req.Feedback,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) DeleteEntity(c *gin.Context) {
	err := s.workflowSvc.Delete(c.Request.Context(), workflowdomain.DeleteRequest{
		EntityKind: strings.TrimSpace(c.Param("entityType")),
		EntityID:   strings.TrimSpace(c.Param("id")),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"deleted": true}})
}

func (s *Server) GetWorkflowConfig(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"data": s.workflowCfg.Get()})
}

// reviewInfo carries presentation-only review queue flags. Thresholds
// come from the hot-reloadable workflow config and never gate a
// transition.
type reviewInfo struct {
	PendingDays int  `json:"pending_days"`
	Warn        bool `json:"warn"`
	Escalate    bool `json:"escalate"`
}

func (s *Server) reviewInfoFor(status workflowdomain.Status, submittedAt *time.Time) *reviewInfo {
	if status != workflowdomain.StatusSubmitted || submittedAt == nil {
		return nil
	}

	cfg := s.workflowCfg.Get()
	days := int(s.clock.Now().Sub(*submittedAt).Hours() / 24)
	if days < 0 {
		days = 0
	}
	return &reviewInfo{
		PendingDays: days,
		Warn:        days >= cfg.WarnAfterDays,
		Escalate:    days >= cfg.EscalateAfterDays,
	}
}

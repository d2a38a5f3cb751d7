package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	userdomain "github.com/landworks/cadastre/internal/user/domain"
)

type createUserRequest struct {
	Username string `json:"username"`
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	Role     string `json:"role"`
}

func (s *Server) CreateUser(c *gin.Context) {
	var req createUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.userSvc.Create(c.Request.Context(), userdomain.CreateUserRequest{
		Username: req.Username,
		FullName: req.FullName,
		Email:    req.Email,
		Role:     req.Role,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) ListUsers(c *gin.Context) {
	var query struct {
		PageToken string `form:"page_token"`
		PageSize  int32  `form:"page_size"`
		Role      string `form:"role"`
		Active    *bool  `form:"active"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.userSvc.List(c.Request.Context(), userdomain.ListUserRequest{
		PageToken: strings.TrimSpace(query.PageToken),
		PageSize:  query.PageSize,
		Role:      query.Role,
		Active:    query.Active,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp.Users, "page_info": resp.PageInfo})
}

func (s *Server) GetUserByID(c *gin.Context) {
	resp, err := s.userSvc.GetByID(c.Request.Context(), userdomain.GetUserRequest{
		ID: strings.TrimSpace(c.Param("id")),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// DeactivateUser flips the active flag off. Deactivated users keep
// their history but can no longer act.
func (s *Server) DeactivateUser(c *gin.Context) {
	inactive := false
	resp, err := s.userSvc.Update(c.Request.Context(), userdomain.UpdateUserRequest{
		ID:     strings.TrimSpace(c.Param("id")),
		Active: &inactive,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func isUserValidationError(err error) bool {
	switch err {
	case userdomain.ErrInvalidUsername,
		userdomain.ErrInvalidName,
		userdomain.ErrInvalidEmail,
		userdomain.ErrInvalidRole,
		userdomain.ErrInvalidID:
		return true
	default:
		return false
	}
}

package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	customerdomain "github.com/landworks/cadastre/internal/customer/domain"
)

type createCustomerRequest struct {
	Name         string                     `json:"name"`
	Email        string                     `json:"email"`
	Phone        string                     `json:"phone"`
	Address      string                     `json:"address"`
	CustomerType string                     `json:"customer_type"`
	Detail       customerdomain.DetailInput `json:"detail"`
}

type updateCustomerRequest struct {
	Name    *string                     `json:"name"`
	Email   *string                     `json:"email"`
	Phone   *string                     `json:"phone"`
	Address *string                     `json:"address"`
	Detail  *customerdomain.DetailInput `json:"detail"`
}

type customerView struct {
	customerdomain.Customer
	Review *reviewInfo `json:"review,omitempty"`
}

func (s *Server) CreateCustomer(c *gin.Context) {
	var req createCustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.customerSvc.Create(c.Request.Context(), customerdomain.CreateCustomerRequest{
		Name:         req.Name,
		Email:        req.Email,
		Phone:        req.Phone,
		Address:      req.Address,
		CustomerType: req.CustomerType,
		Detail:       req.Detail,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) ListCustomers(c *gin.Context) {
	var query struct {
		PageToken string `form:"page_token"`
		PageSize  int32  `form:"page_size"`
		Status    string `form:"status"`
		Type      string `form:"type"`
		Name      string `form:"name"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.customerSvc.List(c.Request.Context(), customerdomain.ListCustomerRequest{
		PageToken: strings.TrimSpace(query.PageToken),
		PageSize:  query.PageSize,
		Status:    query.Status,
		Type:      query.Type,
		Name:      query.Name,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	items := make([]customerView, 0, len(resp.Customers))
	for _, item := range resp.Customers {
		items = append(items, customerView{
			Customer: item,
			Review:   s.reviewInfoFor(item.Status, item.SubmittedAt),
		})
	}

	c.JSON(http.StatusOK, gin.H{"data": items, "page_info": resp.PageInfo})
}

func (s *Server) GetCustomerByID(c *gin.Context) {
	resp, err := s.customerSvc.GetByID(c.Request.Context(), customerdomain.GetCustomerRequest{
		ID: strings.TrimSpace(c.Param("id")),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": customerView{
		Customer: resp,
		Review:   s.reviewInfoFor(resp.Status, resp.SubmittedAt),
	}})
}

func (s *Server) UpdateCustomer(c *gin.Context) {
	var req updateCustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.customerSvc.Update(c.Request.Context(), customerdomain.UpdateCustomerRequest{
		ID:      strings.TrimSpace(c.Param("id")),
		Name:    req.Name,
		Email:   req.Email,
		Phone:   req.Phone,
		Address: req.Address,
		Detail:  req.Detail,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func isCustomerValidationError(err error) bool {
	switch err {
	case customerdomain.ErrInvalidName,
		customerdomain.ErrInvalidEmail,
		customerdomain.ErrInvalidType,
		customerdomain.ErrInvalidStatus,
		customerdomain.ErrInvalidID,
		customerdomain.ErrInvalidDetail:
		return true
	default:
		return false
	}
}

package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	propertydomain "github.com/landworks/cadastre/internal/property/domain"
)

type createPropertyRequest struct {
	ParcelNumber  string  `json:"parcel_number"`
	Address       string  `json:"address"`
	AreaSqm       float64 `json:"area_sqm"`
	LandUse       string  `json:"land_use"`
	OwnerID       string  `json:"owner_id"`
	DeclaredValue int64   `json:"declared_value"`
}

type updatePropertyRequest struct {
	Address       *string  `json:"address"`
	AreaSqm       *float64 `json:"area_sqm"`
	LandUse       *string  `json:"land_use"`
	DeclaredValue *int64   `json:"declared_value"`
}

type propertyView struct {
	propertydomain.Property
	Review *reviewInfo `json:"review,omitempty"`
}

func (s *Server) CreateProperty(c *gin.Context) {
	var req createPropertyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.propertySvc.Create(c.Request.Context(), propertydomain.CreatePropertyRequest{
		ParcelNumber:  req.ParcelNumber,
		Address:       req.Address,
		AreaSqm:       req.AreaSqm,
		LandUse:       req.LandUse,
		OwnerID:       req.OwnerID,
		DeclaredValue: req.DeclaredValue,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) ListProperties(c *gin.Context) {
	var query struct {
		PageToken string `form:"page_token"`
		PageSize  int32  `form:"page_size"`
		Status    string `form:"status"`
		OwnerID   string `form:"owner_id"`
		LandUse   string `form:"land_use"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.propertySvc.List(c.Request.Context(), propertydomain.ListPropertyRequest{
		PageToken: strings.TrimSpace(query.PageToken),
		PageSize:  query.PageSize,
		Status:    query.Status,
		OwnerID:   query.OwnerID,
		LandUse:   query.LandUse,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	items := make([]propertyView, 0, len(resp.Properties))
	for _, item := range resp.Properties {
		items = append(items, propertyView{
			Property: item,
			Review:   s.reviewInfoFor(item.Status, item.SubmittedAt),
		})
	}

	c.JSON(http.StatusOK, gin.H{"data": items, "page_info": resp.PageInfo})
}

func (s *Server) GetPropertyByID(c *gin.Context) {
	resp, err := s.propertySvc.GetByID(c.Request.Context(), propertydomain.GetPropertyRequest{
		ID: strings.TrimSpace(c.Param("id")),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": propertyView{
		Property: resp,
		Review:   s.reviewInfoFor(resp.Status, resp.SubmittedAt),
	}})
}

func (s *Server) UpdateProperty(c *gin.Context) {
	var req updatePropertyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.propertySvc.Update(c.Request.Context(), propertydomain.UpdatePropertyRequest{
		ID:            strings.TrimSpace(c.Param("id")),
		Address:       req.Address,
		AreaSqm:       req.AreaSqm,
		LandUse:       req.LandUse,
		DeclaredValue: req.DeclaredValue,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func isPropertyValidationError(err error) bool {
	switch err {
	case propertydomain.ErrInvalidParcelNumber,
		propertydomain.ErrInvalidAddress,
		propertydomain.ErrInvalidArea,
		propertydomain.ErrInvalidValue,
		propertydomain.ErrInvalidStatus,
		propertydomain.ErrInvalidID,
		propertydomain.ErrOwnerNotFound:
		return true
	default:
		return false
	}
}

package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	assessmentdomain "github.com/landworks/cadastre/internal/assessment/domain"
)

type createAssessmentRequest struct {
	PropertyID      string `json:"property_id"`
	TaxYear         int    `json:"tax_year"`
	BaseAmount      int64  `json:"base_amount"`
	ExemptionAmount int64  `json:"exemption_amount"`
	DueDate         string `json:"due_date"`
	AssessmentDate  string `json:"assessment_date"`
}

type applyPaymentRequest struct {
	Amount        int64  `json:"amount"`
	PaymentDate   string `json:"payment_date"`
	Method        string `json:"method"`
	ReceiptNumber string `json:"receipt_number"`
	Notes         string `json:"notes"`
}

// parseDateField accepts RFC3339 timestamps and bare dates.
func parseDateField(field, value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, newValidationError(field, "invalid_date", "invalid date")
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return time.Time{}, newValidationError(field, "invalid_date", "invalid date")
	}
	return t, nil
}

func (s *Server) CreateAssessment(c *gin.Context) {
	var req createAssessmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	dueDate, err := parseDateField("due_date", req.DueDate)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	assessmentDate, err := parseDateField("assessment_date", req.AssessmentDate)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.assessmentSvc.CreateAssessment(c.Request.Context(), assessmentdomain.CreateAssessmentRequest{
		PropertyID:      req.PropertyID,
		TaxYear:         req.TaxYear,
		BaseAmount:      req.BaseAmount,
		ExemptionAmount: req.ExemptionAmount,
		DueDate:         dueDate,
		AssessmentDate:  assessmentDate,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) ListAssessmentsByProperty(c *gin.Context) {
	resp, err := s.assessmentSvc.ListByProperty(c.Request.Context(), assessmentdomain.ListByPropertyRequest{
		PropertyID: strings.TrimSpace(c.Query("property_id")),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetAssessmentByID(c *gin.Context) {
	resp, err := s.assessmentSvc.GetAssessment(c.Request.Context(), assessmentdomain.GetAssessmentRequest{
		ID: strings.TrimSpace(c.Param("id")),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ApplyPayment(c *gin.Context) {
	var req applyPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	paymentDate, err := parseDateField("payment_date", req.PaymentDate)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.assessmentSvc.ApplyPayment(c.Request.Context(), assessmentdomain.ApplyPaymentRequest{
		AssessmentID:  strings.TrimSpace(c.Param("id")),
		Amount:        req.Amount,
		PaymentDate:   paymentDate,
		Method:        req.Method,
		ReceiptNumber: req.ReceiptNumber,
		Notes:         req.Notes,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) ListPayments(c *gin.Context) {
	resp, err := s.assessmentSvc.ListPayments(c.Request.Context(), assessmentdomain.ListPaymentsRequest{
		AssessmentID: strings.TrimSpace(c.Param("id")),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func isAssessmentValidationError(err error) bool {
	switch err {
	case assessmentdomain.ErrInvalidID,
		assessmentdomain.ErrInvalidTaxYear,
		assessmentdomain.ErrInvalidAmount,
		assessmentdomain.ErrInvalidMethod,
		assessmentdomain.ErrInvalidDueDate:
		return true
	default:
		return false
	}
}

package domain

import (
	"context"
	"errors"
	"fmt"
	"time"
)

type CreateAssessmentRequest struct {
	PropertyID      string
	TaxYear         int
	BaseAmount      int64
	ExemptionAmount int64
	DueDate         time.Time
	AssessmentDate  time.Time
}

type ApplyPaymentRequest struct {
	AssessmentID  string
	Amount        int64
	PaymentDate   time.Time
	Method        string
	ReceiptNumber string
	Notes         string
}

// ApplyPaymentResponse reports the payment together with the ledger
// state it produced.
type ApplyPaymentResponse struct {
	Payment     TaxPayment    `json:"payment"`
	Assessment  TaxAssessment `json:"assessment"`
	IsFullyPaid bool          `json:"is_fully_paid"`
}

type GetAssessmentRequest struct {
	ID string
}

type ListByPropertyRequest struct {
	PropertyID string
}

type ListPaymentsRequest struct {
	AssessmentID string
}

type Service interface {
	CreateAssessment(context.Context, CreateAssessmentRequest) (TaxAssessment, error)
	ApplyPayment(context.Context, ApplyPaymentRequest) (ApplyPaymentResponse, error)
	GetAssessment(context.Context, GetAssessmentRequest) (TaxAssessment, error)
	ListByProperty(context.Context, ListByPropertyRequest) ([]TaxAssessment, error)
	ListPayments(context.Context, ListPaymentsRequest) ([]TaxPayment, error)
}

// OverpaymentError rejects a payment exceeding the outstanding amount.
// It carries the outstanding amount for client display.
type OverpaymentError struct {
	Outstanding int64
}

func (e *OverpaymentError) Error() string {
	return fmt.Sprintf("payment exceeds outstanding amount of %d", e.Outstanding)
}

var (
	ErrInvalidID           = errors.New("invalid_id")
	ErrInvalidActor        = errors.New("invalid_actor")
	ErrInvalidTaxYear      = errors.New("invalid_tax_year")
	ErrInvalidAmount       = errors.New("invalid_amount")
	ErrInvalidMethod       = errors.New("invalid_method")
	ErrInvalidDueDate      = errors.New("invalid_due_date")
	ErrPropertyNotFound    = errors.New("property_not_found")
	ErrPropertyNotApproved = errors.New("property_not_approved")
	ErrDuplicateAssessment = errors.New("duplicate_assessment")
	ErrDuplicateReceipt    = errors.New("duplicate_receipt")
	ErrNotFound            = errors.New("not_found")
	ErrConflict            = errors.New("conflict")
)

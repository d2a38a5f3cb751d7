package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// AssessmentStatus is derived from the amounts and the due date, never
// stored independently of them.
type AssessmentStatus string

const (
	StatusNotAssessed AssessmentStatus = "NOT_ASSESSED"
	StatusAssessed    AssessmentStatus = "ASSESSED"
	StatusPartial     AssessmentStatus = "PARTIAL"
	StatusPaid        AssessmentStatus = "PAID"
	StatusOverdue     AssessmentStatus = "OVERDUE"
)

// DeriveStatus computes the assessment status from its amounts and due
// date. Lateness overrides PARTIAL and ASSESSED, never PAID or
// NOT_ASSESSED.
func DeriveStatus(assessed, paid, outstanding int64, dueDate, now time.Time) AssessmentStatus {
	switch {
	case assessed == 0:
		return StatusNotAssessed
	case outstanding == 0:
		return StatusPaid
	case now.After(dueDate):
		return StatusOverdue
	case paid > 0:
		return StatusPartial
	default:
		return StatusAssessed
	}
}

// TaxAssessment is one row per (property, tax year). Amounts are in
// minor units.
type TaxAssessment struct {
	ID                snowflake.ID     `gorm:"primaryKey" json:"id"`
	PropertyID        snowflake.ID     `gorm:"not null;uniqueIndex:idx_assessment_property_year" json:"property_id"`
	TaxYear           int              `gorm:"not null;uniqueIndex:idx_assessment_property_year" json:"tax_year"`
	BaseAmount        int64            `gorm:"not null" json:"base_amount"`
	ExemptionAmount   int64            `gorm:"not null" json:"exemption_amount"`
	AssessedAmount    int64            `gorm:"not null" json:"assessed_amount"`
	PaidAmount        int64            `gorm:"not null" json:"paid_amount"`
	OutstandingAmount int64            `gorm:"not null" json:"outstanding_amount"`
	Status            AssessmentStatus `gorm:"not null" json:"status"`
	DueDate           time.Time        `gorm:"not null" json:"due_date"`
	AssessmentDate    time.Time        `gorm:"not null" json:"assessment_date"`
	CreatedBy         snowflake.ID     `gorm:"not null" json:"created_by"`
	CreatedAt         time.Time        `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt         time.Time        `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (TaxAssessment) TableName() string { return "tax_assessments" }

// TaxPayment is append-only. Rows are never updated or deleted.
type TaxPayment struct {
	ID            snowflake.ID `gorm:"primaryKey" json:"id"`
	AssessmentID  snowflake.ID `gorm:"not null;index" json:"assessment_id"`
	Amount        int64        `gorm:"not null" json:"amount"`
	PaymentDate   time.Time    `gorm:"not null" json:"payment_date"`
	Method        string       `gorm:"not null" json:"method"`
	ReceiptNumber string       `gorm:"not null;uniqueIndex" json:"receipt_number"`
	CollectedBy   snowflake.ID `gorm:"not null" json:"collected_by"`
	Notes         string       `json:"notes,omitempty"`
	CreatedAt     time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (TaxPayment) TableName() string { return "tax_payments" }

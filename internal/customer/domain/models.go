package domain

import (
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	workflowdomain "github.com/landworks/cadastre/internal/workflow/domain"
)

// CustomerType tags the detail variant attached to a customer row.
type CustomerType string

const (
	TypePerson     CustomerType = "PERSON"
	TypeBusiness   CustomerType = "BUSINESS"
	TypeGovernment CustomerType = "GOVERNMENT"
)

func ParseCustomerType(value string) (CustomerType, bool) {
	switch CustomerType(strings.ToUpper(strings.TrimSpace(value))) {
	case TypePerson:
		return TypePerson, true
	case TypeBusiness:
		return TypeBusiness, true
	case TypeGovernment:
		return TypeGovernment, true
	default:
		return "", false
	}
}

type Customer struct {
	ID                snowflake.ID          `gorm:"primaryKey" json:"id"`
	Name              string                `gorm:"not null" json:"name"`
	Email             string                `gorm:"not null" json:"email"`
	Phone             string                `json:"phone,omitempty"`
	Address           string                `json:"address,omitempty"`
	CustomerType      CustomerType          `gorm:"not null" json:"customer_type"`
	Status            workflowdomain.Status `gorm:"not null;index" json:"status"`
	CreatedBy         snowflake.ID          `gorm:"not null" json:"created_by"`
	SubmittedAt       *time.Time            `json:"submitted_at,omitempty"`
	ApprovedBy        *snowflake.ID         `json:"approved_by,omitempty"`
	RejectionFeedback *string               `json:"rejection_feedback,omitempty"`
	CreatedAt         time.Time             `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt         time.Time             `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`

	Detail Detail `gorm:"-" json:"detail,omitempty"`
}

// Detail is the tagged variant behind CustomerType. Each variant owns
// its own validation and its own child table.
type Detail interface {
	CustomerType() CustomerType
	Validate() error
}

type PersonDetail struct {
	CustomerID  snowflake.ID `gorm:"primaryKey" json:"-"`
	NationalID  string       `gorm:"not null" json:"national_id"`
	DateOfBirth string       `json:"date_of_birth,omitempty"`
}

func (PersonDetail) TableName() string { return "customer_person_details" }

func (d PersonDetail) CustomerType() CustomerType { return TypePerson }

func (d PersonDetail) Validate() error {
	if strings.TrimSpace(d.NationalID) == "" {
		return ErrInvalidDetail
	}
	if raw := strings.TrimSpace(d.DateOfBirth); raw != "" {
		if _, err := time.Parse("2006-01-02", raw); err != nil {
			return ErrInvalidDetail
		}
	}
	return nil
}

type BusinessDetail struct {
	CustomerID         snowflake.ID `gorm:"primaryKey" json:"-"`
	RegistrationNumber string       `gorm:"not null" json:"registration_number"`
	ContactPerson      string       `json:"contact_person,omitempty"`
}

func (BusinessDetail) TableName() string { return "customer_business_details" }

func (d BusinessDetail) CustomerType() CustomerType { return TypeBusiness }

func (d BusinessDetail) Validate() error {
	if strings.TrimSpace(d.RegistrationNumber) == "" {
		return ErrInvalidDetail
	}
	return nil
}

type GovernmentDetail struct {
	CustomerID snowflake.ID `gorm:"primaryKey" json:"-"`
	AgencyCode string       `gorm:"not null" json:"agency_code"`
	Department string       `json:"department,omitempty"`
}

func (GovernmentDetail) TableName() string { return "customer_government_details" }

func (d GovernmentDetail) CustomerType() CustomerType { return TypeGovernment }

func (d GovernmentDetail) Validate() error {
	if strings.TrimSpace(d.AgencyCode) == "" {
		return ErrInvalidDetail
	}
	return nil
}

var ErrInvalidDetail = errors.New("invalid_detail")

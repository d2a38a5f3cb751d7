package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	workflowdomain "github.com/landworks/cadastre/internal/workflow/domain"
)

type Property struct {
	ID                snowflake.ID          `gorm:"primaryKey" json:"id"`
	ParcelNumber      string                `gorm:"not null;uniqueIndex" json:"parcel_number"`
	Address           string                `gorm:"not null" json:"address"`
	AreaSqm           float64               `gorm:"not null" json:"area_sqm"`
	LandUse           string                `json:"land_use,omitempty"`
	OwnerID           snowflake.ID          `gorm:"not null;index" json:"owner_id"`
	DeclaredValue     int64                 `json:"declared_value"`
	Status            workflowdomain.Status `gorm:"not null;index" json:"status"`
	CreatedBy         snowflake.ID          `gorm:"not null" json:"created_by"`
	SubmittedAt       *time.Time            `json:"submitted_at,omitempty"`
	ApprovedBy        *snowflake.ID         `json:"approved_by,omitempty"`
	RejectionFeedback *string               `json:"rejection_feedback,omitempty"`
	CreatedAt         time.Time             `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt         time.Time             `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Property) TableName() string { return "properties" }

package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// ActivityEntry is one row in the reviewer-facing history of a record:
// who did what, when, and any feedback attached to the action. One
// logical operation makes exactly one entry.
type ActivityEntry struct {
	ID         snowflake.ID      `gorm:"primaryKey" json:"id"`
	EntityKind string            `gorm:"not null;index:idx_activity_entity" json:"entity_kind"`
	EntityID   snowflake.ID      `gorm:"not null;index:idx_activity_entity" json:"entity_id"`
	Action     string            `gorm:"not null" json:"action"`
	ActorID    snowflake.ID      `gorm:"not null" json:"actor_id"`
	Feedback   *string           `json:"feedback,omitempty"`
	Metadata   datatypes.JSONMap `gorm:"type:jsonb;not null;default:'{}'" json:"metadata,omitempty"`
	CreatedAt  time.Time         `gorm:"not null;index" json:"created_at"`
}

func (ActivityEntry) TableName() string {
	return "activity_entries"
}

package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type Notification struct {
	ID         snowflake.ID `gorm:"primaryKey" json:"id"`
	UserID     snowflake.ID `gorm:"not null;index" json:"user_id"`
	EntityKind string       `gorm:"not null" json:"entity_kind"`
	EntityID   snowflake.ID `gorm:"not null" json:"entity_id"`
	EventType  string       `gorm:"not null" json:"event_type"`
	Title      string       `gorm:"not null" json:"title"`
	Message    string       `gorm:"not null" json:"message"`
	Read       bool         `gorm:"not null;default:false" json:"read"`
	CreatedAt  time.Time    `gorm:"not null;index" json:"created_at"`
}

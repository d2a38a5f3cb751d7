package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// AuditRecord is one field-level change. A single edit that touches
// several fields produces several records sharing one timestamp.
type AuditRecord struct {
	ID         snowflake.ID `gorm:"primaryKey" json:"id"`
	EntityKind string       `gorm:"not null;index:idx_audit_entity" json:"entity_kind"`
	EntityID   snowflake.ID `gorm:"not null;index:idx_audit_entity" json:"entity_id"`
	Action     string       `gorm:"not null" json:"action"`
	FieldName  string       `gorm:"not null" json:"field_name"`
	OldValue   *string      `json:"old_value,omitempty"`
	NewValue   *string      `json:"new_value,omitempty"`
	ActorID    snowflake.ID `gorm:"not null" json:"actor_id"`
	CreatedAt  time.Time    `gorm:"not null;index" json:"created_at"`
}

func (AuditRecord) TableName() string {
	return "audit_records"
}

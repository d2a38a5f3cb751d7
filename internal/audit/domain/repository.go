package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type ListFilter struct {
	EntityKind string
	EntityID   snowflake.ID
	ActorID    snowflake.ID
	Action     string
	StartAt    *time.Time
	EndAt      *time.Time
	Limit      int
	Offset     int
}

type Repository interface {
	InsertBatch(ctx context.Context, db *gorm.DB, records []*AuditRecord) error
	ListByEntity(ctx context.Context, db *gorm.DB, filter ListFilter) ([]*AuditRecord, int64, error)
}

package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type ListFilter struct {
	EntityKind string
	EntityID   snowflake.ID
	Limit      int
	Offset     int
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, entry *ActivityEntry) error
	ListByEntity(ctx context.Context, db *gorm.DB, filter ListFilter) ([]*ActivityEntry, int64, error)
}

package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type ListFilter struct {
	UserID     snowflake.ID
	UnreadOnly bool
	Limit      int
	Offset     int
}

type Repository interface {
	InsertBatch(ctx context.Context, db *gorm.DB, notifications []*Notification) error
	ListByUser(ctx context.Context, db *gorm.DB, filter ListFilter) ([]*Notification, int64, error)
	MarkRead(ctx context.Context, db *gorm.DB, id, userID snowflake.ID) (bool, error)
}

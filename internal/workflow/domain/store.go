package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// EntityStore adapts one record type to the workflow engine. Each
// managed package contributes an implementation over its own table.
type EntityStore interface {
	Kind() EntityKind

	// FindState returns nil when the record does not exist.
	FindState(ctx context.Context, db *gorm.DB, id snowflake.ID) (*EntityState, error)

	// UpdateStatus performs the conditional write and reports whether
	// a row was touched. A false result means the record moved (or
	// vanished) since it was read.
	UpdateStatus(ctx context.Context, db *gorm.DB, update StatusUpdate) (bool, error)

	// Delete removes the record and its type-specific child rows when
	// the row still holds one of the expected statuses.
	Delete(ctx context.Context, db *gorm.DB, id snowflake.ID, expected []Status) (bool, error)
}

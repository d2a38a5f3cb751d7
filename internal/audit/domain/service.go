package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

// FieldChange is one before/after pair. Nil values mark absence, so a
// creation carries nil old values and a deletion nil new values.
type FieldChange struct {
	Field string
	Old   *string
	New   *string
}

type RecordChangesRequest struct {
	EntityKind string
	EntityID   snowflake.ID
	Action     string
	ActorID    snowflake.ID
	Changes    []FieldChange
}

type ListAuditRequest struct {
	EntityKind string
	EntityID   string
	ActorID    string
	Action     string
	StartAt    *time.Time
	EndAt      *time.Time
	Limit      int
	Offset     int
}

type ListAuditResponse struct {
	Records []AuditRecord `json:"records"`
	Total   int64         `json:"total"`
	Limit   int           `json:"limit"`
	Offset  int           `json:"offset"`
}

type Service interface {
	// RecordChanges writes one record per changed field. An empty
	// change set is a no-op, not an error.
	RecordChanges(ctx context.Context, req RecordChangesRequest) error
	ListByEntity(ctx context.Context, req ListAuditRequest) (ListAuditResponse, error)
}

var (
	ErrInvalidEntity    = errors.New("invalid_entity")
	ErrInvalidAction    = errors.New("invalid_action")
	ErrInvalidID        = errors.New("invalid_id")
	ErrInvalidTimeRange = errors.New("invalid_time_range")
)

package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

type RecordActivityRequest struct {
	EntityKind string
	EntityID   snowflake.ID
	Action     string
	ActorID    snowflake.ID
	Feedback   *string
	Metadata   map[string]any
}

type ListActivityRequest struct {
	EntityKind string
	EntityID   string
	Limit      int
	Offset     int
}

type ListActivityResponse struct {
	Entries []ActivityEntry `json:"entries"`
	Total   int64           `json:"total"`
	Limit   int             `json:"limit"`
	Offset  int             `json:"offset"`
}

type Service interface {
	Record(ctx context.Context, req RecordActivityRequest) error
	ListByEntity(ctx context.Context, req ListActivityRequest) (ListActivityResponse, error)
}

var (
	ErrInvalidEntity = errors.New("invalid_entity")
	ErrInvalidAction = errors.New("invalid_action")
	ErrInvalidID     = errors.New("invalid_id")
)

package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

const (
	EventSubmitted = "SUBMITTED"
	EventApproved  = "APPROVED"
	EventRejected  = "REJECTED"
)

// DispatchRequest fans one event out to every recipient. Callers
// resolve the audience; the dispatcher only persists and counts.
type DispatchRequest struct {
	Recipients []snowflake.ID
	EntityKind string
	EntityID   snowflake.ID
	EventType  string
	Title      string
	Message    string
}

type ListNotificationRequest struct {
	UserID     string
	UnreadOnly bool
	Limit      int
	Offset     int
}

type ListNotificationResponse struct {
	Notifications []Notification `json:"notifications"`
	Total         int64          `json:"total"`
	Limit         int            `json:"limit"`
	Offset        int            `json:"offset"`
}

type MarkReadRequest struct {
	ID     string
	UserID string
}

type Service interface {
	Dispatch(ctx context.Context, req DispatchRequest) error
	ListByUser(ctx context.Context, req ListNotificationRequest) (ListNotificationResponse, error)
	MarkRead(ctx context.Context, req MarkReadRequest) error
}

var (
	ErrInvalidEntity  = errors.New("invalid_entity")
	ErrInvalidEvent   = errors.New("invalid_event")
	ErrInvalidMessage = errors.New("invalid_message")
	ErrInvalidID      = errors.New("invalid_id")
	ErrNotFound       = errors.New("not_found")
)

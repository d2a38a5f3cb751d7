package domain

import (
	"context"
	"errors"
)

type SubmitRequest struct {
	EntityKind string
	EntityID   string
}

type ApproveRequest struct {
	EntityKind string
	EntityID   string
}

type RejectRequest struct {
	EntityKind string
	EntityID   string
	Feedback   string
}

type DeleteRequest struct {
	EntityKind string
	EntityID   string
}

type Service interface {
	Submit(ctx context.Context, req SubmitRequest) (Transition, error)
	Approve(ctx context.Context, req ApproveRequest) (Transition, error)
	Reject(ctx context.Context, req RejectRequest) (Transition, error)
	Delete(ctx context.Context, req DeleteRequest) error
}

var (
	ErrInvalidEntityKind = errors.New("invalid_entity_kind")
	ErrInvalidID         = errors.New("invalid_id")
	ErrInvalidActor      = errors.New("invalid_actor")
	ErrNotFound          = errors.New("not_found")
	ErrInvalidTransition = errors.New("invalid_transition")
	ErrConflict          = errors.New("conflict")
	ErrFeedbackTooShort  = errors.New("feedback_too_short")
	ErrForbidden         = errors.New("forbidden")
)

package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Status is the review state of a workflow-managed record.
type Status string

const (
	StatusDraft     Status = "DRAFT"
	StatusSubmitted Status = "SUBMITTED"
	StatusApproved  Status = "APPROVED"
	StatusRejected  Status = "REJECTED"
)

// EntityKind names a record type managed by the workflow engine.
type EntityKind string

const (
	EntityCustomer EntityKind = "customer"
	EntityProperty EntityKind = "property"
)

func ParseEntityKind(value string) (EntityKind, bool) {
	switch EntityKind(value) {
	case EntityCustomer:
		return EntityCustomer, true
	case EntityProperty:
		return EntityProperty, true
	default:
		return "", false
	}
}

// EntityState is the workflow-relevant slice of a record, independent
// of its type-specific columns.
type EntityState struct {
	ID                snowflake.ID
	Status            Status
	CreatedBy         snowflake.ID
	SubmittedAt       *time.Time
	ApprovedBy        *snowflake.ID
	RejectionFeedback *string
}

// StatusUpdate describes one conditional transition. The write only
// lands when the row still holds one of the expected statuses.
type StatusUpdate struct {
	ID       snowflake.ID
	Expected []Status
	Next     Status

	// SubmittedAt and ApprovedBy are written only when non-nil;
	// RejectionFeedback is always written, nil clearing the column.
	SubmittedAt       *time.Time
	ApprovedBy        *snowflake.ID
	RejectionFeedback *string
	UpdatedAt         time.Time
}

// Transition reports a completed workflow action.
type Transition struct {
	EntityKind EntityKind   `json:"entity_kind"`
	EntityID   snowflake.ID `json:"entity_id"`
	From       Status       `json:"from"`
	To         Status       `json:"to"`
	Feedback   *string      `json:"feedback,omitempty"`
}

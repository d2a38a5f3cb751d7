package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/landworks/cadastre/internal/actorcontext"
	activitydomain "github.com/landworks/cadastre/internal/activity/domain"
	auditdomain "github.com/landworks/cadastre/internal/audit/domain"
	"github.com/landworks/cadastre/internal/clock"
	notificationdomain "github.com/landworks/cadastre/internal/notification/domain"
	"github.com/landworks/cadastre/internal/observability/metrics"
	userdomain "github.com/landworks/cadastre/internal/user/domain"
	"github.com/landworks/cadastre/internal/workflow/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const minFeedbackLen = 10

type Params struct {
	fx.In

	DB              *gorm.DB
	Log             *zap.Logger
	Clock           clock.Clock
	Stores          []domain.EntityStore `group:"workflow.stores"`
	UserSvc         userdomain.Service
	AuditSvc        auditdomain.Service
	ActivitySvc     activitydomain.Service
	NotificationSvc notificationdomain.Service
	Metrics         *metrics.Metrics `optional:"true"`
}

type Service struct {
	db              *gorm.DB
	log             *zap.Logger
	clock           clock.Clock
	stores          map[domain.EntityKind]domain.EntityStore
	userSvc         userdomain.Service
	auditSvc        auditdomain.Service
	activitySvc     activitydomain.Service
	notificationSvc notificationdomain.Service
	metrics         *metrics.Metrics
}

func New(p Params) domain.Service {
	stores := make(map[domain.EntityKind]domain.EntityStore, len(p.Stores))
	for _, store := range p.Stores {
		if store == nil {
			continue
		}
		stores[store.Kind()] = store
	}
	return &Service{
		db:              p.DB,
		log:             p.Log.Named("workflow.service"),
		clock:           p.Clock,
		stores:          stores,
		userSvc:         p.UserSvc,
		auditSvc:        p.AuditSvc,
		activitySvc:     p.ActivitySvc,
		notificationSvc: p.NotificationSvc,
		metrics:         p.Metrics,
	}
}

func (s *Service) Submit(ctx context.Context, req domain.SubmitRequest) (domain.Transition, error) {
	kind, store, id, err := s.resolveTarget(req.EntityKind, req.EntityID)
	if err != nil {
		return domain.Transition{}, err
	}
	actor, err := s.resolveActor(ctx)
	if err != nil {
		return domain.Transition{}, err
	}

	state, err := store.FindState(ctx, s.db, id)
	if err != nil {
		return domain.Transition{}, err
	}
	if state == nil {
		return domain.Transition{}, domain.ErrNotFound
	}
	if actor.ID != state.CreatedBy && !actor.Role.IsAdministrator() {
		return domain.Transition{}, domain.ErrForbidden
	}
	if state.Status != domain.StatusDraft && state.Status != domain.StatusRejected {
		return domain.Transition{}, domain.ErrInvalidTransition
	}

	now := s.clock.Now()
	updated, err := store.UpdateStatus(ctx, s.db, domain.StatusUpdate{
		ID:          id,
		Expected:    []domain.Status{domain.StatusDraft, domain.StatusRejected},
		Next:        domain.StatusSubmitted,
		SubmittedAt: &now,
		UpdatedAt:   now,
	})
	if err != nil {
		return domain.Transition{}, err
	}
	if !updated {
		return domain.Transition{}, s.concurrentFailure(ctx, store, id)
	}

	changes := []auditdomain.FieldChange{
		statusChange(state.Status, domain.StatusSubmitted),
		{Field: "submitted_at", Old: timeString(state.SubmittedAt), New: stringPtr(now.Format(time.RFC3339))},
	}
	if state.RejectionFeedback != nil {
		changes = append(changes, auditdomain.FieldChange{Field: "rejection_feedback", Old: state.RejectionFeedback})
	}
	s.record(ctx, kind, id, "SUBMITTED", actor.ID, nil, changes)

	reviewers, err := s.userSvc.ActiveReviewers(ctx)
	if err != nil {
		s.log.Warn("failed to resolve reviewers for fan-out", zap.Error(err))
	} else {
		recipients := make([]snowflake.ID, 0, len(reviewers))
		for _, reviewer := range reviewers {
			recipients = append(recipients, reviewer.ID)
		}
		s.notify(ctx, kind, id, recipients, notificationdomain.EventSubmitted,
			fmt.Sprintf("%s awaiting review", entityLabel(kind)),
			fmt.Sprintf("%s %s submitted for review by %s", entityLabel(kind), id, actor.FullName))
	}

	return domain.Transition{EntityKind: kind, EntityID: id, From: state.Status, To: domain.StatusSubmitted}, nil
}

func (s *Service) Approve(ctx context.Context, req domain.ApproveRequest) (domain.Transition, error) {
	kind, store, id, err := s.resolveTarget(req.EntityKind, req.EntityID)
	if err != nil {
		return domain.Transition{}, err
	}
	actor, err := s.resolveActor(ctx)
	if err != nil {
		return domain.Transition{}, err
	}
	if !actor.Role.CanReview() {
		return domain.Transition{}, domain.ErrForbidden
	}

	state, err := store.FindState(ctx, s.db, id)
	if err != nil {
		return domain.Transition{}, err
	}
	if state == nil {
		return domain.Transition{}, domain.ErrNotFound
	}
	if state.Status != domain.StatusSubmitted {
		return domain.Transition{}, domain.ErrInvalidTransition
	}

	now := s.clock.Now()
	updated, err := store.UpdateStatus(ctx, s.db, domain.StatusUpdate{
		ID:         id,
		Expected:   []domain.Status{domain.StatusSubmitted},
		Next:       domain.StatusApproved,
		ApprovedBy: &actor.ID,
		UpdatedAt:  now,
	})
	if err != nil {
		return domain.Transition{}, err
	}
	if !updated {
		return domain.Transition{}, s.concurrentFailure(ctx, store, id)
	}

	changes := []auditdomain.FieldChange{
		statusChange(state.Status, domain.StatusApproved),
		{Field: "approved_by", Old: idString(state.ApprovedBy), New: stringPtr(actor.ID.String())},
	}
	if state.RejectionFeedback != nil {
		changes = append(changes, auditdomain.FieldChange{Field: "rejection_feedback", Old: state.RejectionFeedback})
	}
	s.record(ctx, kind, id, "APPROVED", actor.ID, nil, changes)

	s.notify(ctx, kind, id, []snowflake.ID{state.CreatedBy}, notificationdomain.EventApproved,
		fmt.Sprintf("%s approved", entityLabel(kind)),
		fmt.Sprintf("%s %s approved by %s", entityLabel(kind), id, actor.FullName))

	return domain.Transition{EntityKind: kind, EntityID: id, From: state.Status, To: domain.StatusApproved}, nil
}

func (s *Service) Reject(ctx context.Context, req domain.RejectRequest) (domain.Transition, error) {
	feedback := strings.TrimSpace(req.Feedback)
	if len(feedback) < minFeedbackLen {
		return domain.Transition{}, domain.ErrFeedbackTooShort
	}

	kind, store, id, err := s.resolveTarget(req.EntityKind, req.EntityID)
	if err != nil {
		return domain.Transition{}, err
	}
	actor, err := s.resolveActor(ctx)
	if err != nil {
		return domain.Transition{}, err
	}
	if !actor.Role.CanReview() {
		return domain.Transition{}, domain.ErrForbidden
	}

	state, err := store.FindState(ctx, s.db, id)
	if err != nil {
		return domain.Transition{}, err
	}
	if state == nil {
		return domain.Transition{}, domain.ErrNotFound
	}
	if state.Status != domain.StatusSubmitted {
		return domain.Transition{}, domain.ErrInvalidTransition
	}

	now := s.clock.Now()
	updated, err := store.UpdateStatus(ctx, s.db, domain.StatusUpdate{
		ID:                id,
		Expected:          []domain.Status{domain.StatusSubmitted},
		Next:              domain.StatusRejected,
		ApprovedBy:        &actor.ID,
		RejectionFeedback: &feedback,
		UpdatedAt:         now,
	})
	if err != nil {
		return domain.Transition{}, err
	}
	if !updated {
		return domain.Transition{}, s.concurrentFailure(ctx, store, id)
	}

	changes := []auditdomain.FieldChange{
		statusChange(state.Status, domain.StatusRejected),
		{Field: "approved_by", Old: idString(state.ApprovedBy), New: stringPtr(actor.ID.String())},
		{Field: "rejection_feedback", Old: state.RejectionFeedback, New: &feedback},
	}
	s.record(ctx, kind, id, "REJECTED", actor.ID, &feedback, changes)

	s.notify(ctx, kind, id, []snowflake.ID{state.CreatedBy}, notificationdomain.EventRejected,
		fmt.Sprintf("%s rejected", entityLabel(kind)),
		fmt.Sprintf("%s %s rejected: %s", entityLabel(kind), id, preview(feedback)))

	return domain.Transition{EntityKind: kind, EntityID: id, From: state.Status, To: domain.StatusRejected, Feedback: &feedback}, nil
}

func (s *Service) Delete(ctx context.Context, req domain.DeleteRequest) error {
	kind, store, id, err := s.resolveTarget(req.EntityKind, req.EntityID)
	if err != nil {
		return err
	}
	actor, err := s.resolveActor(ctx)
	if err != nil {
		return err
	}

	state, err := store.FindState(ctx, s.db, id)
	if err != nil {
		return err
	}
	if state == nil {
		return domain.ErrNotFound
	}

	// Administrators can remove anything; a creator may only retract
	// their own unsubmitted draft.
	var expected []domain.Status
	switch {
	case actor.Role.IsAdministrator():
	case actor.ID == state.CreatedBy && state.Status == domain.StatusDraft:
		expected = []domain.Status{domain.StatusDraft}
	default:
		return domain.ErrForbidden
	}

	// The activity entry must outlive the record.
	if err := s.activitySvc.Record(ctx, activitydomain.RecordActivityRequest{
		EntityKind: string(kind),
		EntityID:   id,
		Action:     "DELETED",
		ActorID:    actor.ID,
	}); err != nil {
		s.log.Warn("failed to record delete activity", zap.Error(err))
	}

	deleted, err := store.Delete(ctx, s.db, id, expected)
	if err != nil {
		return err
	}
	if !deleted {
		return s.concurrentFailure(ctx, store, id)
	}

	status := string(state.Status)
	if err := s.auditSvc.RecordChanges(ctx, auditdomain.RecordChangesRequest{
		EntityKind: string(kind),
		EntityID:   id,
		Action:     "DELETED",
		ActorID:    actor.ID,
		Changes:    []auditdomain.FieldChange{{Field: "status", Old: &status}},
	}); err != nil {
		s.log.Warn("failed to record delete audit", zap.Error(err))
	}

	s.metrics.RecordWorkflowTransition(ctx, string(kind), "DELETED")
	return nil
}

func (s *Service) resolveTarget(rawKind, rawID string) (domain.EntityKind, domain.EntityStore, snowflake.ID, error) {
	kind, ok := domain.ParseEntityKind(strings.TrimSpace(rawKind))
	if !ok {
		return "", nil, 0, domain.ErrInvalidEntityKind
	}
	store, ok := s.stores[kind]
	if !ok {
		return "", nil, 0, domain.ErrInvalidEntityKind
	}
	id, err := snowflake.ParseString(strings.TrimSpace(rawID))
	if err != nil || id == 0 {
		return "", nil, 0, domain.ErrInvalidID
	}
	return kind, store, id, nil
}

func (s *Service) resolveActor(ctx context.Context) (userdomain.User, error) {
	actorID, ok := actorcontext.ActorIDFromContext(ctx)
	if !ok || actorID == 0 {
		return userdomain.User{}, domain.ErrInvalidActor
	}
	actor, err := s.userSvc.GetByID(ctx, userdomain.GetUserRequest{ID: actorID.String()})
	if err != nil {
		return userdomain.User{}, domain.ErrInvalidActor
	}
	if !actor.Active {
		return userdomain.User{}, domain.ErrForbidden
	}
	return actor, nil
}

// concurrentFailure classifies a conditional write that touched no
// rows: the record either vanished or moved to another status while
// this request held its earlier read.
func (s *Service) concurrentFailure(ctx context.Context, store domain.EntityStore, id snowflake.ID) error {
	state, err := store.FindState(ctx, s.db, id)
	if err != nil {
		return err
	}
	if state == nil {
		return domain.ErrNotFound
	}
	return domain.ErrConflict
}

func (s *Service) record(ctx context.Context, kind domain.EntityKind, id snowflake.ID, action string, actorID snowflake.ID, feedback *string, changes []auditdomain.FieldChange) {
	if err := s.auditSvc.RecordChanges(ctx, auditdomain.RecordChangesRequest{
		EntityKind: string(kind),
		EntityID:   id,
		Action:     action,
		ActorID:    actorID,
		Changes:    changes,
	}); err != nil {
		s.log.Warn("failed to record audit trail", zap.String("action", action), zap.Error(err))
	}

	if err := s.activitySvc.Record(ctx, activitydomain.RecordActivityRequest{
		EntityKind: string(kind),
		EntityID:   id,
		Action:     action,
		ActorID:    actorID,
		Feedback:   feedback,
	}); err != nil {
		s.log.Warn("failed to record activity entry", zap.String("action", action), zap.Error(err))
	}

	s.metrics.RecordWorkflowTransition(ctx, string(kind), action)
}

func (s *Service) notify(ctx context.Context, kind domain.EntityKind, id snowflake.ID, recipients []snowflake.ID, eventType, title, message string) {
	if err := s.notificationSvc.Dispatch(ctx, notificationdomain.DispatchRequest{
		Recipients: recipients,
		EntityKind: string(kind),
		EntityID:   id,
		EventType:  eventType,
		Title:      title,
		Message:    message,
	}); err != nil {
		s.log.Warn("failed to dispatch notifications", zap.String("event_type", eventType), zap.Error(err))
	}
}

func statusChange(from, to domain.Status) auditdomain.FieldChange {
	old := string(from)
	next := string(to)
	return auditdomain.FieldChange{Field: "status", Old: &old, New: &next}
}

func entityLabel(kind domain.EntityKind) string {
	switch kind {
	case domain.EntityCustomer:
		return "Customer"
	case domain.EntityProperty:
		return "Property"
	default:
		return string(kind)
	}
}

// preview shortens reviewer feedback for notification messages.
func preview(feedback string) string {
	const max = 50
	runes := []rune(feedback)
	if len(runes) <= max {
		return feedback
	}
	return string(runes[:max-3]) + "..."
}

func stringPtr(value string) *string {
	return &value
}

func timeString(value *time.Time) *string {
	if value == nil {
		return nil
	}
	formatted := value.Format(time.RFC3339)
	return &formatted
}

func idString(id *snowflake.ID) *string {
	if id == nil {
		return nil
	}
	value := id.String()
	return &value
}

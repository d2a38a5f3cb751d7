package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/landworks/cadastre/internal/clock"
	"github.com/landworks/cadastre/internal/notification/domain"
	"github.com/landworks/cadastre/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Clock   clock.Clock
	Repo    domain.Repository
	Metrics *metrics.Metrics `optional:"true"`
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	genID   *snowflake.Node
	clock   clock.Clock
	repo    domain.Repository
	metrics *metrics.Metrics
}

func NewService(p Params) domain.Service {
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("notification.service"),
		genID:   p.GenID,
		clock:   p.Clock,
		repo:    p.Repo,
		metrics: p.Metrics,
	}
}

func (s *Service) Dispatch(ctx context.Context, req domain.DispatchRequest) error {
	entityKind := strings.TrimSpace(req.EntityKind)
	if entityKind == "" || req.EntityID == 0 {
		return domain.ErrInvalidEntity
	}
	eventType := strings.TrimSpace(req.EventType)
	if eventType == "" {
		return domain.ErrInvalidEvent
	}
	message := strings.TrimSpace(req.Message)
	if message == "" {
		return domain.ErrInvalidMessage
	}
	title := strings.TrimSpace(req.Title)
	if title == "" {
		title = eventType
	}

	now := s.clock.Now()
	seen := make(map[snowflake.ID]struct{}, len(req.Recipients))
	notifications := make([]*domain.Notification, 0, len(req.Recipients))
	for _, recipient := range req.Recipients {
		if recipient == 0 {
			continue
		}
		if _, ok := seen[recipient]; ok {
			continue
		}
		seen[recipient] = struct{}{}
		notifications = append(notifications, &domain.Notification{
			ID:         s.genID.Generate(),
			UserID:     recipient,
			EntityKind: entityKind,
			EntityID:   req.EntityID,
			EventType:  eventType,
			Title:      title,
			Message:    message,
			CreatedAt:  now,
		})
	}
	if len(notifications) == 0 {
		return nil
	}

	if err := s.repo.InsertBatch(ctx, s.db, notifications); err != nil {
		s.log.Warn("failed to dispatch notifications",
			zap.String("entity_kind", entityKind),
			zap.String("event_type", eventType),
			zap.Int("recipients", len(notifications)),
			zap.Error(err),
		)
		return err
	}

	for range notifications {
		s.metrics.RecordNotificationDispatched(ctx, eventType)
	}
	return nil
}

func (s *Service) ListByUser(ctx context.Context, req domain.ListNotificationRequest) (domain.ListNotificationResponse, error) {
	userID, err := s.parseID(req.UserID)
	if err != nil {
		return domain.ListNotificationResponse{}, err
	}

	limit := req.Limit
	if limit <= 0 {
		limit = 50
	}
	if limit > 250 {
		limit = 250
	}
	offset := req.Offset
	if offset < 0 {
		offset = 0
	}

	items, total, err := s.repo.ListByUser(ctx, s.db, domain.ListFilter{
		UserID:     userID,
		UnreadOnly: req.UnreadOnly,
		Limit:      limit,
		Offset:     offset,
	})
	if err != nil {
		return domain.ListNotificationResponse{}, err
	}

	notifications := make([]domain.Notification, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		notifications = append(notifications, *item)
	}

	return domain.ListNotificationResponse{
		Notifications: notifications,
		Total:         total,
		Limit:         limit,
		Offset:        offset,
	}, nil
}

func (s *Service) MarkRead(ctx context.Context, req domain.MarkReadRequest) error {
	id, err := s.parseID(req.ID)
	if err != nil {
		return err
	}
	userID, err := s.parseID(req.UserID)
	if err != nil {
		return err
	}

	updated, err := s.repo.MarkRead(ctx, s.db, id, userID)
	if err != nil {
		return err
	}
	if !updated {
		return domain.ErrNotFound
	}
	return nil
}

func (s *Service) parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}

package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/landworks/cadastre/internal/activity/domain"
	"github.com/landworks/cadastre/internal/clock"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  domain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	repo  domain.Repository
}

func NewService(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("activity.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
	}
}

func (s *Service) Record(ctx context.Context, req domain.RecordActivityRequest) error {
	entityKind := strings.TrimSpace(req.EntityKind)
	if entityKind == "" || req.EntityID == 0 {
		return domain.ErrInvalidEntity
	}
	action := strings.TrimSpace(req.Action)
	if action == "" {
		return domain.ErrInvalidAction
	}

	metadata := datatypes.JSONMap{}
	for key, value := range req.Metadata {
		if key == "" {
			continue
		}
		metadata[key] = value
	}

	entry := domain.ActivityEntry{
		ID:         s.genID.Generate(),
		EntityKind: entityKind,
		EntityID:   req.EntityID,
		Action:     action,
		ActorID:    req.ActorID,
		Feedback:   normalizeFeedback(req.Feedback),
		Metadata:   metadata,
		CreatedAt:  s.clock.Now(),
	}

	if err := s.repo.Insert(ctx, s.db, &entry); err != nil {
		s.log.Warn("failed to write activity entry",
			zap.String("entity_kind", entityKind),
			zap.String("action", action),
			zap.Error(err),
		)
		return err
	}
	return nil
}

func (s *Service) ListByEntity(ctx context.Context, req domain.ListActivityRequest) (domain.ListActivityResponse, error) {
	entityKind := strings.TrimSpace(req.EntityKind)
	if entityKind == "" {
		return domain.ListActivityResponse{}, domain.ErrInvalidEntity
	}
	entityID, err := snowflake.ParseString(strings.TrimSpace(req.EntityID))
	if err != nil || entityID == 0 {
		return domain.ListActivityResponse{}, domain.ErrInvalidID
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

	items, total, err := s.repo.ListByEntity(ctx, s.db, domain.ListFilter{
		EntityKind: entityKind,
		EntityID:   entityID,
		Limit:      limit,
		Offset:     offset,
	})
	if err != nil {
		return domain.ListActivityResponse{}, err
	}

	entries := make([]domain.ActivityEntry, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		entries = append(entries, *item)
	}

	return domain.ListActivityResponse{
		Entries: entries,
		Total:   total,
		Limit:   limit,
		Offset:  offset,
	}, nil
}

func normalizeFeedback(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

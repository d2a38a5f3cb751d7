package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/landworks/cadastre/internal/audit/domain"
	"github.com/landworks/cadastre/internal/clock"
	"go.uber.org/fx"
	"go.uber.org/zap"
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
		log:   p.Log.Named("audit.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
	}
}

func (s *Service) RecordChanges(ctx context.Context, req domain.RecordChangesRequest) error {
	entityKind := strings.TrimSpace(req.EntityKind)
	if entityKind == "" || req.EntityID == 0 {
		return domain.ErrInvalidEntity
	}
	action := strings.TrimSpace(req.Action)
	if action == "" {
		return domain.ErrInvalidAction
	}
	if len(req.Changes) == 0 {
		return nil
	}

	// Every record of one edit shares the same timestamp so readers
	// can group them back into a single logical change.
	now := s.clock.Now()
	records := make([]*domain.AuditRecord, 0, len(req.Changes))
	for _, change := range req.Changes {
		field := strings.TrimSpace(change.Field)
		if field == "" {
			continue
		}
		records = append(records, &domain.AuditRecord{
			ID:         s.genID.Generate(),
			EntityKind: entityKind,
			EntityID:   req.EntityID,
			Action:     action,
			FieldName:  field,
			OldValue:   change.Old,
			NewValue:   change.New,
			ActorID:    req.ActorID,
			CreatedAt:  now,
		})
	}
	if len(records) == 0 {
		return nil
	}

	if err := s.repo.InsertBatch(ctx, s.db, records); err != nil {
		s.log.Warn("failed to write audit records",
			zap.String("entity_kind", entityKind),
			zap.String("action", action),
			zap.Error(err),
		)
		return err
	}
	return nil
}

func (s *Service) ListByEntity(ctx context.Context, req domain.ListAuditRequest) (domain.ListAuditResponse, error) {
	entityKind := strings.TrimSpace(req.EntityKind)
	if entityKind == "" {
		return domain.ListAuditResponse{}, domain.ErrInvalidEntity
	}
	entityID, err := snowflake.ParseString(strings.TrimSpace(req.EntityID))
	if err != nil || entityID == 0 {
		return domain.ListAuditResponse{}, domain.ErrInvalidID
	}

	var actorID snowflake.ID
	if raw := strings.TrimSpace(req.ActorID); raw != "" {
		actorID, err = snowflake.ParseString(raw)
		if err != nil || actorID == 0 {
			return domain.ListAuditResponse{}, domain.ErrInvalidID
		}
	}
	if req.StartAt != nil && req.EndAt != nil && req.StartAt.After(*req.EndAt) {
		return domain.ListAuditResponse{}, domain.ErrInvalidTimeRange
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
		ActorID:    actorID,
		Action:     strings.TrimSpace(req.Action),
		StartAt:    req.StartAt,
		EndAt:      req.EndAt,
		Limit:      limit,
		Offset:     offset,
	})
	if err != nil {
		return domain.ListAuditResponse{}, err
	}

	records := make([]domain.AuditRecord, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		records = append(records, *item)
	}

	return domain.ListAuditResponse{
		Records: records,
		Total:   total,
		Limit:   limit,
		Offset:  offset,
	}, nil
}

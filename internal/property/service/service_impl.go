package service

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	activitydomain "github.com/landworks/cadastre/internal/activity/domain"
	"github.com/landworks/cadastre/internal/actorcontext"
	auditdomain "github.com/landworks/cadastre/internal/audit/domain"
	"github.com/landworks/cadastre/internal/clock"
	customerdomain "github.com/landworks/cadastre/internal/customer/domain"
	"github.com/landworks/cadastre/internal/property/domain"
	workflowdomain "github.com/landworks/cadastre/internal/workflow/domain"
	"github.com/landworks/cadastre/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var editableStatuses = []workflowdomain.Status{
	workflowdomain.StatusDraft,
	workflowdomain.StatusRejected,
}

type Params struct {
	fx.In

	DB           *gorm.DB
	Log          *zap.Logger
	GenID        *snowflake.Node
	Clock        clock.Clock
	Repo         domain.Repository
	CustomerRepo customerdomain.Repository
	AuditSvc     auditdomain.Service
	ActivitySvc  activitydomain.Service
}

type Service struct {
	db           *gorm.DB
	log          *zap.Logger
	genID        *snowflake.Node
	clock        clock.Clock
	repo         domain.Repository
	customerRepo customerdomain.Repository
	auditSvc     auditdomain.Service
	activitySvc  activitydomain.Service
}

func New(p Params) domain.Service {
	return &Service{
		db:           p.DB,
		log:          p.Log.Named("property.service"),
		genID:        p.GenID,
		clock:        p.Clock,
		repo:         p.Repo,
		customerRepo: p.CustomerRepo,
		auditSvc:     p.AuditSvc,
		activitySvc:  p.ActivitySvc,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreatePropertyRequest) (domain.Property, error) {
	actorID, ok := actorcontext.ActorIDFromContext(ctx)
	if !ok {
		return domain.Property{}, domain.ErrInvalidActor
	}

	parcelNumber := strings.ToUpper(strings.TrimSpace(req.ParcelNumber))
	if parcelNumber == "" {
		return domain.Property{}, domain.ErrInvalidParcelNumber
	}

	address := strings.TrimSpace(req.Address)
	if address == "" {
		return domain.Property{}, domain.ErrInvalidAddress
	}

	if req.AreaSqm <= 0 {
		return domain.Property{}, domain.ErrInvalidArea
	}
	if req.DeclaredValue < 0 {
		return domain.Property{}, domain.ErrInvalidValue
	}

	ownerID, err := snowflake.ParseString(strings.TrimSpace(req.OwnerID))
	if err != nil || ownerID == 0 {
		return domain.Property{}, domain.ErrOwnerNotFound
	}
	owner, err := s.customerRepo.FindByID(ctx, s.db, ownerID)
	if err != nil {
		return domain.Property{}, err
	}
	if owner == nil {
		return domain.Property{}, domain.ErrOwnerNotFound
	}

	existing, err := s.repo.FindByParcelNumber(ctx, s.db, parcelNumber)
	if err != nil {
		return domain.Property{}, err
	}
	if existing != nil {
		return domain.Property{}, domain.ErrParcelNumberTaken
	}

	now := s.clock.Now()
	property := domain.Property{
		ID:            s.genID.Generate(),
		ParcelNumber:  parcelNumber,
		Address:       address,
		AreaSqm:       req.AreaSqm,
		LandUse:       strings.TrimSpace(req.LandUse),
		OwnerID:       ownerID,
		DeclaredValue: req.DeclaredValue,
		Status:        workflowdomain.StatusDraft,
		CreatedBy:     actorID,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.repo.Insert(ctx, s.db, &property); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return domain.Property{}, domain.ErrParcelNumberTaken
		}
		return domain.Property{}, err
	}

	s.recordChanges(ctx, property.ID, "CREATED", actorID, creationChanges(property))
	s.recordActivity(ctx, property.ID, "CREATED", actorID)

	return property, nil
}

func (s *Service) GetByID(ctx context.Context, req domain.GetPropertyRequest) (domain.Property, error) {
	id, err := s.parseID(req.ID)
	if err != nil {
		return domain.Property{}, err
	}

	item, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.Property{}, err
	}
	if item == nil {
		return domain.Property{}, domain.ErrNotFound
	}

	return *item, nil
}

func (s *Service) List(ctx context.Context, req domain.ListPropertyRequest) (domain.ListPropertyResponse, error) {
	filter := domain.ListPropertyFilter{LandUse: strings.TrimSpace(req.LandUse)}
	if raw := strings.TrimSpace(req.Status); raw != "" {
		status := workflowdomain.Status(strings.ToUpper(raw))
		switch status {
		case workflowdomain.StatusDraft, workflowdomain.StatusSubmitted,
			workflowdomain.StatusApproved, workflowdomain.StatusRejected:
			filter.Status = status
		default:
			return domain.ListPropertyResponse{}, domain.ErrInvalidStatus
		}
	}
	if raw := strings.TrimSpace(req.OwnerID); raw != "" {
		ownerID, err := snowflake.ParseString(raw)
		if err != nil || ownerID == 0 {
			return domain.ListPropertyResponse{}, domain.ErrInvalidID
		}
		filter.OwnerID = ownerID
	}

	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = 50
	}

	items, err := s.repo.List(ctx, s.db, filter, pagination.Pagination{
		PageToken: req.PageToken,
		PageSize:  int(pageSize),
	})
	if err != nil {
		return domain.ListPropertyResponse{}, err
	}

	pageInfo := pagination.BuildCursorPageInfo(items, pageSize, func(property *domain.Property) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID:        property.ID.String(),
			CreatedAt: property.CreatedAt.Format(time.RFC3339Nano),
		})
		if err != nil {
			return ""
		}
		return token
	})
	if pageInfo != nil && pageInfo.HasMore && len(items) > int(pageSize) {
		items = items[:pageSize]
	}

	properties := make([]domain.Property, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		properties = append(properties, *item)
	}

	resp := domain.ListPropertyResponse{Properties: properties}
	if pageInfo != nil {
		resp.PageInfo = *pageInfo
	}

	return resp, nil
}

func (s *Service) Update(ctx context.Context, req domain.UpdatePropertyRequest) (domain.Property, error) {
	actorID, ok := actorcontext.ActorIDFromContext(ctx)
	if !ok {
		return domain.Property{}, domain.ErrInvalidActor
	}

	id, err := s.parseID(req.ID)
	if err != nil {
		return domain.Property{}, err
	}

	item, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.Property{}, err
	}
	if item == nil {
		return domain.Property{}, domain.ErrNotFound
	}
	if item.Status != workflowdomain.StatusDraft && item.Status != workflowdomain.StatusRejected {
		return domain.Property{}, domain.ErrNotEditable
	}

	changes := make([]auditdomain.FieldChange, 0, 4)

	if req.Address != nil {
		address := strings.TrimSpace(*req.Address)
		if address == "" {
			return domain.Property{}, domain.ErrInvalidAddress
		}
		if address != item.Address {
			changes = append(changes, fieldChange("address", item.Address, address))
			item.Address = address
		}
	}
	if req.AreaSqm != nil {
		if *req.AreaSqm <= 0 {
			return domain.Property{}, domain.ErrInvalidArea
		}
		if *req.AreaSqm != item.AreaSqm {
			changes = append(changes, fieldChange("area_sqm", formatFloat(item.AreaSqm), formatFloat(*req.AreaSqm)))
			item.AreaSqm = *req.AreaSqm
		}
	}
	if req.LandUse != nil {
		if landUse := strings.TrimSpace(*req.LandUse); landUse != item.LandUse {
			changes = append(changes, fieldChange("land_use", item.LandUse, landUse))
			item.LandUse = landUse
		}
	}
	if req.DeclaredValue != nil {
		if *req.DeclaredValue < 0 {
			return domain.Property{}, domain.ErrInvalidValue
		}
		if *req.DeclaredValue != item.DeclaredValue {
			changes = append(changes, fieldChange("declared_value",
				strconv.FormatInt(item.DeclaredValue, 10),
				strconv.FormatInt(*req.DeclaredValue, 10)))
			item.DeclaredValue = *req.DeclaredValue
		}
	}

	if len(changes) == 0 {
		return *item, nil
	}

	item.UpdatedAt = s.clock.Now()
	updated, err := s.repo.UpdateFields(ctx, s.db, item, editableStatuses)
	if err != nil {
		return domain.Property{}, err
	}
	if !updated {
		// The record moved out of an editable status between the read
		// and the write.
		return domain.Property{}, domain.ErrConflict
	}

	s.recordChanges(ctx, item.ID, "UPDATED", actorID, changes)
	s.recordActivity(ctx, item.ID, "UPDATED", actorID)

	return *item, nil
}

func (s *Service) recordChanges(ctx context.Context, id snowflake.ID, action string, actorID snowflake.ID, changes []auditdomain.FieldChange) {
	err := s.auditSvc.RecordChanges(ctx, auditdomain.RecordChangesRequest{
		EntityKind: string(workflowdomain.EntityProperty),
		EntityID:   id,
		Action:     action,
		ActorID:    actorID,
		Changes:    changes,
	})
	if err != nil {
		s.log.Warn("failed to record audit changes",
			zap.String("property_id", id.String()),
			zap.String("action", action),
			zap.Error(err),
		)
	}
}

func (s *Service) recordActivity(ctx context.Context, id snowflake.ID, action string, actorID snowflake.ID) {
	err := s.activitySvc.Record(ctx, activitydomain.RecordActivityRequest{
		EntityKind: string(workflowdomain.EntityProperty),
		EntityID:   id,
		Action:     action,
		ActorID:    actorID,
	})
	if err != nil {
		s.log.Warn("failed to record activity",
			zap.String("property_id", id.String()),
			zap.String("action", action),
			zap.Error(err),
		)
	}
}

func (s *Service) parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}

func creationChanges(property domain.Property) []auditdomain.FieldChange {
	changes := []auditdomain.FieldChange{
		{Field: "parcel_number", New: stringPtr(property.ParcelNumber)},
		{Field: "address", New: stringPtr(property.Address)},
		{Field: "area_sqm", New: stringPtr(formatFloat(property.AreaSqm))},
		{Field: "owner_id", New: stringPtr(property.OwnerID.String())},
		{Field: "status", New: stringPtr(string(property.Status))},
	}
	if property.LandUse != "" {
		changes = append(changes, auditdomain.FieldChange{Field: "land_use", New: stringPtr(property.LandUse)})
	}
	if property.DeclaredValue != 0 {
		changes = append(changes, auditdomain.FieldChange{
			Field: "declared_value",
			New:   stringPtr(strconv.FormatInt(property.DeclaredValue, 10)),
		})
	}
	return changes
}

func fieldChange(field, old, next string) auditdomain.FieldChange {
	change := auditdomain.FieldChange{Field: field, New: stringPtr(next)}
	if old != "" {
		change.Old = stringPtr(old)
	}
	return change
}

func formatFloat(value float64) string {
	return strconv.FormatFloat(value, 'f', -1, 64)
}

func stringPtr(value string) *string {
	return &value
}

package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	activitydomain "github.com/landworks/cadastre/internal/activity/domain"
	"github.com/landworks/cadastre/internal/actorcontext"
	auditdomain "github.com/landworks/cadastre/internal/audit/domain"
	"github.com/landworks/cadastre/internal/clock"
	"github.com/landworks/cadastre/internal/customer/domain"
	workflowdomain "github.com/landworks/cadastre/internal/workflow/domain"
	"github.com/landworks/cadastre/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// editableStatuses lists the statuses in which field edits may land.
var editableStatuses = []workflowdomain.Status{
	workflowdomain.StatusDraft,
	workflowdomain.StatusRejected,
}

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	GenID       *snowflake.Node
	Clock       clock.Clock
	Repo        domain.Repository
	AuditSvc    auditdomain.Service
	ActivitySvc activitydomain.Service
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	genID       *snowflake.Node
	clock       clock.Clock
	repo        domain.Repository
	auditSvc    auditdomain.Service
	activitySvc activitydomain.Service
}

func New(p Params) domain.Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("customer.service"),
		genID:       p.GenID,
		clock:       p.Clock,
		repo:        p.Repo,
		auditSvc:    p.AuditSvc,
		activitySvc: p.ActivitySvc,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateCustomerRequest) (domain.Customer, error) {
	actorID, ok := actorcontext.ActorIDFromContext(ctx)
	if !ok {
		return domain.Customer{}, domain.ErrInvalidActor
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.Customer{}, domain.ErrInvalidName
	}

	email := strings.TrimSpace(req.Email)
	if email == "" || !strings.Contains(email, "@") {
		return domain.Customer{}, domain.ErrInvalidEmail
	}

	customerType, ok := domain.ParseCustomerType(req.CustomerType)
	if !ok {
		return domain.Customer{}, domain.ErrInvalidType
	}

	detail := buildDetail(customerType, req.Detail)
	if err := detail.Validate(); err != nil {
		return domain.Customer{}, err
	}

	now := s.clock.Now()
	customer := domain.Customer{
		ID:           s.genID.Generate(),
		Name:         name,
		Email:        email,
		Phone:        strings.TrimSpace(req.Phone),
		Address:      strings.TrimSpace(req.Address),
		CustomerType: customerType,
		Status:       workflowdomain.StatusDraft,
		CreatedBy:    actorID,
		CreatedAt:    now,
		UpdatedAt:    now,
		Detail:       detail,
	}

	if err := s.repo.Insert(ctx, s.db, &customer); err != nil {
		return domain.Customer{}, err
	}

	s.recordChanges(ctx, customer.ID, "CREATED", actorID, creationChanges(customer))
	s.recordActivity(ctx, customer.ID, "CREATED", actorID)

	return customer, nil
}

func (s *Service) GetByID(ctx context.Context, req domain.GetCustomerRequest) (domain.Customer, error) {
	id, err := s.parseID(req.ID)
	if err != nil {
		return domain.Customer{}, err
	}

	item, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.Customer{}, err
	}
	if item == nil {
		return domain.Customer{}, domain.ErrNotFound
	}

	return *item, nil
}

func (s *Service) List(ctx context.Context, req domain.ListCustomerRequest) (domain.ListCustomerResponse, error) {
	filter := domain.ListCustomerFilter{Name: strings.TrimSpace(req.Name)}
	if raw := strings.TrimSpace(req.Status); raw != "" {
		status := workflowdomain.Status(strings.ToUpper(raw))
		switch status {
		case workflowdomain.StatusDraft, workflowdomain.StatusSubmitted,
			workflowdomain.StatusApproved, workflowdomain.StatusRejected:
			filter.Status = status
		default:
			return domain.ListCustomerResponse{}, domain.ErrInvalidStatus
		}
	}
	if raw := strings.TrimSpace(req.Type); raw != "" {
		customerType, ok := domain.ParseCustomerType(raw)
		if !ok {
			return domain.ListCustomerResponse{}, domain.ErrInvalidType
		}
		filter.Type = customerType
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
		return domain.ListCustomerResponse{}, err
	}

	pageInfo := pagination.BuildCursorPageInfo(items, pageSize, func(customer *domain.Customer) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID:        customer.ID.String(),
			CreatedAt: customer.CreatedAt.Format(time.RFC3339Nano),
		})
		if err != nil {
			return ""
		}
		return token
	})
	if pageInfo != nil && pageInfo.HasMore && len(items) > int(pageSize) {
		items = items[:pageSize]
	}

	customers := make([]domain.Customer, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		customers = append(customers, *item)
	}

	resp := domain.ListCustomerResponse{Customers: customers}
	if pageInfo != nil {
		resp.PageInfo = *pageInfo
	}

	return resp, nil
}

func (s *Service) Update(ctx context.Context, req domain.UpdateCustomerRequest) (domain.Customer, error) {
	actorID, ok := actorcontext.ActorIDFromContext(ctx)
	if !ok {
		return domain.Customer{}, domain.ErrInvalidActor
	}

	id, err := s.parseID(req.ID)
	if err != nil {
		return domain.Customer{}, err
	}

	item, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.Customer{}, err
	}
	if item == nil {
		return domain.Customer{}, domain.ErrNotFound
	}
	if item.Status != workflowdomain.StatusDraft && item.Status != workflowdomain.StatusRejected {
		return domain.Customer{}, domain.ErrNotEditable
	}

	changes := make([]auditdomain.FieldChange, 0, 8)

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return domain.Customer{}, domain.ErrInvalidName
		}
		if name != item.Name {
			changes = append(changes, fieldChange("name", item.Name, name))
			item.Name = name
		}
	}
	if req.Email != nil {
		email := strings.TrimSpace(*req.Email)
		if email == "" || !strings.Contains(email, "@") {
			return domain.Customer{}, domain.ErrInvalidEmail
		}
		if email != item.Email {
			changes = append(changes, fieldChange("email", item.Email, email))
			item.Email = email
		}
	}
	if req.Phone != nil {
		if phone := strings.TrimSpace(*req.Phone); phone != item.Phone {
			changes = append(changes, fieldChange("phone", item.Phone, phone))
			item.Phone = phone
		}
	}
	if req.Address != nil {
		if address := strings.TrimSpace(*req.Address); address != item.Address {
			changes = append(changes, fieldChange("address", item.Address, address))
			item.Address = address
		}
	}
	if req.Detail != nil {
		next := buildDetail(item.CustomerType, *req.Detail)
		if err := next.Validate(); err != nil {
			return domain.Customer{}, err
		}
		changes = append(changes, detailChanges(item.Detail, next)...)
		item.Detail = next
	}

	if len(changes) == 0 {
		return *item, nil
	}

	item.UpdatedAt = s.clock.Now()
	updated, err := s.repo.UpdateFields(ctx, s.db, item, editableStatuses)
	if err != nil {
		return domain.Customer{}, err
	}
	if !updated {
		// The record moved out of an editable status between the read
		// and the write.
		return domain.Customer{}, domain.ErrConflict
	}

	s.recordChanges(ctx, item.ID, "UPDATED", actorID, changes)
	s.recordActivity(ctx, item.ID, "UPDATED", actorID)

	return *item, nil
}

func (s *Service) recordChanges(ctx context.Context, id snowflake.ID, action string, actorID snowflake.ID, changes []auditdomain.FieldChange) {
	err := s.auditSvc.RecordChanges(ctx, auditdomain.RecordChangesRequest{
		EntityKind: string(workflowdomain.EntityCustomer),
		EntityID:   id,
		Action:     action,
		ActorID:    actorID,
		Changes:    changes,
	})
	if err != nil {
		s.log.Warn("failed to record audit changes",
			zap.String("customer_id", id.String()),
			zap.String("action", action),
			zap.Error(err),
		)
	}
}

func (s *Service) recordActivity(ctx context.Context, id snowflake.ID, action string, actorID snowflake.ID) {
	err := s.activitySvc.Record(ctx, activitydomain.RecordActivityRequest{
		EntityKind: string(workflowdomain.EntityCustomer),
		EntityID:   id,
		Action:     action,
		ActorID:    actorID,
	})
	if err != nil {
		s.log.Warn("failed to record activity",
			zap.String("customer_id", id.String()),
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

// buildDetail picks the variant fields matching the customer type and
// drops the rest of the input.
func buildDetail(customerType domain.CustomerType, input domain.DetailInput) domain.Detail {
	switch customerType {
	case domain.TypeBusiness:
		return domain.BusinessDetail{
			RegistrationNumber: strings.TrimSpace(input.RegistrationNumber),
			ContactPerson:      strings.TrimSpace(input.ContactPerson),
		}
	case domain.TypeGovernment:
		return domain.GovernmentDetail{
			AgencyCode: strings.TrimSpace(input.AgencyCode),
			Department: strings.TrimSpace(input.Department),
		}
	default:
		return domain.PersonDetail{
			NationalID:  strings.TrimSpace(input.NationalID),
			DateOfBirth: strings.TrimSpace(input.DateOfBirth),
		}
	}
}

func creationChanges(customer domain.Customer) []auditdomain.FieldChange {
	changes := []auditdomain.FieldChange{
		{Field: "name", New: stringPtr(customer.Name)},
		{Field: "email", New: stringPtr(customer.Email)},
		{Field: "customer_type", New: stringPtr(string(customer.CustomerType))},
		{Field: "status", New: stringPtr(string(customer.Status))},
	}
	if customer.Phone != "" {
		changes = append(changes, auditdomain.FieldChange{Field: "phone", New: stringPtr(customer.Phone)})
	}
	if customer.Address != "" {
		changes = append(changes, auditdomain.FieldChange{Field: "address", New: stringPtr(customer.Address)})
	}
	for _, change := range detailFields(customer.Detail) {
		if change.value == "" {
			continue
		}
		changes = append(changes, auditdomain.FieldChange{Field: change.name, New: stringPtr(change.value)})
	}
	return changes
}

type detailField struct {
	name  string
	value string
}

func detailFields(detail domain.Detail) []detailField {
	switch d := detail.(type) {
	case domain.PersonDetail:
		return []detailField{
			{"national_id", d.NationalID},
			{"date_of_birth", d.DateOfBirth},
		}
	case domain.BusinessDetail:
		return []detailField{
			{"registration_number", d.RegistrationNumber},
			{"contact_person", d.ContactPerson},
		}
	case domain.GovernmentDetail:
		return []detailField{
			{"agency_code", d.AgencyCode},
			{"department", d.Department},
		}
	default:
		return nil
	}
}

func detailChanges(old, next domain.Detail) []auditdomain.FieldChange {
	before := make(map[string]string)
	for _, field := range detailFields(old) {
		before[field.name] = field.value
	}

	var changes []auditdomain.FieldChange
	for _, field := range detailFields(next) {
		if before[field.name] == field.value {
			continue
		}
		changes = append(changes, fieldChange(field.name, before[field.name], field.value))
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

func stringPtr(value string) *string {
	return &value
}

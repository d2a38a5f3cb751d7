package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/landworks/cadastre/internal/clock"
	"github.com/landworks/cadastre/internal/user/domain"
	"github.com/landworks/cadastre/pkg/db/pagination"
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

func New(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("user.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateUserRequest) (domain.User, error) {
	username := strings.ToLower(strings.TrimSpace(req.Username))
	if username == "" {
		return domain.User{}, domain.ErrInvalidUsername
	}

	fullName := strings.TrimSpace(req.FullName)
	if fullName == "" {
		return domain.User{}, domain.ErrInvalidName
	}

	email := strings.TrimSpace(req.Email)
	if email == "" || !strings.Contains(email, "@") {
		return domain.User{}, domain.ErrInvalidEmail
	}

	role, ok := domain.ParseRole(req.Role)
	if !ok {
		return domain.User{}, domain.ErrInvalidRole
	}

	existing, err := s.repo.FindByUsername(ctx, s.db, username)
	if err != nil {
		return domain.User{}, err
	}
	if existing != nil {
		return domain.User{}, domain.ErrUsernameTaken
	}

	now := s.clock.Now()
	user := domain.User{
		ID:        s.genID.Generate(),
		Username:  username,
		FullName:  fullName,
		Email:     email,
		Role:      role,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.repo.Insert(ctx, s.db, &user); err != nil {
		return domain.User{}, err
	}

	return user, nil
}

func (s *Service) List(ctx context.Context, req domain.ListUserRequest) (domain.ListUserResponse, error) {
	filter := domain.ListUserFilter{Active: req.Active}
	if raw := strings.TrimSpace(req.Role); raw != "" {
		role, ok := domain.ParseRole(raw)
		if !ok {
			return domain.ListUserResponse{}, domain.ErrInvalidRole
		}
		filter.Role = role
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
		return domain.ListUserResponse{}, err
	}

	pageInfo := pagination.BuildCursorPageInfo(items, pageSize, func(user *domain.User) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID:        user.ID.String(),
			CreatedAt: user.CreatedAt.Format(time.RFC3339Nano),
		})
		if err != nil {
			return ""
		}
		return token
	})
	if pageInfo != nil && pageInfo.HasMore && len(items) > int(pageSize) {
		items = items[:pageSize]
	}

	users := make([]domain.User, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		users = append(users, *item)
	}

	resp := domain.ListUserResponse{Users: users}
	if pageInfo != nil {
		resp.PageInfo = *pageInfo
	}

	return resp, nil
}

func (s *Service) GetByID(ctx context.Context, req domain.GetUserRequest) (domain.User, error) {
	id, err := s.parseID(req.ID)
	if err != nil {
		return domain.User{}, err
	}

	item, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.User{}, err
	}
	if item == nil {
		return domain.User{}, domain.ErrNotFound
	}

	return *item, nil
}

func (s *Service) Update(ctx context.Context, req domain.UpdateUserRequest) (domain.User, error) {
	id, err := s.parseID(req.ID)
	if err != nil {
		return domain.User{}, err
	}

	item, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.User{}, err
	}
	if item == nil {
		return domain.User{}, domain.ErrNotFound
	}

	if req.Role != nil {
		role, ok := domain.ParseRole(*req.Role)
		if !ok {
			return domain.User{}, domain.ErrInvalidRole
		}
		item.Role = role
	}
	if req.Active != nil {
		item.Active = *req.Active
	}
	item.UpdatedAt = s.clock.Now()

	if err := s.repo.Update(ctx, s.db, item); err != nil {
		return domain.User{}, err
	}

	return *item, nil
}

// ActiveReviewers returns every active user allowed to approve or
// reject submissions. Notification fan-out resolves its audience here.
func (s *Service) ActiveReviewers(ctx context.Context) ([]domain.User, error) {
	items, err := s.repo.ListActiveByRoles(ctx, s.db, []domain.Role{
		domain.RoleApprover,
		domain.RoleAdministrator,
	})
	if err != nil {
		return nil, err
	}

	users := make([]domain.User, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		users = append(users, *item)
	}
	return users, nil
}

func (s *Service) parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}

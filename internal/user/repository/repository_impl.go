package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/landworks/cadastre/internal/user/domain"
	"github.com/landworks/cadastre/pkg/db/option"
	"github.com/landworks/cadastre/pkg/db/pagination"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, user *domain.User) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO users (id, username, full_name, email, role, active, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		user.ID,
		user.Username,
		user.FullName,
		user.Email,
		user.Role,
		user.Active,
		user.CreatedAt,
		user.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.User, error) {
	var user domain.User
	err := db.WithContext(ctx).Raw(
		`SELECT id, username, full_name, email, role, active, created_at, updated_at
		 FROM users WHERE id = ?`,
		id,
	).Scan(&user).Error
	if err != nil {
		return nil, err
	}
	if user.ID == 0 {
		return nil, nil
	}
	return &user, nil
}

func (r *repo) FindByUsername(ctx context.Context, db *gorm.DB, username string) (*domain.User, error) {
	var user domain.User
	err := db.WithContext(ctx).Raw(
		`SELECT id, username, full_name, email, role, active, created_at, updated_at
		 FROM users WHERE username = ?`,
		username,
	).Scan(&user).Error
	if err != nil {
		return nil, err
	}
	if user.ID == 0 {
		return nil, nil
	}
	return &user, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListUserFilter, page pagination.Pagination) ([]*domain.User, error) {
	var users []*domain.User
	stmt := db.WithContext(ctx).Model(&domain.User{})
	if filter.Role != "" {
		stmt = stmt.Where("role = ?", filter.Role)
	}
	if filter.Active != nil {
		stmt = stmt.Where("active = ?", *filter.Active)
	}
	stmt = option.ApplyPagination(page).Apply(stmt)
	err := stmt.
		Order("created_at desc, id desc").
		Find(&users).Error
	if err != nil {
		return nil, err
	}
	return users, nil
}

func (r *repo) ListActiveByRoles(ctx context.Context, db *gorm.DB, roles []domain.Role) ([]*domain.User, error) {
	var users []*domain.User
	err := db.WithContext(ctx).
		Model(&domain.User{}).
		Where("active = ?", true).
		Where("role IN ?", roles).
		Order("id asc").
		Find(&users).Error
	if err != nil {
		return nil, err
	}
	return users, nil
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, user *domain.User) error {
	return db.WithContext(ctx).Exec(
		`UPDATE users SET role = ?, active = ?, updated_at = ? WHERE id = ?`,
		user.Role,
		user.Active,
		user.UpdatedAt,
		user.ID,
	).Error
}

package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/landworks/cadastre/pkg/db/pagination"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, user *User) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*User, error)
	FindByUsername(ctx context.Context, db *gorm.DB, username string) (*User, error)
	List(ctx context.Context, db *gorm.DB, filter ListUserFilter, page pagination.Pagination) ([]*User, error)
	ListActiveByRoles(ctx context.Context, db *gorm.DB, roles []Role) ([]*User, error)
	Update(ctx context.Context, db *gorm.DB, user *User) error
}

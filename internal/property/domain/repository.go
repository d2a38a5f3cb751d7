package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	workflowdomain "github.com/landworks/cadastre/internal/workflow/domain"
	"github.com/landworks/cadastre/pkg/db/pagination"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, property *Property) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Property, error)
	FindByParcelNumber(ctx context.Context, db *gorm.DB, parcelNumber string) (*Property, error)
	List(ctx context.Context, db *gorm.DB, filter ListPropertyFilter, page pagination.Pagination) ([]*Property, error)

	// UpdateFields rewrites the editable columns, conditioned on the
	// record still being editable. Reports whether a row was touched.
	UpdateFields(ctx context.Context, db *gorm.DB, property *Property, expected []workflowdomain.Status) (bool, error)
}

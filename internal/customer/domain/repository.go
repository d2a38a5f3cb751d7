package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	workflowdomain "github.com/landworks/cadastre/internal/workflow/domain"
	"github.com/landworks/cadastre/pkg/db/pagination"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, customer *Customer) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Customer, error)
	List(ctx context.Context, db *gorm.DB, filter ListCustomerFilter, page pagination.Pagination) ([]*Customer, error)

	// UpdateFields rewrites the editable columns and the detail row,
	// conditioned on the record still being editable. Reports whether
	// a row was touched.
	UpdateFields(ctx context.Context, db *gorm.DB, customer *Customer, expected []workflowdomain.Status) (bool, error)
}

package option

import (
	"strconv"
	"strings"
	"time"

	"github.com/landworks/cadastre/pkg/db/pagination"
	"gorm.io/gorm"
)

// Option mutates a gorm statement before execution.
type Option interface {
	Apply(stmt *gorm.DB) *gorm.DB
}

type paginationOption struct {
	page pagination.Pagination
}

// ApplyPagination applies cursor pagination. The statement fetches one
// row past the page size so callers can detect a next page.
func ApplyPagination(page pagination.Pagination) Option {
	return paginationOption{page: page}
}

func (o paginationOption) Apply(stmt *gorm.DB) *gorm.DB {
	size := o.page.PageSize
	if size <= 0 {
		size = 10
	}

	token := strings.TrimSpace(o.page.PageToken)
	if token != "" {
		cursor, err := pagination.DecodeCursor(token)
		if err == nil && cursor != nil && cursor.CreatedAt != "" && cursor.ID != "" {
			// Bind typed values so the driver compares timestamps and
			// ids, not their string renderings.
			createdAt, timeErr := time.Parse(time.RFC3339Nano, cursor.CreatedAt)
			id, idErr := strconv.ParseInt(cursor.ID, 10, 64)
			if timeErr == nil && idErr == nil {
				stmt = stmt.Where(
					"(created_at < ?) OR (created_at = ? AND id < ?)",
					createdAt, createdAt, id,
				)
			}
		}
	}

	return stmt.Limit(size + 1)
}

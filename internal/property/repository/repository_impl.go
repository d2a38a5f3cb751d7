package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/landworks/cadastre/internal/property/domain"
	workflowdomain "github.com/landworks/cadastre/internal/workflow/domain"
	"github.com/landworks/cadastre/pkg/db/option"
	"github.com/landworks/cadastre/pkg/db/pagination"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, property *domain.Property) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO properties (id, parcel_number, address, area_sqm, land_use, owner_id, declared_value, status, created_by, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		property.ID,
		property.ParcelNumber,
		property.Address,
		property.AreaSqm,
		property.LandUse,
		property.OwnerID,
		property.DeclaredValue,
		property.Status,
		property.CreatedBy,
		property.CreatedAt,
		property.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Property, error) {
	var property domain.Property
	err := db.WithContext(ctx).Raw(
		`SELECT id, parcel_number, address, area_sqm, land_use, owner_id, declared_value,
		        status, created_by, submitted_at, approved_by, rejection_feedback, created_at, updated_at
		 FROM properties WHERE id = ?`,
		id,
	).Scan(&property).Error
	if err != nil {
		return nil, err
	}
	if property.ID == 0 {
		return nil, nil
	}
	return &property, nil
}

func (r *repo) FindByParcelNumber(ctx context.Context, db *gorm.DB, parcelNumber string) (*domain.Property, error) {
	var property domain.Property
	err := db.WithContext(ctx).Raw(
		`SELECT id, parcel_number, address, area_sqm, land_use, owner_id, declared_value,
		        status, created_by, submitted_at, approved_by, rejection_feedback, created_at, updated_at
		 FROM properties WHERE parcel_number = ?`,
		parcelNumber,
	).Scan(&property).Error
	if err != nil {
		return nil, err
	}
	if property.ID == 0 {
		return nil, nil
	}
	return &property, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListPropertyFilter, page pagination.Pagination) ([]*domain.Property, error) {
	var properties []*domain.Property
	stmt := db.WithContext(ctx).Model(&domain.Property{})
	if filter.Status != "" {
		stmt = stmt.Where("status = ?", filter.Status)
	}
	if filter.OwnerID != 0 {
		stmt = stmt.Where("owner_id = ?", filter.OwnerID)
	}
	if filter.LandUse != "" {
		stmt = stmt.Where("land_use = ?", filter.LandUse)
	}
	stmt = option.ApplyPagination(page).Apply(stmt)
	err := stmt.
		Order("created_at desc, id desc").
		Find(&properties).Error
	if err != nil {
		return nil, err
	}
	return properties, nil
}

func (r *repo) UpdateFields(ctx context.Context, db *gorm.DB, property *domain.Property, expected []workflowdomain.Status) (bool, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE properties
		 SET address = ?, area_sqm = ?, land_use = ?, declared_value = ?, updated_at = ?
		 WHERE id = ? AND status IN ?`,
		property.Address,
		property.AreaSqm,
		property.LandUse,
		property.DeclaredValue,
		property.UpdatedAt,
		property.ID,
		expected,
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

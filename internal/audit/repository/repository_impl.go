package repository

import (
	"context"

	"github.com/landworks/cadastre/internal/audit/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) InsertBatch(ctx context.Context, db *gorm.DB, records []*domain.AuditRecord) error {
	if len(records) == 0 {
		return nil
	}
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, record := range records {
			if record == nil {
				continue
			}
			err := tx.Exec(
				`INSERT INTO audit_records (
					id, entity_kind, entity_id, action, field_name,
					old_value, new_value, actor_id, created_at
				) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				record.ID,
				record.EntityKind,
				record.EntityID,
				record.Action,
				record.FieldName,
				record.OldValue,
				record.NewValue,
				record.ActorID,
				record.CreatedAt,
			).Error
			if err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *repo) ListByEntity(ctx context.Context, db *gorm.DB, filter domain.ListFilter) ([]*domain.AuditRecord, int64, error) {
	stmt := db.WithContext(ctx).Model(&domain.AuditRecord{}).
		Where("entity_kind = ?", filter.EntityKind).
		Where("entity_id = ?", filter.EntityID)
	if filter.ActorID != 0 {
		stmt = stmt.Where("actor_id = ?", filter.ActorID)
	}
	if filter.Action != "" {
		stmt = stmt.Where("action = ?", filter.Action)
	}
	if filter.StartAt != nil {
		stmt = stmt.Where("created_at >= ?", filter.StartAt.UTC())
	}
	if filter.EndAt != nil {
		stmt = stmt.Where("created_at <= ?", filter.EndAt.UTC())
	}

	var total int64
	if err := stmt.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var records []*domain.AuditRecord
	err := stmt.
		Order("created_at desc, id desc").
		Limit(filter.Limit).
		Offset(filter.Offset).
		Find(&records).Error
	if err != nil {
		return nil, 0, err
	}
	return records, total, nil
}

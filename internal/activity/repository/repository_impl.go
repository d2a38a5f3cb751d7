package repository

import (
	"context"

	"github.com/landworks/cadastre/internal/activity/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, entry *domain.ActivityEntry) error {
	if entry == nil {
		return nil
	}
	return db.WithContext(ctx).Exec(
		`INSERT INTO activity_entries (id, entity_kind, entity_id, action, actor_id, feedback, metadata, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID,
		entry.EntityKind,
		entry.EntityID,
		entry.Action,
		entry.ActorID,
		entry.Feedback,
		entry.Metadata,
		entry.CreatedAt,
	).Error
}

func (r *repo) ListByEntity(ctx context.Context, db *gorm.DB, filter domain.ListFilter) ([]*domain.ActivityEntry, int64, error) {
	stmt := db.WithContext(ctx).Model(&domain.ActivityEntry{}).
		Where("entity_kind = ?", filter.EntityKind).
		Where("entity_id = ?", filter.EntityID)

	var total int64
	if err := stmt.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var entries []*domain.ActivityEntry
	err := stmt.
		Order("created_at desc, id desc").
		Limit(filter.Limit).
		Offset(filter.Offset).
		Find(&entries).Error
	if err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}

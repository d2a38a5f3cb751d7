package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/landworks/cadastre/internal/notification/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) InsertBatch(ctx context.Context, db *gorm.DB, notifications []*domain.Notification) error {
	if len(notifications) == 0 {
		return nil
	}
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, notification := range notifications {
			if notification == nil {
				continue
			}
			err := tx.Exec(
				`INSERT INTO notifications (id, user_id, entity_kind, entity_id, event_type, title, message, read, created_at)
				 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				notification.ID,
				notification.UserID,
				notification.EntityKind,
				notification.EntityID,
				notification.EventType,
				notification.Title,
				notification.Message,
				notification.Read,
				notification.CreatedAt,
			).Error
			if err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *repo) ListByUser(ctx context.Context, db *gorm.DB, filter domain.ListFilter) ([]*domain.Notification, int64, error) {
	stmt := db.WithContext(ctx).Model(&domain.Notification{}).
		Where("user_id = ?", filter.UserID)
	if filter.UnreadOnly {
		stmt = stmt.Where("read = ?", false)
	}

	var total int64
	if err := stmt.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var notifications []*domain.Notification
	err := stmt.
		Order("created_at desc, id desc").
		Limit(filter.Limit).
		Offset(filter.Offset).
		Find(&notifications).Error
	if err != nil {
		return nil, 0, err
	}
	return notifications, total, nil
}

func (r *repo) MarkRead(ctx context.Context, db *gorm.DB, id, userID snowflake.ID) (bool, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE notifications SET read = ? WHERE id = ? AND user_id = ?`,
		true, id, userID,
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

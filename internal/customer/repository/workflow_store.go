package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/landworks/cadastre/internal/customer/domain"
	workflowdomain "github.com/landworks/cadastre/internal/workflow/domain"
	"gorm.io/gorm"
)

// workflowStore adapts the customers table to the workflow engine.
type workflowStore struct{}

func ProvideWorkflowStore() workflowdomain.EntityStore {
	return &workflowStore{}
}

func (s *workflowStore) Kind() workflowdomain.EntityKind {
	return workflowdomain.EntityCustomer
}

func (s *workflowStore) FindState(ctx context.Context, db *gorm.DB, id snowflake.ID) (*workflowdomain.EntityState, error) {
	var state workflowdomain.EntityState
	err := db.WithContext(ctx).Raw(
		`SELECT id, status, created_by, submitted_at, approved_by, rejection_feedback
		 FROM customers WHERE id = ?`,
		id,
	).Scan(&state).Error
	if err != nil {
		return nil, err
	}
	if state.ID == 0 {
		return nil, nil
	}
	return &state, nil
}

func (s *workflowStore) UpdateStatus(ctx context.Context, db *gorm.DB, update workflowdomain.StatusUpdate) (bool, error) {
	columns := map[string]any{
		"status":             update.Next,
		"rejection_feedback": update.RejectionFeedback,
		"updated_at":         update.UpdatedAt,
	}
	if update.SubmittedAt != nil {
		columns["submitted_at"] = *update.SubmittedAt
	}
	if update.ApprovedBy != nil {
		columns["approved_by"] = *update.ApprovedBy
	}

	result := db.WithContext(ctx).
		Model(&domain.Customer{}).
		Where("id = ? AND status IN ?", update.ID, update.Expected).
		Updates(columns)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (s *workflowStore) Delete(ctx context.Context, db *gorm.DB, id snowflake.ID, expected []workflowdomain.Status) (bool, error) {
	deleted := false
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		stmt := tx.Where("id = ?", id)
		if len(expected) > 0 {
			stmt = stmt.Where("status IN ?", expected)
		}
		result := stmt.Delete(&domain.Customer{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return nil
		}
		deleted = true

		for _, table := range []string{
			"customer_person_details",
			"customer_business_details",
			"customer_government_details",
		} {
			if err := tx.Exec(`DELETE FROM `+table+` WHERE customer_id = ?`, id).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	return deleted, nil
}

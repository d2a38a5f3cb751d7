package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/landworks/cadastre/internal/assessment/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) InsertAssessment(ctx context.Context, db *gorm.DB, assessment *domain.TaxAssessment) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO tax_assessments (id, property_id, tax_year, base_amount, exemption_amount,
		  assessed_amount, paid_amount, outstanding_amount, status, due_date, assessment_date,
		  created_by, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		assessment.ID,
		assessment.PropertyID,
		assessment.TaxYear,
		assessment.BaseAmount,
		assessment.ExemptionAmount,
		assessment.AssessedAmount,
		assessment.PaidAmount,
		assessment.OutstandingAmount,
		assessment.Status,
		assessment.DueDate,
		assessment.AssessmentDate,
		assessment.CreatedBy,
		assessment.CreatedAt,
		assessment.UpdatedAt,
	).Error
}

func (r *repo) FindAssessmentByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.TaxAssessment, error) {
	var assessment domain.TaxAssessment
	err := db.WithContext(ctx).Raw(
		`SELECT id, property_id, tax_year, base_amount, exemption_amount, assessed_amount,
		        paid_amount, outstanding_amount, status, due_date, assessment_date,
		        created_by, created_at, updated_at
		 FROM tax_assessments WHERE id = ?`,
		id,
	).Scan(&assessment).Error
	if err != nil {
		return nil, err
	}
	if assessment.ID == 0 {
		return nil, nil
	}
	return &assessment, nil
}

func (r *repo) ListByProperty(ctx context.Context, db *gorm.DB, propertyID snowflake.ID) ([]*domain.TaxAssessment, error) {
	var assessments []*domain.TaxAssessment
	err := db.WithContext(ctx).
		Model(&domain.TaxAssessment{}).
		Where("property_id = ?", propertyID).
		Order("tax_year desc").
		Find(&assessments).Error
	if err != nil {
		return nil, err
	}
	return assessments, nil
}

func (r *repo) ApplyAmounts(ctx context.Context, db *gorm.DB, assessment *domain.TaxAssessment, observedPaid int64) (bool, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE tax_assessments
		 SET paid_amount = ?, outstanding_amount = ?, status = ?, updated_at = ?
		 WHERE id = ? AND paid_amount = ?`,
		assessment.PaidAmount,
		assessment.OutstandingAmount,
		assessment.Status,
		assessment.UpdatedAt,
		assessment.ID,
		observedPaid,
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repo) InsertPayment(ctx context.Context, db *gorm.DB, payment *domain.TaxPayment) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO tax_payments (id, assessment_id, amount, payment_date, method,
		  receipt_number, collected_by, notes, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		payment.ID,
		payment.AssessmentID,
		payment.Amount,
		payment.PaymentDate,
		payment.Method,
		payment.ReceiptNumber,
		payment.CollectedBy,
		payment.Notes,
		payment.CreatedAt,
	).Error
}

func (r *repo) ListPayments(ctx context.Context, db *gorm.DB, assessmentID snowflake.ID) ([]*domain.TaxPayment, error) {
	var payments []*domain.TaxPayment
	err := db.WithContext(ctx).
		Model(&domain.TaxPayment{}).
		Where("assessment_id = ?", assessmentID).
		Order("payment_date asc, id asc").
		Find(&payments).Error
	if err != nil {
		return nil, err
	}
	return payments, nil
}

package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	InsertAssessment(ctx context.Context, db *gorm.DB, assessment *TaxAssessment) error
	FindAssessmentByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*TaxAssessment, error)
	ListByProperty(ctx context.Context, db *gorm.DB, propertyID snowflake.ID) ([]*TaxAssessment, error)

	// ApplyAmounts performs the conditional ledger write, keyed on the
	// paid amount observed at read time. Reports whether a row was
	// touched.
	ApplyAmounts(ctx context.Context, db *gorm.DB, assessment *TaxAssessment, observedPaid int64) (bool, error)

	InsertPayment(ctx context.Context, db *gorm.DB, payment *TaxPayment) error
	ListPayments(ctx context.Context, db *gorm.DB, assessmentID snowflake.ID) ([]*TaxPayment, error)
}

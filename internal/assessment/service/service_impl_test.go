package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	activityrepository "github.com/landworks/cadastre/internal/activity/repository"
	activityservice "github.com/landworks/cadastre/internal/activity/service"
	"github.com/landworks/cadastre/internal/actorcontext"
	"github.com/landworks/cadastre/internal/assessment/domain"
	"github.com/landworks/cadastre/internal/assessment/repository"
	"github.com/landworks/cadastre/internal/clock"
	propertyrepository "github.com/landworks/cadastre/internal/property/repository"
	workflowdomain "github.com/landworks/cadastre/internal/workflow/domain"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

var baseTime = time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

func setupAssessmentService(t *testing.T, node *snowflake.Node, fake *clock.FakeClock) (domain.Service, *gorm.DB) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_loc=auto", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("db handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	_ = db.Exec("PRAGMA busy_timeout = 5000").Error
	prepareAssessmentSchema(t, db)

	activitySvc := activityservice.NewService(activityservice.Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Clock: fake,
		Repo:  activityrepository.Provide(),
	})

	svc := New(Params{
		DB:           db,
		Log:          zap.NewNop(),
		GenID:        node,
		Clock:        fake,
		Repo:         repository.Provide(),
		PropertyRepo: propertyrepository.Provide(),
		ActivitySvc:  activitySvc,
	})

	return svc, db
}

func prepareAssessmentSchema(t *testing.T, db *gorm.DB) {
	t.Helper()
	statements := []string{
		`CREATE TABLE properties (
			id BIGINT PRIMARY KEY,
			parcel_number TEXT NOT NULL,
			address TEXT NOT NULL,
			area_sqm DOUBLE PRECISION NOT NULL,
			land_use TEXT,
			owner_id BIGINT NOT NULL,
			declared_value BIGINT NOT NULL DEFAULT 0,
			status TEXT NOT NULL,
			created_by BIGINT NOT NULL,
			submitted_at DATETIME,
			approved_by BIGINT,
			rejection_feedback TEXT,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)`,
		`CREATE TABLE tax_assessments (
			id BIGINT PRIMARY KEY,
			property_id BIGINT NOT NULL,
			tax_year INTEGER NOT NULL,
			base_amount BIGINT NOT NULL,
			exemption_amount BIGINT NOT NULL,
			assessed_amount BIGINT NOT NULL,
			paid_amount BIGINT NOT NULL,
			outstanding_amount BIGINT NOT NULL,
			status TEXT NOT NULL,
			due_date DATETIME NOT NULL,
			assessment_date DATETIME NOT NULL,
			created_by BIGINT NOT NULL,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)`,
		`CREATE UNIQUE INDEX idx_assessment_property_year
			ON tax_assessments (property_id, tax_year)`,
		`CREATE TABLE tax_payments (
			id BIGINT PRIMARY KEY,
			assessment_id BIGINT NOT NULL,
			amount BIGINT NOT NULL,
			payment_date DATETIME NOT NULL,
			method TEXT NOT NULL,
			receipt_number TEXT NOT NULL,
			collected_by BIGINT NOT NULL,
			notes TEXT,
			created_at DATETIME NOT NULL
		)`,
		`CREATE UNIQUE INDEX idx_payment_receipt ON tax_payments (receipt_number)`,
		`CREATE TABLE activity_entries (
			id BIGINT PRIMARY KEY,
			entity_kind TEXT NOT NULL,
			entity_id BIGINT NOT NULL,
			action TEXT NOT NULL,
			actor_id BIGINT NOT NULL,
			feedback TEXT,
			metadata JSON NOT NULL DEFAULT '{}',
			created_at DATETIME NOT NULL
		)`,
	}
	for _, stmt := range statements {
		if err := db.Exec(stmt).Error; err != nil {
			t.Fatalf("prepare schema: %v", err)
		}
	}
}

func seedProperty(t *testing.T, db *gorm.DB, node *snowflake.Node, status workflowdomain.Status) snowflake.ID {
	t.Helper()
	id := node.Generate()
	err := db.Exec(
		`INSERT INTO properties (id, parcel_number, address, area_sqm, land_use, owner_id, declared_value, status, created_by, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, "PCL-"+id.String(), "12 Harbor Rd", 420.5, "RESIDENTIAL", node.Generate(), 9000000, status, node.Generate(), baseTime, baseTime,
	).Error
	if err != nil {
		t.Fatalf("seed property: %v", err)
	}
	return id
}

func actorContext(node *snowflake.Node) (context.Context, snowflake.ID) {
	actorID := node.Generate()
	return actorcontext.WithActorID(context.Background(), int64(actorID)), actorID
}

func mustNode(t *testing.T) *snowflake.Node {
	t.Helper()
	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("new node: %v", err)
	}
	return node
}

func countRows(t *testing.T, db *gorm.DB, table string) int {
	t.Helper()
	var count int
	if err := db.Raw(`SELECT COUNT(1) FROM ` + table).Scan(&count).Error; err != nil {
		t.Fatalf("count %s: %v", table, err)
	}
	return count
}

func TestCreateAssessmentDerivesAmounts(t *testing.T) {
	node := mustNode(t)
	fake := clock.NewFakeClock(baseTime)
	svc, db := setupAssessmentService(t, node, fake)
	propertyID := seedProperty(t, db, node, workflowdomain.StatusApproved)
	ctx, _ := actorContext(node)

	assessment, err := svc.CreateAssessment(ctx, domain.CreateAssessmentRequest{
		PropertyID:      propertyID.String(),
		TaxYear:         2026,
		BaseAmount:      5000,
		ExemptionAmount: 500,
		DueDate:         baseTime.AddDate(0, 3, 0),
		AssessmentDate:  baseTime,
	})
	if err != nil {
		t.Fatalf("create assessment: %v", err)
	}

	if assessment.AssessedAmount != 4500 {
		t.Fatalf("expected assessed amount 4500, got %d", assessment.AssessedAmount)
	}
	if assessment.OutstandingAmount != 4500 || assessment.PaidAmount != 0 {
		t.Fatalf("unexpected ledger amounts: paid=%d outstanding=%d", assessment.PaidAmount, assessment.OutstandingAmount)
	}
	if assessment.Status != domain.StatusAssessed {
		t.Fatalf("expected status ASSESSED, got %s", assessment.Status)
	}

	var action string
	if err := db.Raw(`SELECT action FROM activity_entries WHERE entity_id = ?`, assessment.ID).Scan(&action).Error; err != nil {
		t.Fatalf("read activity: %v", err)
	}
	if action != "ASSESSMENT_CREATED" {
		t.Fatalf("expected ASSESSMENT_CREATED activity, got %q", action)
	}
}

func TestCreateAssessmentDuplicateYear(t *testing.T) {
	node := mustNode(t)
	fake := clock.NewFakeClock(baseTime)
	svc, db := setupAssessmentService(t, node, fake)
	propertyID := seedProperty(t, db, node, workflowdomain.StatusApproved)
	ctx, _ := actorContext(node)

	req := domain.CreateAssessmentRequest{
		PropertyID:      propertyID.String(),
		TaxYear:         2026,
		BaseAmount:      5000,
		ExemptionAmount: 0,
		DueDate:         baseTime.AddDate(0, 3, 0),
		AssessmentDate:  baseTime,
	}
	if _, err := svc.CreateAssessment(ctx, req); err != nil {
		t.Fatalf("create first assessment: %v", err)
	}
	if _, err := svc.CreateAssessment(ctx, req); !errors.Is(err, domain.ErrDuplicateAssessment) {
		t.Fatalf("expected ErrDuplicateAssessment, got %v", err)
	}
	if count := countRows(t, db, "tax_assessments"); count != 1 {
		t.Fatalf("expected 1 assessment row, got %d", count)
	}
}

func TestCreateAssessmentRequiresApprovedProperty(t *testing.T) {
	node := mustNode(t)
	fake := clock.NewFakeClock(baseTime)
	svc, db := setupAssessmentService(t, node, fake)
	draftID := seedProperty(t, db, node, workflowdomain.StatusDraft)
	ctx, _ := actorContext(node)

	req := domain.CreateAssessmentRequest{
		PropertyID:     draftID.String(),
		TaxYear:        2026,
		BaseAmount:     5000,
		DueDate:        baseTime.AddDate(0, 3, 0),
		AssessmentDate: baseTime,
	}
	if _, err := svc.CreateAssessment(ctx, req); !errors.Is(err, domain.ErrPropertyNotApproved) {
		t.Fatalf("expected ErrPropertyNotApproved, got %v", err)
	}

	req.PropertyID = node.Generate().String()
	if _, err := svc.CreateAssessment(ctx, req); !errors.Is(err, domain.ErrPropertyNotFound) {
		t.Fatalf("expected ErrPropertyNotFound, got %v", err)
	}
}

func TestCreateAssessmentValidation(t *testing.T) {
	node := mustNode(t)
	fake := clock.NewFakeClock(baseTime)
	svc, db := setupAssessmentService(t, node, fake)
	propertyID := seedProperty(t, db, node, workflowdomain.StatusApproved)
	ctx, _ := actorContext(node)

	base := domain.CreateAssessmentRequest{
		PropertyID:      propertyID.String(),
		TaxYear:         2026,
		BaseAmount:      5000,
		ExemptionAmount: 500,
		DueDate:         baseTime.AddDate(0, 3, 0),
		AssessmentDate:  baseTime,
	}

	req := base
	req.TaxYear = 1800
	if _, err := svc.CreateAssessment(ctx, req); !errors.Is(err, domain.ErrInvalidTaxYear) {
		t.Fatalf("expected ErrInvalidTaxYear, got %v", err)
	}

	req = base
	req.ExemptionAmount = 6000
	if _, err := svc.CreateAssessment(ctx, req); !errors.Is(err, domain.ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount for exemption above base, got %v", err)
	}

	req = base
	req.DueDate = time.Time{}
	if _, err := svc.CreateAssessment(ctx, req); !errors.Is(err, domain.ErrInvalidDueDate) {
		t.Fatalf("expected ErrInvalidDueDate, got %v", err)
	}
}

func TestApplyPaymentLifecycle(t *testing.T) {
	node := mustNode(t)
	fake := clock.NewFakeClock(baseTime)
	svc, db := setupAssessmentService(t, node, fake)
	propertyID := seedProperty(t, db, node, workflowdomain.StatusApproved)
	ctx, _ := actorContext(node)

	assessment, err := svc.CreateAssessment(ctx, domain.CreateAssessmentRequest{
		PropertyID:      propertyID.String(),
		TaxYear:         2026,
		BaseAmount:      5000,
		ExemptionAmount: 500,
		DueDate:         baseTime.AddDate(0, 3, 0),
		AssessmentDate:  baseTime,
	})
	if err != nil {
		t.Fatalf("create assessment: %v", err)
	}

	first, err := svc.ApplyPayment(ctx, domain.ApplyPaymentRequest{
		AssessmentID: assessment.ID.String(),
		Amount:       2000,
		Method:       "CASH",
	})
	if err != nil {
		t.Fatalf("apply first payment: %v", err)
	}
	if first.Assessment.Status != domain.StatusPartial {
		t.Fatalf("expected PARTIAL after first payment, got %s", first.Assessment.Status)
	}
	if first.Assessment.OutstandingAmount != 2500 || first.IsFullyPaid {
		t.Fatalf("unexpected state after first payment: outstanding=%d fully_paid=%v",
			first.Assessment.OutstandingAmount, first.IsFullyPaid)
	}
	if !strings.HasPrefix(first.Payment.ReceiptNumber, "RCP-") {
		t.Fatalf("expected generated receipt number, got %q", first.Payment.ReceiptNumber)
	}

	fake.Advance(time.Hour)
	second, err := svc.ApplyPayment(ctx, domain.ApplyPaymentRequest{
		AssessmentID: assessment.ID.String(),
		Amount:       2500,
		Method:       "TRANSFER",
	})
	if err != nil {
		t.Fatalf("apply second payment: %v", err)
	}
	if second.Assessment.Status != domain.StatusPaid || !second.IsFullyPaid {
		t.Fatalf("expected PAID and fully paid, got %s fully_paid=%v", second.Assessment.Status, second.IsFullyPaid)
	}

	payments, err := svc.ListPayments(ctx, domain.ListPaymentsRequest{AssessmentID: assessment.ID.String()})
	if err != nil {
		t.Fatalf("list payments: %v", err)
	}
	if len(payments) != 2 {
		t.Fatalf("expected 2 payments, got %d", len(payments))
	}
	if payments[0].Amount != 2000 || payments[1].Amount != 2500 {
		t.Fatalf("payments out of order: %d, %d", payments[0].Amount, payments[1].Amount)
	}

	var added int
	if err := db.Raw(`SELECT COUNT(1) FROM activity_entries WHERE action = 'PAYMENT_ADDED'`).Scan(&added).Error; err != nil {
		t.Fatalf("count activity: %v", err)
	}
	if added != 2 {
		t.Fatalf("expected 2 PAYMENT_ADDED entries, got %d", added)
	}
}

func TestApplyPaymentOverpayment(t *testing.T) {
	node := mustNode(t)
	fake := clock.NewFakeClock(baseTime)
	svc, db := setupAssessmentService(t, node, fake)
	propertyID := seedProperty(t, db, node, workflowdomain.StatusApproved)
	ctx, _ := actorContext(node)

	assessment, err := svc.CreateAssessment(ctx, domain.CreateAssessmentRequest{
		PropertyID:     propertyID.String(),
		TaxYear:        2026,
		BaseAmount:     1000,
		DueDate:        baseTime.AddDate(0, 3, 0),
		AssessmentDate: baseTime,
	})
	if err != nil {
		t.Fatalf("create assessment: %v", err)
	}

	_, err = svc.ApplyPayment(ctx, domain.ApplyPaymentRequest{
		AssessmentID: assessment.ID.String(),
		Amount:       1001,
		Method:       "CASH",
	})
	var overpayment *domain.OverpaymentError
	if !errors.As(err, &overpayment) {
		t.Fatalf("expected OverpaymentError, got %v", err)
	}
	if overpayment.Outstanding != 1000 {
		t.Fatalf("expected outstanding 1000 in error, got %d", overpayment.Outstanding)
	}
	if count := countRows(t, db, "tax_payments"); count != 0 {
		t.Fatalf("expected no payment rows after rejected overpayment, got %d", count)
	}
}

func TestApplyPaymentOverdueDerivation(t *testing.T) {
	node := mustNode(t)
	fake := clock.NewFakeClock(baseTime)
	svc, db := setupAssessmentService(t, node, fake)
	propertyID := seedProperty(t, db, node, workflowdomain.StatusApproved)
	ctx, _ := actorContext(node)

	assessment, err := svc.CreateAssessment(ctx, domain.CreateAssessmentRequest{
		PropertyID:     propertyID.String(),
		TaxYear:        2025,
		BaseAmount:     3000,
		DueDate:        baseTime.AddDate(0, -1, 0),
		AssessmentDate: baseTime.AddDate(0, -2, 0),
	})
	if err != nil {
		t.Fatalf("create assessment: %v", err)
	}
	if assessment.Status != domain.StatusOverdue {
		t.Fatalf("expected OVERDUE at creation past due date, got %s", assessment.Status)
	}

	resp, err := svc.ApplyPayment(ctx, domain.ApplyPaymentRequest{
		AssessmentID: assessment.ID.String(),
		Amount:       1000,
		Method:       "CASH",
	})
	if err != nil {
		t.Fatalf("apply payment: %v", err)
	}
	if resp.Assessment.Status != domain.StatusOverdue {
		t.Fatalf("expected OVERDUE to persist over PARTIAL, got %s", resp.Assessment.Status)
	}

	resp, err = svc.ApplyPayment(ctx, domain.ApplyPaymentRequest{
		AssessmentID: assessment.ID.String(),
		Amount:       2000,
		Method:       "CASH",
	})
	if err != nil {
		t.Fatalf("apply settling payment: %v", err)
	}
	if resp.Assessment.Status != domain.StatusPaid {
		t.Fatalf("expected PAID once settled even past due, got %s", resp.Assessment.Status)
	}
}

func TestApplyPaymentDuplicateReceipt(t *testing.T) {
	node := mustNode(t)
	fake := clock.NewFakeClock(baseTime)
	svc, db := setupAssessmentService(t, node, fake)
	propertyID := seedProperty(t, db, node, workflowdomain.StatusApproved)
	ctx, _ := actorContext(node)

	assessment, err := svc.CreateAssessment(ctx, domain.CreateAssessmentRequest{
		PropertyID:     propertyID.String(),
		TaxYear:        2026,
		BaseAmount:     5000,
		DueDate:        baseTime.AddDate(0, 3, 0),
		AssessmentDate: baseTime,
	})
	if err != nil {
		t.Fatalf("create assessment: %v", err)
	}

	req := domain.ApplyPaymentRequest{
		AssessmentID:  assessment.ID.String(),
		Amount:        100,
		Method:        "CASH",
		ReceiptNumber: "RCP-MANUAL-1",
	}
	if _, err := svc.ApplyPayment(ctx, req); err != nil {
		t.Fatalf("apply payment: %v", err)
	}
	if _, err := svc.ApplyPayment(ctx, req); !errors.Is(err, domain.ErrDuplicateReceipt) {
		t.Fatalf("expected ErrDuplicateReceipt, got %v", err)
	}
	if count := countRows(t, db, "tax_payments"); count != 1 {
		t.Fatalf("expected 1 payment row, got %d", count)
	}
}

func TestApplyAmountsRequiresObservedPaid(t *testing.T) {
	node := mustNode(t)
	fake := clock.NewFakeClock(baseTime)
	svc, db := setupAssessmentService(t, node, fake)
	propertyID := seedProperty(t, db, node, workflowdomain.StatusApproved)
	ctx, _ := actorContext(node)

	assessment, err := svc.CreateAssessment(ctx, domain.CreateAssessmentRequest{
		PropertyID:     propertyID.String(),
		TaxYear:        2026,
		BaseAmount:     5000,
		DueDate:        baseTime.AddDate(0, 3, 0),
		AssessmentDate: baseTime,
	})
	if err != nil {
		t.Fatalf("create assessment: %v", err)
	}

	repo := repository.Provide()
	stale := assessment
	stale.PaidAmount = 100
	stale.OutstandingAmount = 4900
	updated, err := repo.ApplyAmounts(ctx, db, &stale, 42)
	if err != nil {
		t.Fatalf("apply amounts: %v", err)
	}
	if updated {
		t.Fatal("expected stale observed paid amount to touch no rows")
	}
}

func TestListPaymentsMissingAssessment(t *testing.T) {
	node := mustNode(t)
	fake := clock.NewFakeClock(baseTime)
	svc, _ := setupAssessmentService(t, node, fake)
	ctx, _ := actorContext(node)

	_, err := svc.ListPayments(ctx, domain.ListPaymentsRequest{AssessmentID: node.Generate().String()})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

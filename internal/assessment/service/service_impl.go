package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	activitydomain "github.com/landworks/cadastre/internal/activity/domain"
	"github.com/landworks/cadastre/internal/actorcontext"
	"github.com/landworks/cadastre/internal/assessment/domain"
	"github.com/landworks/cadastre/internal/clock"
	"github.com/landworks/cadastre/internal/observability/metrics"
	propertydomain "github.com/landworks/cadastre/internal/property/domain"
	workflowdomain "github.com/landworks/cadastre/internal/workflow/domain"
	pkgdb "github.com/landworks/cadastre/pkg/db"
	"github.com/oklog/ulid/v2"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// receiptAttempts bounds ULID regeneration when a generated receipt
// number collides with an existing one.
const receiptAttempts = 5

type Params struct {
	fx.In

	DB           *gorm.DB
	Log          *zap.Logger
	GenID        *snowflake.Node
	Clock        clock.Clock
	Repo         domain.Repository
	PropertyRepo propertydomain.Repository
	ActivitySvc  activitydomain.Service
	Metrics      *metrics.Metrics `optional:"true"`
}

type Service struct {
	db           *gorm.DB
	log          *zap.Logger
	genID        *snowflake.Node
	clock        clock.Clock
	repo         domain.Repository
	propertyRepo propertydomain.Repository
	activitySvc  activitydomain.Service
	metrics      *metrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:           p.DB,
		log:          p.Log.Named("assessment.service"),
		genID:        p.GenID,
		clock:        p.Clock,
		repo:         p.Repo,
		propertyRepo: p.PropertyRepo,
		activitySvc:  p.ActivitySvc,
		metrics:      p.Metrics,
	}
}

func (s *Service) CreateAssessment(ctx context.Context, req domain.CreateAssessmentRequest) (domain.TaxAssessment, error) {
	actorID, ok := actorcontext.ActorIDFromContext(ctx)
	if !ok {
		return domain.TaxAssessment{}, domain.ErrInvalidActor
	}

	propertyID, err := s.parseID(req.PropertyID)
	if err != nil {
		return domain.TaxAssessment{}, err
	}
	if req.TaxYear < 1900 || req.TaxYear > 2200 {
		return domain.TaxAssessment{}, domain.ErrInvalidTaxYear
	}
	if req.ExemptionAmount < 0 || req.BaseAmount < req.ExemptionAmount {
		return domain.TaxAssessment{}, domain.ErrInvalidAmount
	}
	if req.DueDate.IsZero() || req.AssessmentDate.IsZero() {
		return domain.TaxAssessment{}, domain.ErrInvalidDueDate
	}

	property, err := s.propertyRepo.FindByID(ctx, s.db, propertyID)
	if err != nil {
		return domain.TaxAssessment{}, err
	}
	if property == nil {
		return domain.TaxAssessment{}, domain.ErrPropertyNotFound
	}
	if property.Status != workflowdomain.StatusApproved {
		return domain.TaxAssessment{}, domain.ErrPropertyNotApproved
	}

	now := s.clock.Now()
	assessed := req.BaseAmount - req.ExemptionAmount
	assessment := domain.TaxAssessment{
		ID:                s.genID.Generate(),
		PropertyID:        propertyID,
		TaxYear:           req.TaxYear,
		BaseAmount:        req.BaseAmount,
		ExemptionAmount:   req.ExemptionAmount,
		AssessedAmount:    assessed,
		PaidAmount:        0,
		OutstandingAmount: assessed,
		Status:            domain.DeriveStatus(assessed, 0, assessed, req.DueDate, now),
		DueDate:           req.DueDate,
		AssessmentDate:    req.AssessmentDate,
		CreatedBy:         actorID,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	// Uniqueness of (property, tax_year) rides on the index, not on a
	// pre-check that could race.
	if err := s.repo.InsertAssessment(ctx, s.db, &assessment); err != nil {
		if pkgdb.IsDuplicateKeyErr(err) {
			return domain.TaxAssessment{}, domain.ErrDuplicateAssessment
		}
		return domain.TaxAssessment{}, err
	}

	s.recordActivity(ctx, assessment.ID, "ASSESSMENT_CREATED", actorID, map[string]any{
		"property_id":     propertyID.String(),
		"tax_year":        req.TaxYear,
		"assessed_amount": assessed,
	})
	s.metrics.RecordAssessmentCreated(ctx)

	return assessment, nil
}

func (s *Service) ApplyPayment(ctx context.Context, req domain.ApplyPaymentRequest) (domain.ApplyPaymentResponse, error) {
	actorID, ok := actorcontext.ActorIDFromContext(ctx)
	if !ok {
		return domain.ApplyPaymentResponse{}, domain.ErrInvalidActor
	}

	assessmentID, err := s.parseID(req.AssessmentID)
	if err != nil {
		return domain.ApplyPaymentResponse{}, err
	}
	if req.Amount <= 0 {
		return domain.ApplyPaymentResponse{}, domain.ErrInvalidAmount
	}
	method := strings.TrimSpace(req.Method)
	if method == "" {
		return domain.ApplyPaymentResponse{}, domain.ErrInvalidMethod
	}

	now := s.clock.Now()
	paymentDate := req.PaymentDate
	if paymentDate.IsZero() {
		paymentDate = now
	}

	var resp domain.ApplyPaymentResponse
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		assessment, err := s.repo.FindAssessmentByID(ctx, tx, assessmentID)
		if err != nil {
			return err
		}
		if assessment == nil {
			return domain.ErrNotFound
		}
		if req.Amount > assessment.OutstandingAmount {
			return &domain.OverpaymentError{Outstanding: assessment.OutstandingAmount}
		}

		payment := domain.TaxPayment{
			ID:           s.genID.Generate(),
			AssessmentID: assessment.ID,
			Amount:       req.Amount,
			PaymentDate:  paymentDate,
			Method:       method,
			CollectedBy:  actorID,
			Notes:        strings.TrimSpace(req.Notes),
			CreatedAt:    now,
		}
		if err := s.insertPayment(ctx, tx, &payment, strings.TrimSpace(req.ReceiptNumber)); err != nil {
			return err
		}

		observedPaid := assessment.PaidAmount
		assessment.PaidAmount += req.Amount
		assessment.OutstandingAmount = assessment.AssessedAmount - assessment.PaidAmount
		assessment.Status = domain.DeriveStatus(
			assessment.AssessedAmount,
			assessment.PaidAmount,
			assessment.OutstandingAmount,
			assessment.DueDate,
			now,
		)
		assessment.UpdatedAt = now

		updated, err := s.repo.ApplyAmounts(ctx, tx, assessment, observedPaid)
		if err != nil {
			return err
		}
		if !updated {
			// Another payment landed between the read and the write.
			return domain.ErrConflict
		}

		resp = domain.ApplyPaymentResponse{
			Payment:     payment,
			Assessment:  *assessment,
			IsFullyPaid: assessment.OutstandingAmount == 0,
		}
		return nil
	})
	if err != nil {
		return domain.ApplyPaymentResponse{}, err
	}

	s.recordActivity(ctx, resp.Assessment.ID, "PAYMENT_ADDED", actorID, map[string]any{
		"amount":  resp.Payment.Amount,
		"method":  resp.Payment.Method,
		"receipt": resp.Payment.ReceiptNumber,
	})
	s.metrics.RecordPaymentApplied(ctx, string(resp.Assessment.Status))

	return resp, nil
}

func (s *Service) GetAssessment(ctx context.Context, req domain.GetAssessmentRequest) (domain.TaxAssessment, error) {
	id, err := s.parseID(req.ID)
	if err != nil {
		return domain.TaxAssessment{}, err
	}

	item, err := s.repo.FindAssessmentByID(ctx, s.db, id)
	if err != nil {
		return domain.TaxAssessment{}, err
	}
	if item == nil {
		return domain.TaxAssessment{}, domain.ErrNotFound
	}

	return *item, nil
}

func (s *Service) ListByProperty(ctx context.Context, req domain.ListByPropertyRequest) ([]domain.TaxAssessment, error) {
	propertyID, err := s.parseID(req.PropertyID)
	if err != nil {
		return nil, err
	}

	items, err := s.repo.ListByProperty(ctx, s.db, propertyID)
	if err != nil {
		return nil, err
	}

	assessments := make([]domain.TaxAssessment, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		assessments = append(assessments, *item)
	}
	return assessments, nil
}

func (s *Service) ListPayments(ctx context.Context, req domain.ListPaymentsRequest) ([]domain.TaxPayment, error) {
	assessmentID, err := s.parseID(req.AssessmentID)
	if err != nil {
		return nil, err
	}

	assessment, err := s.repo.FindAssessmentByID(ctx, s.db, assessmentID)
	if err != nil {
		return nil, err
	}
	if assessment == nil {
		return nil, domain.ErrNotFound
	}

	items, err := s.repo.ListPayments(ctx, s.db, assessmentID)
	if err != nil {
		return nil, err
	}

	payments := make([]domain.TaxPayment, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		payments = append(payments, *item)
	}
	return payments, nil
}

// insertPayment writes the payment row. A caller-supplied receipt
// number collides fatally; a generated one is retried with a fresh
// ULID a bounded number of times.
func (s *Service) insertPayment(ctx context.Context, tx *gorm.DB, payment *domain.TaxPayment, receipt string) error {
	if receipt != "" {
		payment.ReceiptNumber = receipt
		if err := s.repo.InsertPayment(ctx, tx, payment); err != nil {
			if pkgdb.IsDuplicateKeyErr(err) {
				return domain.ErrDuplicateReceipt
			}
			return err
		}
		return nil
	}

	var lastErr error
	for attempt := 0; attempt < receiptAttempts; attempt++ {
		payment.ReceiptNumber = fmt.Sprintf("RCP-%s", ulid.Make().String())
		err := s.repo.InsertPayment(ctx, tx, payment)
		if err == nil {
			return nil
		}
		if !pkgdb.IsDuplicateKeyErr(err) {
			return err
		}
		lastErr = err
	}
	return lastErr
}

func (s *Service) recordActivity(ctx context.Context, id snowflake.ID, action string, actorID snowflake.ID, metadata map[string]any) {
	err := s.activitySvc.Record(ctx, activitydomain.RecordActivityRequest{
		EntityKind: "assessment",
		EntityID:   id,
		Action:     action,
		ActorID:    actorID,
		Metadata:   metadata,
	})
	if err != nil {
		s.log.Warn("failed to record activity",
			zap.String("assessment_id", id.String()),
			zap.String("action", action),
			zap.Error(err),
		)
	}
}

func (s *Service) parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}

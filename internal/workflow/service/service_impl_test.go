package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	activityrepository "github.com/landworks/cadastre/internal/activity/repository"
	activityservice "github.com/landworks/cadastre/internal/activity/service"
	"github.com/landworks/cadastre/internal/actorcontext"
	auditrepository "github.com/landworks/cadastre/internal/audit/repository"
	auditservice "github.com/landworks/cadastre/internal/audit/service"
	"github.com/landworks/cadastre/internal/clock"
	customerrepository "github.com/landworks/cadastre/internal/customer/repository"
	notificationrepository "github.com/landworks/cadastre/internal/notification/repository"
	notificationservice "github.com/landworks/cadastre/internal/notification/service"
	userdomain "github.com/landworks/cadastre/internal/user/domain"
	userrepository "github.com/landworks/cadastre/internal/user/repository"
	userservice "github.com/landworks/cadastre/internal/user/service"
	"github.com/landworks/cadastre/internal/workflow/domain"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

var baseTime = time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

type harness struct {
	svc     domain.Service
	userSvc userdomain.Service
	db      *gorm.DB
	node    *snowflake.Node
	clock   *clock.FakeClock
}

func setupWorkflow(t *testing.T) *harness {
	t.Helper()

	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("new node: %v", err)
	}
	fake := clock.NewFakeClock(baseTime)

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
	prepareWorkflowSchema(t, db)

	log := zap.NewNop()
	userSvc := userservice.New(userservice.Params{
		DB:    db,
		Log:   log,
		GenID: node,
		Clock: fake,
		Repo:  userrepository.Provide(),
	})
	auditSvc := auditservice.NewService(auditservice.Params{
		DB:    db,
		Log:   log,
		GenID: node,
		Clock: fake,
		Repo:  auditrepository.Provide(),
	})
	activitySvc := activityservice.NewService(activityservice.Params{
		DB:    db,
		Log:   log,
		GenID: node,
		Clock: fake,
		Repo:  activityrepository.Provide(),
	})
	notificationSvc := notificationservice.NewService(notificationservice.Params{
		DB:    db,
		Log:   log,
		GenID: node,
		Clock: fake,
		Repo:  notificationrepository.Provide(),
	})

	svc := New(Params{
		DB:              db,
		Log:             log,
		Clock:           fake,
		Stores:          []domain.EntityStore{customerrepository.ProvideWorkflowStore()},
		UserSvc:         userSvc,
		AuditSvc:        auditSvc,
		ActivitySvc:     activitySvc,
		NotificationSvc: notificationSvc,
	})

	return &harness{svc: svc, userSvc: userSvc, db: db, node: node, clock: fake}
}

func prepareWorkflowSchema(t *testing.T, db *gorm.DB) {
	t.Helper()
	statements := []string{
		`CREATE TABLE users (
			id BIGINT PRIMARY KEY,
			username TEXT NOT NULL UNIQUE,
			full_name TEXT NOT NULL,
			email TEXT NOT NULL,
			role TEXT NOT NULL,
			active BOOLEAN NOT NULL DEFAULT TRUE,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)`,
		`CREATE TABLE customers (
			id BIGINT PRIMARY KEY,
			name TEXT NOT NULL,
			email TEXT NOT NULL,
			phone TEXT,
			address TEXT,
			customer_type TEXT NOT NULL,
			status TEXT NOT NULL,
			created_by BIGINT NOT NULL,
			submitted_at DATETIME,
			approved_by BIGINT,
			rejection_feedback TEXT,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)`,
		`CREATE TABLE customer_person_details (
			customer_id BIGINT PRIMARY KEY,
			national_id TEXT NOT NULL,
			date_of_birth TEXT
		)`,
		`CREATE TABLE customer_business_details (
			customer_id BIGINT PRIMARY KEY,
			registration_number TEXT NOT NULL,
			contact_person TEXT
		)`,
		`CREATE TABLE customer_government_details (
			customer_id BIGINT PRIMARY KEY,
			agency_code TEXT NOT NULL,
			department TEXT
		)`,
		`CREATE TABLE audit_records (
			id BIGINT PRIMARY KEY,
			entity_kind TEXT NOT NULL,
			entity_id BIGINT NOT NULL,
			action TEXT NOT NULL,
			field_name TEXT NOT NULL,
			old_value TEXT,
			new_value TEXT,
			actor_id BIGINT NOT NULL,
			created_at DATETIME NOT NULL
		)`,
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
		`CREATE TABLE notifications (
			id BIGINT PRIMARY KEY,
			user_id BIGINT NOT NULL,
			entity_kind TEXT NOT NULL,
			entity_id BIGINT NOT NULL,
			event_type TEXT NOT NULL,
			title TEXT NOT NULL,
			message TEXT NOT NULL,
			read BOOLEAN NOT NULL DEFAULT FALSE,
			created_at DATETIME NOT NULL
		)`,
	}
	for _, stmt := range statements {
		if err := db.Exec(stmt).Error; err != nil {
			t.Fatalf("prepare schema: %v", err)
		}
	}
}

func (h *harness) createUser(t *testing.T, username string, role userdomain.Role) userdomain.User {
	t.Helper()
	user, err := h.userSvc.Create(context.Background(), userdomain.CreateUserRequest{
		Username: username,
		FullName: username,
		Email:    username + "@cadastre.local",
		Role:     string(role),
	})
	if err != nil {
		t.Fatalf("create user %s: %v", username, err)
	}
	return user
}

func (h *harness) deactivateUser(t *testing.T, user userdomain.User) {
	t.Helper()
	inactive := false
	_, err := h.userSvc.Update(context.Background(), userdomain.UpdateUserRequest{
		ID:     user.ID.String(),
		Active: &inactive,
	})
	if err != nil {
		t.Fatalf("deactivate user: %v", err)
	}
}

func (h *harness) seedCustomer(t *testing.T, createdBy snowflake.ID, status domain.Status) snowflake.ID {
	t.Helper()
	id := h.node.Generate()
	err := h.db.Exec(
		`INSERT INTO customers (id, name, email, customer_type, status, created_by, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		id, "Ari Wibowo", "ari@example.com", "PERSON", status, createdBy, baseTime, baseTime,
	).Error
	if err != nil {
		t.Fatalf("seed customer: %v", err)
	}
	err = h.db.Exec(
		`INSERT INTO customer_person_details (customer_id, national_id) VALUES (?, ?)`,
		id, "3175014003900001",
	).Error
	if err != nil {
		t.Fatalf("seed customer detail: %v", err)
	}
	return id
}

func asActor(user userdomain.User) context.Context {
	return actorcontext.WithActorID(context.Background(), int64(user.ID))
}

func TestSubmitFansOutToReviewers(t *testing.T) {
	h := setupWorkflow(t)
	creator := h.createUser(t, "creator", userdomain.RoleInputter)
	approver := h.createUser(t, "approver", userdomain.RoleApprover)
	admin := h.createUser(t, "admin", userdomain.RoleAdministrator)
	h.createUser(t, "viewer", userdomain.RoleViewer)
	retired := h.createUser(t, "retired", userdomain.RoleApprover)
	h.deactivateUser(t, retired)

	customerID := h.seedCustomer(t, creator.ID, domain.StatusDraft)

	transition, err := h.svc.Submit(asActor(creator), domain.SubmitRequest{
		EntityKind: "customer",
		EntityID:   customerID.String(),
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if transition.From != domain.StatusDraft || transition.To != domain.StatusSubmitted {
		t.Fatalf("unexpected transition %s -> %s", transition.From, transition.To)
	}

	var row struct {
		Status      domain.Status
		SubmittedAt *time.Time
	}
	if err := h.db.Raw(`SELECT status, submitted_at FROM customers WHERE id = ?`, customerID).Scan(&row).Error; err != nil {
		t.Fatalf("read customer: %v", err)
	}
	if row.Status != domain.StatusSubmitted {
		t.Fatalf("expected SUBMITTED, got %s", row.Status)
	}
	if row.SubmittedAt == nil {
		t.Fatal("expected submitted_at to be set")
	}

	var actions []string
	if err := h.db.Raw(`SELECT action FROM activity_entries WHERE entity_id = ?`, customerID).Scan(&actions).Error; err != nil {
		t.Fatalf("read activity: %v", err)
	}
	if len(actions) != 1 || actions[0] != "SUBMITTED" {
		t.Fatalf("expected one SUBMITTED activity entry, got %v", actions)
	}

	var recipients []int64
	if err := h.db.Raw(`SELECT user_id FROM notifications WHERE event_type = 'SUBMITTED' ORDER BY user_id`).Scan(&recipients).Error; err != nil {
		t.Fatalf("read notifications: %v", err)
	}
	if len(recipients) != 2 {
		t.Fatalf("expected notifications for active reviewers only, got %d", len(recipients))
	}
	want := map[int64]bool{int64(approver.ID): true, int64(admin.ID): true}
	for _, recipient := range recipients {
		if !want[recipient] {
			t.Fatalf("unexpected notification recipient %d", recipient)
		}
	}
}

func TestSubmitForbiddenForNonCreator(t *testing.T) {
	h := setupWorkflow(t)
	creator := h.createUser(t, "creator", userdomain.RoleInputter)
	other := h.createUser(t, "other", userdomain.RoleInputter)
	admin := h.createUser(t, "admin", userdomain.RoleAdministrator)
	customerID := h.seedCustomer(t, creator.ID, domain.StatusDraft)

	_, err := h.svc.Submit(asActor(other), domain.SubmitRequest{
		EntityKind: "customer",
		EntityID:   customerID.String(),
	})
	if !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden for non-creator, got %v", err)
	}

	// Administrators may submit on behalf of anyone.
	if _, err := h.svc.Submit(asActor(admin), domain.SubmitRequest{
		EntityKind: "customer",
		EntityID:   customerID.String(),
	}); err != nil {
		t.Fatalf("admin submit: %v", err)
	}
}

func TestRejectRequiresFeedback(t *testing.T) {
	h := setupWorkflow(t)

	_, err := h.svc.Reject(context.Background(), domain.RejectRequest{
		EntityKind: "customer",
		EntityID:   "1",
		Feedback:   "too short",
	})
	if !errors.Is(err, domain.ErrFeedbackTooShort) {
		t.Fatalf("expected ErrFeedbackTooShort, got %v", err)
	}
}

func TestRejectThenResubmitClearsFeedback(t *testing.T) {
	h := setupWorkflow(t)
	creator := h.createUser(t, "creator", userdomain.RoleInputter)
	approver := h.createUser(t, "approver", userdomain.RoleApprover)
	customerID := h.seedCustomer(t, creator.ID, domain.StatusDraft)

	if _, err := h.svc.Submit(asActor(creator), domain.SubmitRequest{
		EntityKind: "customer",
		EntityID:   customerID.String(),
	}); err != nil {
		t.Fatalf("submit: %v", err)
	}

	feedback := "parcel boundary does not match registry"
	transition, err := h.svc.Reject(asActor(approver), domain.RejectRequest{
		EntityKind: "customer",
		EntityID:   customerID.String(),
		Feedback:   feedback,
	})
	if err != nil {
		t.Fatalf("reject: %v", err)
	}
	if transition.To != domain.StatusRejected || transition.Feedback == nil || *transition.Feedback != feedback {
		t.Fatalf("unexpected reject transition: %+v", transition)
	}

	var stored sql.NullString
	if err := h.db.Raw(`SELECT rejection_feedback FROM customers WHERE id = ?`, customerID).Scan(&stored).Error; err != nil {
		t.Fatalf("read feedback: %v", err)
	}
	if !stored.Valid || stored.String != feedback {
		t.Fatalf("expected stored feedback %q, got %+v", feedback, stored)
	}

	var count int
	if err := h.db.Raw(`SELECT COUNT(1) FROM notifications WHERE event_type = 'REJECTED' AND user_id = ?`, creator.ID).Scan(&count).Error; err != nil {
		t.Fatalf("count reject notifications: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected reject notification for the creator, got %d", count)
	}

	if _, err := h.svc.Submit(asActor(creator), domain.SubmitRequest{
		EntityKind: "customer",
		EntityID:   customerID.String(),
	}); err != nil {
		t.Fatalf("resubmit: %v", err)
	}

	if err := h.db.Raw(`SELECT rejection_feedback FROM customers WHERE id = ?`, customerID).Scan(&stored).Error; err != nil {
		t.Fatalf("re-read feedback: %v", err)
	}
	if stored.Valid {
		t.Fatalf("expected feedback cleared on resubmission, got %q", stored.String)
	}
}

func TestApproveTransitionRules(t *testing.T) {
	h := setupWorkflow(t)
	creator := h.createUser(t, "creator", userdomain.RoleInputter)
	approver := h.createUser(t, "approver", userdomain.RoleApprover)
	customerID := h.seedCustomer(t, creator.ID, domain.StatusDraft)

	// Inputters cannot review, drafts cannot be approved.
	if _, err := h.svc.Approve(asActor(creator), domain.ApproveRequest{
		EntityKind: "customer",
		EntityID:   customerID.String(),
	}); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden for inputter, got %v", err)
	}
	if _, err := h.svc.Approve(asActor(approver), domain.ApproveRequest{
		EntityKind: "customer",
		EntityID:   customerID.String(),
	}); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition for draft, got %v", err)
	}

	if _, err := h.svc.Submit(asActor(creator), domain.SubmitRequest{
		EntityKind: "customer",
		EntityID:   customerID.String(),
	}); err != nil {
		t.Fatalf("submit: %v", err)
	}

	transition, err := h.svc.Approve(asActor(approver), domain.ApproveRequest{
		EntityKind: "customer",
		EntityID:   customerID.String(),
	})
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if transition.To != domain.StatusApproved {
		t.Fatalf("expected APPROVED, got %s", transition.To)
	}

	var approvedBy sql.NullInt64
	if err := h.db.Raw(`SELECT approved_by FROM customers WHERE id = ?`, customerID).Scan(&approvedBy).Error; err != nil {
		t.Fatalf("read approved_by: %v", err)
	}
	if !approvedBy.Valid || approvedBy.Int64 != int64(approver.ID) {
		t.Fatalf("expected approved_by %d, got %+v", approver.ID, approvedBy)
	}

	// A second approval sees a record no longer in SUBMITTED.
	if _, err := h.svc.Approve(asActor(approver), domain.ApproveRequest{
		EntityKind: "customer",
		EntityID:   customerID.String(),
	}); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition on second approval, got %v", err)
	}
}

func TestDeleteRules(t *testing.T) {
	h := setupWorkflow(t)
	creator := h.createUser(t, "creator", userdomain.RoleInputter)
	admin := h.createUser(t, "admin", userdomain.RoleAdministrator)

	draftID := h.seedCustomer(t, creator.ID, domain.StatusDraft)
	if err := h.svc.Delete(asActor(creator), domain.DeleteRequest{
		EntityKind: "customer",
		EntityID:   draftID.String(),
	}); err != nil {
		t.Fatalf("delete own draft: %v", err)
	}

	var count int
	if err := h.db.Raw(`SELECT COUNT(1) FROM customers WHERE id = ?`, draftID).Scan(&count).Error; err != nil {
		t.Fatalf("count customers: %v", err)
	}
	if count != 0 {
		t.Fatal("expected customer row removed")
	}
	if err := h.db.Raw(`SELECT COUNT(1) FROM customer_person_details WHERE customer_id = ?`, draftID).Scan(&count).Error; err != nil {
		t.Fatalf("count details: %v", err)
	}
	if count != 0 {
		t.Fatal("expected detail row removed")
	}
	if err := h.db.Raw(`SELECT COUNT(1) FROM activity_entries WHERE entity_id = ? AND action = 'DELETED'`, draftID).Scan(&count).Error; err != nil {
		t.Fatalf("count activity: %v", err)
	}
	if count != 1 {
		t.Fatal("expected DELETED activity entry to outlive the record")
	}

	submittedID := h.seedCustomer(t, creator.ID, domain.StatusSubmitted)
	if err := h.svc.Delete(asActor(creator), domain.DeleteRequest{
		EntityKind: "customer",
		EntityID:   submittedID.String(),
	}); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden deleting submitted record, got %v", err)
	}
	if err := h.svc.Delete(asActor(admin), domain.DeleteRequest{
		EntityKind: "customer",
		EntityID:   submittedID.String(),
	}); err != nil {
		t.Fatalf("admin delete: %v", err)
	}
}

func TestResolveTargetValidation(t *testing.T) {
	h := setupWorkflow(t)
	creator := h.createUser(t, "creator", userdomain.RoleInputter)

	if _, err := h.svc.Submit(asActor(creator), domain.SubmitRequest{
		EntityKind: "invoice",
		EntityID:   "1",
	}); !errors.Is(err, domain.ErrInvalidEntityKind) {
		t.Fatalf("expected ErrInvalidEntityKind, got %v", err)
	}
	if _, err := h.svc.Submit(asActor(creator), domain.SubmitRequest{
		EntityKind: "customer",
		EntityID:   "not-a-number",
	}); !errors.Is(err, domain.ErrInvalidID) {
		t.Fatalf("expected ErrInvalidID, got %v", err)
	}
	if _, err := h.svc.Submit(asActor(creator), domain.SubmitRequest{
		EntityKind: "customer",
		EntityID:   h.node.Generate().String(),
	}); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

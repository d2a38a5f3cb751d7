package authorization

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

var baseTime = time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

func setupAuthorization(t *testing.T) (Service, *gorm.DB, *snowflake.Node) {
	t.Helper()

	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("new node: %v", err)
	}

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

	stmt := `CREATE TABLE users (
		id BIGINT PRIMARY KEY,
		username TEXT NOT NULL UNIQUE,
		full_name TEXT NOT NULL,
		email TEXT NOT NULL,
		role TEXT NOT NULL,
		active BOOLEAN NOT NULL DEFAULT 1,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	)`
	if err := db.Exec(stmt).Error; err != nil {
		t.Fatalf("prepare schema: %v", err)
	}

	enforcer, err := NewEnforcer(db)
	if err != nil {
		t.Fatalf("new enforcer: %v", err)
	}

	svc := NewService(Params{
		DB:       db,
		Log:      zap.NewNop(),
		Enforcer: enforcer,
	})

	return svc, db, node
}

func seedActor(t *testing.T, db *gorm.DB, node *snowflake.Node, role string, active bool) string {
	t.Helper()
	id := node.Generate()
	err := db.Exec(
		`INSERT INTO users (id, username, full_name, email, role, active, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		id, fmt.Sprintf("u%s", id), "Test User", fmt.Sprintf("u%s@example.com", id),
		role, active, baseTime, baseTime,
	).Error
	if err != nil {
		t.Fatalf("seed actor: %v", err)
	}
	return fmt.Sprintf("user:%s", id)
}

func TestAuthorizeRoleMatrix(t *testing.T) {
	svc, db, node := setupAuthorization(t)
	ctx := context.Background()

	viewer := seedActor(t, db, node, "VIEWER", true)
	inputter := seedActor(t, db, node, "INPUTTER", true)
	approver := seedActor(t, db, node, "APPROVER", true)
	admin := seedActor(t, db, node, "ADMINISTRATOR", true)

	cases := []struct {
		name    string
		actor   string
		object  string
		action  string
		allowed bool
	}{
		{"viewer reads customers", viewer, ObjectCustomer, ActionCustomerView, true},
		{"viewer cannot create", viewer, ObjectCustomer, ActionCustomerCreate, false},
		{"viewer cannot see users", viewer, ObjectUser, ActionUserView, false},
		{"inputter creates customer", inputter, ObjectCustomer, ActionCustomerCreate, true},
		{"inputter submits property", inputter, ObjectProperty, ActionPropertySubmit, true},
		{"inputter applies payment", inputter, ObjectPayment, ActionPaymentApply, true},
		{"inputter cannot approve", inputter, ObjectCustomer, ActionCustomerApprove, false},
		{"approver approves customer", approver, ObjectCustomer, ActionCustomerApprove, true},
		{"approver rejects property", approver, ObjectProperty, ActionPropertyReject, true},
		{"approver creates assessment", approver, ObjectAssessment, ActionAssessmentCreate, true},
		{"approver applies payment", approver, ObjectPayment, ActionPaymentApply, true},
		{"approver cannot create", approver, ObjectCustomer, ActionCustomerCreate, false},
		{"approver cannot manage users", approver, ObjectUser, ActionUserManage, false},
		{"admin creates customer", admin, ObjectCustomer, ActionCustomerCreate, true},
		{"admin approves property", admin, ObjectProperty, ActionPropertyApprove, true},
		{"admin manages users", admin, ObjectUser, ActionUserManage, true},
		{"viewer reads audit logs", viewer, ObjectAuditLog, ActionAuditLogView, true},
		{"viewer marks notification read", viewer, ObjectNotification, ActionNotificationRead, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := svc.Authorize(ctx, tc.actor, tc.object, tc.action)
			if tc.allowed && err != nil {
				t.Fatalf("expected allow, got %v", err)
			}
			if !tc.allowed && !errors.Is(err, ErrForbidden) {
				t.Fatalf("expected ErrForbidden, got %v", err)
			}
		})
	}
}

func TestAuthorizeInactiveUser(t *testing.T) {
	svc, db, node := setupAuthorization(t)
	ctx := context.Background()

	retired := seedActor(t, db, node, "APPROVER", false)
	err := svc.Authorize(ctx, retired, ObjectCustomer, ActionCustomerView)
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden for inactive user, got %v", err)
	}
}

func TestAuthorizeRoleChangeTakesEffect(t *testing.T) {
	svc, db, node := setupAuthorization(t)
	ctx := context.Background()

	actor := seedActor(t, db, node, "INPUTTER", true)
	if err := svc.Authorize(ctx, actor, ObjectCustomer, ActionCustomerCreate); err != nil {
		t.Fatalf("inputter create: %v", err)
	}
	if err := svc.Authorize(ctx, actor, ObjectCustomer, ActionCustomerApprove); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden before promotion, got %v", err)
	}

	// Role is re-read from the store on every check.
	if err := db.Exec(`UPDATE users SET role = 'APPROVER' WHERE id = ?`, actor[len("user:"):]).Error; err != nil {
		t.Fatalf("promote: %v", err)
	}
	if err := svc.Authorize(ctx, actor, ObjectCustomer, ActionCustomerApprove); err != nil {
		t.Fatalf("approve after promotion: %v", err)
	}
	if err := svc.Authorize(ctx, actor, ObjectCustomer, ActionCustomerCreate); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected create revoked after promotion, got %v", err)
	}
}

func TestAuthorizeActorValidation(t *testing.T) {
	svc, _, node := setupAuthorization(t)
	ctx := context.Background()

	if err := svc.Authorize(ctx, "", ObjectCustomer, ActionCustomerView); !errors.Is(err, ErrInvalidActor) {
		t.Fatalf("expected ErrInvalidActor for blank actor, got %v", err)
	}
	if err := svc.Authorize(ctx, "robot:7", ObjectCustomer, ActionCustomerView); !errors.Is(err, ErrInvalidActor) {
		t.Fatalf("expected ErrInvalidActor for unknown scheme, got %v", err)
	}
	if err := svc.Authorize(ctx, "user:not-a-number", ObjectCustomer, ActionCustomerView); !errors.Is(err, ErrInvalidActor) {
		t.Fatalf("expected ErrInvalidActor for bad id, got %v", err)
	}
	if err := svc.Authorize(ctx, fmt.Sprintf("user:%s", node.Generate()), ObjectCustomer, ActionCustomerView); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden for unknown user, got %v", err)
	}
	if err := svc.Authorize(ctx, "system", ObjectCustomer, ActionCustomerView); err != nil {
		t.Fatalf("system actor: %v", err)
	}
}

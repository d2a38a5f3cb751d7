package authorization

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

//go:embed model.conf
var modelText string

const (
	ObjectCustomer       = "customer"
	ObjectProperty       = "property"
	ObjectAssessment     = "assessment"
	ObjectPayment        = "payment"
	ObjectAuditLog       = "audit_log"
	ObjectActivityLog    = "activity_log"
	ObjectNotification   = "notification"
	ObjectUser           = "user"
	ObjectWorkflowConfig = "workflow_config"
)

const (
	ActionCustomerView    = "customer.view"
	ActionCustomerCreate  = "customer.create"
	ActionCustomerUpdate  = "customer.update"
	ActionCustomerDelete  = "customer.delete"
	ActionCustomerSubmit  = "customer.submit"
	ActionCustomerApprove = "customer.approve"
	ActionCustomerReject  = "customer.reject"

	ActionPropertyView    = "property.view"
	ActionPropertyCreate  = "property.create"
	ActionPropertyUpdate  = "property.update"
	ActionPropertyDelete  = "property.delete"
	ActionPropertySubmit  = "property.submit"
	ActionPropertyApprove = "property.approve"
	ActionPropertyReject  = "property.reject"

	ActionAssessmentView   = "assessment.view"
	ActionAssessmentCreate = "assessment.create"

	ActionPaymentView  = "payment.view"
	ActionPaymentApply = "payment.apply"

	ActionAuditLogView    = "audit_log.view"
	ActionActivityLogView = "activity_log.view"

	ActionNotificationView = "notification.view"
	ActionNotificationRead = "notification.read"

	ActionUserView   = "user.view"
	ActionUserManage = "user.manage"

	ActionWorkflowConfigView = "workflow_config.view"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	Enforcer *casbin.SyncedEnforcer
}

type ServiceImpl struct {
	db       *gorm.DB
	log      *zap.Logger
	enforcer *casbin.SyncedEnforcer
}

func NewEnforcer(db *gorm.DB) (*casbin.SyncedEnforcer, error) {
	adapter, err := gormadapter.NewAdapterByDB(db)
	if err != nil {
		return nil, err
	}
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, err
	}
	enforcer, err := casbin.NewSyncedEnforcer(m, adapter)
	if err != nil {
		return nil, err
	}
	enforcer.EnableAutoSave(true)
	enforcer.EnableAutoBuildRoleLinks(true)
	if err := enforcer.LoadPolicy(); err != nil {
		return nil, err
	}
	if err := seedPolicies(enforcer); err != nil {
		return nil, err
	}
	enforcer.BuildRoleLinks()
	return enforcer, nil
}

func NewService(p Params) Service {
	return &ServiceImpl{
		db:       p.DB,
		log:      p.Log.Named("authorization.service"),
		enforcer: p.Enforcer,
	}
}

func (s *ServiceImpl) Authorize(ctx context.Context, actor string, object string, action string) error {
	actor = strings.TrimSpace(actor)
	if actor == "" {
		return ErrInvalidActor
	}
	object = strings.TrimSpace(object)
	if object == "" {
		return ErrInvalidObject
	}
	action = strings.TrimSpace(action)
	if action == "" {
		return ErrInvalidAction
	}

	subject, roleName, err := s.resolveActor(ctx, actor)
	if err != nil {
		return err
	}

	if err := s.ensureGrouping(subject, roleName); err != nil {
		return err
	}

	allowed, err := s.enforcer.Enforce(subject, object, action)
	if err != nil {
		return err
	}
	if !allowed {
		s.log.Info("authorization denied",
			zap.String("subject", subject),
			zap.String("object", object),
			zap.String("action", action),
		)
		return ErrForbidden
	}
	return nil
}

func (s *ServiceImpl) resolveActor(ctx context.Context, actor string) (string, string, error) {
	if actor == "system" {
		return actor, "role:system", nil
	}
	if strings.HasPrefix(actor, "user:") {
		userIDRaw := strings.TrimPrefix(actor, "user:")
		userID, err := snowflake.ParseString(userIDRaw)
		if err != nil || userID == 0 {
			return "", "", ErrInvalidActor
		}
		role, err := s.roleForUser(ctx, userID)
		if err != nil {
			return "", "", err
		}
		return actor, fmt.Sprintf("role:%s", strings.ToLower(role)), nil
	}
	return "", "", ErrInvalidActor
}

// roleForUser reads the role from the users table on every check, so a
// role change or deactivation takes effect on the next request.
func (s *ServiceImpl) roleForUser(ctx context.Context, userID snowflake.ID) (string, error) {
	var row struct {
		Role   string `gorm:"column:role"`
		Active bool   `gorm:"column:active"`
	}
	if err := s.db.WithContext(ctx).Raw(
		`SELECT role, active FROM users WHERE id = ? LIMIT 1`,
		userID,
	).Scan(&row).Error; err != nil {
		return "", err
	}

	role := strings.TrimSpace(row.Role)
	if role == "" || !row.Active {
		return "", ErrForbidden
	}
	return role, nil
}

func (s *ServiceImpl) ensureGrouping(subject string, roleName string) error {
	existing, err := s.enforcer.GetFilteredGroupingPolicy(0, subject)
	if err != nil {
		return err
	}
	for _, rule := range existing {
		if len(rule) < 2 {
			continue
		}
		if rule[1] != roleName {
			params := make([]interface{}, 0, len(rule))
			for _, value := range rule {
				params = append(params, value)
			}
			_, _ = s.enforcer.RemoveGroupingPolicy(params...)
		}
	}

	has, err := s.enforcer.HasGroupingPolicy(subject, roleName)
	if err != nil {
		return err
	}
	if has {
		return nil
	}
	_, err = s.enforcer.AddGroupingPolicy(subject, roleName)
	return err
}

func seedPolicies(enforcer *casbin.SyncedEnforcer) error {
	viewPolicies := [][]string{
		{ObjectCustomer, ActionCustomerView},
		{ObjectProperty, ActionPropertyView},
		{ObjectAssessment, ActionAssessmentView},
		{ObjectPayment, ActionPaymentView},
		{ObjectAuditLog, ActionAuditLogView},
		{ObjectActivityLog, ActionActivityLogView},
		{ObjectNotification, ActionNotificationView},
		{ObjectWorkflowConfig, ActionWorkflowConfigView},
	}

	policies := [][]string{}
	// Everyone with a role can read; write permissions diverge below.
	for _, role := range []string{"role:viewer", "role:inputter", "role:approver", "role:administrator", "role:system"} {
		for _, pair := range viewPolicies {
			policies = append(policies, []string{role, pair[0], pair[1]})
		}
	}

	inputterWrites := [][]string{
		{ObjectCustomer, ActionCustomerCreate},
		{ObjectCustomer, ActionCustomerUpdate},
		{ObjectCustomer, ActionCustomerSubmit},
		{ObjectCustomer, ActionCustomerDelete},
		{ObjectProperty, ActionPropertyCreate},
		{ObjectProperty, ActionPropertyUpdate},
		{ObjectProperty, ActionPropertySubmit},
		{ObjectProperty, ActionPropertyDelete},
		{ObjectAssessment, ActionAssessmentCreate},
		{ObjectPayment, ActionPaymentApply},
	}
	// Assessments are raised and settled by both sides of the workflow,
	// not only by the inputters who draft records.
	approverWrites := [][]string{
		{ObjectCustomer, ActionCustomerApprove},
		{ObjectCustomer, ActionCustomerReject},
		{ObjectProperty, ActionPropertyApprove},
		{ObjectProperty, ActionPropertyReject},
		{ObjectAssessment, ActionAssessmentCreate},
		{ObjectPayment, ActionPaymentApply},
	}

	for _, pair := range inputterWrites {
		policies = append(policies, []string{"role:inputter", pair[0], pair[1]})
	}
	for _, pair := range approverWrites {
		policies = append(policies, []string{"role:approver", pair[0], pair[1]})
	}

	// Administrators hold both sides of the workflow plus user management.
	for _, pair := range append(append([][]string{}, inputterWrites...), approverWrites...) {
		policies = append(policies, []string{"role:administrator", pair[0], pair[1]})
	}
	policies = append(policies,
		[]string{"role:administrator", ObjectUser, ActionUserView},
		[]string{"role:administrator", ObjectUser, ActionUserManage},
	)

	// Notification read state is writable by every signed-in role.
	for _, role := range []string{"role:viewer", "role:inputter", "role:approver", "role:administrator"} {
		policies = append(policies, []string{role, ObjectNotification, ActionNotificationRead})
	}

	for _, policy := range policies {
		if len(policy) < 3 {
			continue
		}
		if _, err := enforcer.AddPolicy(policy); err != nil {
			return err
		}
	}
	return nil
}

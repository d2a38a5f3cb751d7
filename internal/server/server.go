package server

import (
	"context"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/landworks/cadastre/internal/activity"
	activitydomain "github.com/landworks/cadastre/internal/activity/domain"
	"github.com/landworks/cadastre/internal/assessment"
	assessmentdomain "github.com/landworks/cadastre/internal/assessment/domain"
	"github.com/landworks/cadastre/internal/audit"
	auditdomain "github.com/landworks/cadastre/internal/audit/domain"
	"github.com/landworks/cadastre/internal/authorization"
	"github.com/landworks/cadastre/internal/clock"
	"github.com/landworks/cadastre/internal/config"
	"github.com/landworks/cadastre/internal/customer"
	customerdomain "github.com/landworks/cadastre/internal/customer/domain"
	"github.com/landworks/cadastre/internal/migration"
	"github.com/landworks/cadastre/internal/notification"
	notificationdomain "github.com/landworks/cadastre/internal/notification/domain"
	"github.com/landworks/cadastre/internal/observability"
	obsmiddleware "github.com/landworks/cadastre/internal/observability/logger"
	obsmetrics "github.com/landworks/cadastre/internal/observability/metrics"
	obstracing "github.com/landworks/cadastre/internal/observability/tracing"
	"github.com/landworks/cadastre/internal/property"
	propertydomain "github.com/landworks/cadastre/internal/property/domain"
	"github.com/landworks/cadastre/internal/ratelimit"
	"github.com/landworks/cadastre/internal/user"
	userdomain "github.com/landworks/cadastre/internal/user/domain"
	"github.com/landworks/cadastre/internal/workflow"
	workflowdomain "github.com/landworks/cadastre/internal/workflow/domain"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("http.server",
	config.Module,
	fx.Provide(registerGin),
	authorization.Module,
	audit.Module,
	activity.Module,
	notification.Module,
	user.Module,
	customer.Module,
	property.Module,
	assessment.Module,
	workflow.Module,
	ratelimit.Module,
	migration.Module,
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config) *gin.Engine {
	return NewEngine(obsCfg)
}

func run(lc fx.Lifecycle, r *gin.Engine, cfg config.Config) {
	srv := &http.Server{
		Addr:    ":" + cfg.HTTPPort,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					panic(err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine          *gin.Engine
	cfg             config.Config
	db              *gorm.DB
	log             *zap.Logger
	genID           *snowflake.Node
	clock           clock.Clock
	workflowCfg     *config.WorkflowConfigHolder
	authzSvc        authorization.Service
	workflowSvc     workflowdomain.Service
	customerSvc     customerdomain.Service
	propertySvc     propertydomain.Service
	assessmentSvc   assessmentdomain.Service
	auditSvc        auditdomain.Service
	activitySvc     activitydomain.Service
	notificationSvc notificationdomain.Service
	userSvc         userdomain.Service
	obsMetrics      *obsmetrics.Metrics
	paymentLimiter  *ratelimit.PaymentLimiter
}

type ServerParams struct {
	fx.In

	Gin             *gin.Engine
	Cfg             config.Config
	DB              *gorm.DB
	Log             *zap.Logger
	GenID           *snowflake.Node
	Clock           clock.Clock
	WorkflowCfg     *config.WorkflowConfigHolder
	AuthzSvc        authorization.Service
	WorkflowSvc     workflowdomain.Service
	CustomerSvc     customerdomain.Service
	PropertySvc     propertydomain.Service
	AssessmentSvc   assessmentdomain.Service
	AuditSvc        auditdomain.Service
	ActivitySvc     activitydomain.Service
	NotificationSvc notificationdomain.Service
	UserSvc         userdomain.Service
	ObsMetrics      *obsmetrics.Metrics          `optional:"true"`
	PaymentLimiter  *ratelimit.PaymentLimiter    `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:          p.Gin,
		cfg:             p.Cfg,
		db:              p.DB,
		log:             p.Log.Named("http.server"),
		genID:           p.GenID,
		clock:           p.Clock,
		workflowCfg:     p.WorkflowCfg,
		authzSvc:        p.AuthzSvc,
		workflowSvc:     p.WorkflowSvc,
		customerSvc:     p.CustomerSvc,
		propertySvc:     p.PropertySvc,
		assessmentSvc:   p.AssessmentSvc,
		auditSvc:        p.AuditSvc,
		activitySvc:     p.ActivitySvc,
		notificationSvc: p.NotificationSvc,
		userSvc:         p.UserSvc,
		obsMetrics:      p.ObsMetrics,
		paymentLimiter:  p.PaymentLimiter,
	}

	svc.registerAPIRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/")
	api.Use(s.ActorRequired())

	// -------- Workflow --------
	api.POST("/workflow/:entityType/:id/submit", s.authorizeEntityAction("submit"), s.SubmitEntity)
	api.POST("/workflow/:entityType/:id/approve", s.authorizeEntityAction("approve"), s.ApproveEntity)
	api.POST("/workflow/:entityType/:id/reject", s.authorizeEntityAction("reject"), s.RejectEntity)
	api.DELETE("/workflow/:entityType/:id", s.authorizeEntityAction("delete"), s.DeleteEntity)
	api.GET("/workflow/config", s.authorizeAction(authorization.ObjectWorkflowConfig, authorization.ActionWorkflowConfigView), s.GetWorkflowConfig)

	// -------- Customers --------
	api.POST("/customers", s.authorizeAction(authorization.ObjectCustomer, authorization.ActionCustomerCreate), s.CreateCustomer)
	api.GET("/customers", s.authorizeAction(authorization.ObjectCustomer, authorization.ActionCustomerView), s.ListCustomers)
	api.GET("/customers/:id", s.authorizeAction(authorization.ObjectCustomer, authorization.ActionCustomerView), s.GetCustomerByID)
	api.PATCH("/customers/:id", s.authorizeAction(authorization.ObjectCustomer, authorization.ActionCustomerUpdate), s.UpdateCustomer)

	// -------- Properties --------
	api.POST("/properties", s.authorizeAction(authorization.ObjectProperty, authorization.ActionPropertyCreate), s.CreateProperty)
	api.GET("/properties", s.authorizeAction(authorization.ObjectProperty, authorization.ActionPropertyView), s.ListProperties)
	api.GET("/properties/:id", s.authorizeAction(authorization.ObjectProperty, authorization.ActionPropertyView), s.GetPropertyByID)
	api.PATCH("/properties/:id", s.authorizeAction(authorization.ObjectProperty, authorization.ActionPropertyUpdate), s.UpdateProperty)

	// -------- Tax ledger --------
	api.POST("/tax/assessments", s.authorizeAction(authorization.ObjectAssessment, authorization.ActionAssessmentCreate), s.CreateAssessment)
	api.GET("/tax/assessments", s.authorizeAction(authorization.ObjectAssessment, authorization.ActionAssessmentView), s.ListAssessmentsByProperty)
	api.GET("/tax/assessments/:id", s.authorizeAction(authorization.ObjectAssessment, authorization.ActionAssessmentView), s.GetAssessmentByID)
	api.POST("/tax/assessments/:id/payments", s.authorizeAction(authorization.ObjectPayment, authorization.ActionPaymentApply), s.PaymentRateLimit(), s.ApplyPayment)
	api.GET("/tax/assessments/:id/payments", s.authorizeAction(authorization.ObjectPayment, authorization.ActionPaymentView), s.ListPayments)

	// -------- Logs --------
	api.GET("/audit-logs", s.authorizeAction(authorization.ObjectAuditLog, authorization.ActionAuditLogView), s.ListAuditLogs)
	api.GET("/activity-logs", s.authorizeAction(authorization.ObjectActivityLog, authorization.ActionActivityLogView), s.ListActivityLogs)

	// -------- Notifications --------
	api.GET("/notifications", s.authorizeAction(authorization.ObjectNotification, authorization.ActionNotificationView), s.ListNotifications)
	api.POST("/notifications/:id/read", s.authorizeAction(authorization.ObjectNotification, authorization.ActionNotificationRead), s.MarkNotificationRead)

	// -------- Users --------
	api.POST("/users", s.authorizeAction(authorization.ObjectUser, authorization.ActionUserManage), s.CreateUser)
	api.GET("/users", s.authorizeAction(authorization.ObjectUser, authorization.ActionUserView), s.ListUsers)
	api.GET("/users/:id", s.authorizeAction(authorization.ObjectUser, authorization.ActionUserView), s.GetUserByID)
	api.POST("/users/:id/deactivate", s.authorizeAction(authorization.ObjectUser, authorization.ActionUserManage), s.DeactivateUser)
}

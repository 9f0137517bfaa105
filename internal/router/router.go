// internal/router/router.go
package router

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/javajoker/commission-engine/internal/config"
	"github.com/javajoker/commission-engine/internal/handlers"
	"github.com/javajoker/commission-engine/internal/metrics"
	"github.com/javajoker/commission-engine/internal/middleware"
	"github.com/javajoker/commission-engine/internal/services"
	"github.com/javajoker/commission-engine/internal/utils"
)

const version = "1.0.0"

// Services is the wired service graph shared by the HTTP layer and the scheduler.
type Services struct {
	Commissions   *services.CommissionService
	Adjustments   *services.AdjustmentService
	Analytics     *services.AnalyticsService
	RevenueModels *services.RevenueModelService
	Disputes      *services.DisputeService
	PaymentTerms  *services.PaymentTermsService
	Payouts       *services.PayoutService
	Statements    *services.StatementService
	Notifications *services.NotificationService
	Admin         *services.AdminService
}

// NewServices builds every service over db. cache may be nil when redis is not configured.
func NewServices(db *gorm.DB, cfg *config.Config, cache services.StatsCache, m *metrics.Metrics, uploader services.Uploader) *Services {
	notificationService := services.NewNotificationService(db, cfg)
	adjustmentService := services.NewAdjustmentService(db, cfg, notificationService, cache, m)
	paymentTermsService := services.NewPaymentTermsService(db, cfg)

	return &Services{
		Commissions:   services.NewCommissionService(db, cfg, cache, m),
		Adjustments:   adjustmentService,
		Analytics:     services.NewAnalyticsService(db, cfg, cache, m),
		RevenueModels: services.NewRevenueModelService(db, cfg),
		Disputes:      services.NewDisputeService(db, cfg, adjustmentService, notificationService, m),
		PaymentTerms:  paymentTermsService,
		Payouts:       services.NewPayoutService(db, cfg, paymentTermsService, cache, m),
		Statements:    services.NewStatementService(db, cfg, uploader),
		Notifications: notificationService,
		Admin:         services.NewAdminService(db, cfg),
	}
}

// Initialize builds the gin engine. reg may be nil, in which case /metrics is not served.
func Initialize(db *gorm.DB, cfg *config.Config, svc *Services, m *metrics.Metrics, reg *prometheus.Registry) *gin.Engine {
	// Initialize handlers
	healthHandler := handlers.NewHealthHandler(db, version)
	commissionHandler := handlers.NewCommissionHandler(svc.Commissions)
	adjustmentHandler := handlers.NewAdjustmentHandler(svc.Adjustments)
	analyticsHandler := handlers.NewAnalyticsHandler(svc.Analytics)
	revenueModelHandler := handlers.NewRevenueModelHandler(svc.RevenueModels)
	disputeHandler := handlers.NewDisputeHandler(svc.Disputes)
	paymentTermsHandler := handlers.NewPaymentTermsHandler(svc.PaymentTerms)
	vendorHandler := handlers.NewVendorHandler(svc.Payouts, svc.Statements, svc.PaymentTerms)
	adminHandler := handlers.NewAdminHandler(svc.Admin, svc.Notifications)

	// Set JWT secret
	utils.SetJWTSecret(cfg.JWT.SecretKey)

	r := gin.New()

	// Global middleware
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger())
	r.Use(middleware.Metrics(m))
	r.Use(middleware.CORS(cfg.Server.AllowedOrigins))
	r.Use(middleware.I18nMiddleware(cfg.I18n.DefaultLocale))

	r.GET("/health", healthHandler.Health)
	if reg != nil && cfg.Metrics.Enabled {
		r.GET(cfg.Metrics.Path, gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})))
	}

	bulk := []gin.HandlerFunc{middleware.AdminRequired()}
	export := []gin.HandlerFunc{}
	if cfg.Server.RateLimit {
		bulk = append(bulk, middleware.BulkRateLimit())
		export = append(export, middleware.ExportRateLimit())
	}

	// API v1 routes, all authenticated
	v1 := r.Group("/v1")
	v1.Use(middleware.AuthRequired())
	if cfg.Server.RateLimit {
		v1.Use(middleware.GeneralRateLimit())
	}
	{
		commissions := v1.Group("/commissions")
		{
			commissions.GET("", commissionHandler.ListCommissions)
			commissions.GET("/:id", commissionHandler.GetCommission)
			commissions.POST("", middleware.AdminRequired(), commissionHandler.CreateCommission)
			commissions.POST("/bulk", append(bulk, commissionHandler.BulkCreateCommissions)...)
			commissions.PUT("/bulk", append(bulk, commissionHandler.BulkUpdateCommissions)...)
			commissions.PUT("/:id", middleware.AdminRequired(), commissionHandler.UpdateCommission)
			commissions.DELETE("/:id", middleware.AdminRequired(), commissionHandler.DeleteCommission)
		}

		adjustments := v1.Group("/adjustments")
		adjustments.Use(middleware.OperatorRequired())
		{
			adjustments.GET("", adjustmentHandler.GetAdjustments)
			adjustments.GET("/:id", adjustmentHandler.GetAdjustment)
			adjustments.POST("", middleware.AdminRequired(), adjustmentHandler.CreateAdjustment)
			adjustments.POST("/:id/approve", middleware.AdminRequired(), adjustmentHandler.ApproveAdjustment)
			adjustments.POST("/:id/reject", middleware.AdminRequired(), adjustmentHandler.RejectAdjustment)
		}

		analytics := v1.Group("/analytics")
		{
			analytics.GET("", analyticsHandler.GetAnalytics)
			analytics.GET("/dashboard", middleware.OperatorRequired(), analyticsHandler.GetDashboardStats)
			analytics.GET("/vendors/:vendor_id", analyticsHandler.GetVendorSummary)
			analytics.POST("/rollup", middleware.AdminRequired(), analyticsHandler.RollupDailyAnalytics)
		}

		revenueModels := v1.Group("/revenue-models")
		revenueModels.Use(middleware.OperatorRequired())
		{
			revenueModels.GET("", revenueModelHandler.ListRevenueModels)
			revenueModels.GET("/effective", revenueModelHandler.GetEffectiveModel)
			revenueModels.GET("/:id", revenueModelHandler.GetRevenueModel)
			revenueModels.POST("", middleware.AdminRequired(), revenueModelHandler.CreateRevenueModel)
			revenueModels.POST("/:id/close", middleware.AdminRequired(), revenueModelHandler.CloseRevenueModel)
			revenueModels.POST("/:id/deactivate", middleware.AdminRequired(), revenueModelHandler.DeactivateRevenueModel)
		}

		disputes := v1.Group("/disputes")
		{
			disputes.GET("", disputeHandler.ListDisputes)
			disputes.GET("/:id", disputeHandler.GetDispute)
			disputes.POST("", disputeHandler.CreateDispute)
			disputes.PUT("/:id/assign", middleware.AdminRequired(), disputeHandler.AssignDispute)
			disputes.POST("/:id/review", middleware.AdminRequired(), disputeHandler.StartReview)
			disputes.POST("/:id/escalate", middleware.AdminRequired(), disputeHandler.EscalateDispute)
			disputes.POST("/:id/resolve", middleware.AdminRequired(), disputeHandler.ResolveDispute)
			disputes.POST("/:id/reject", middleware.AdminRequired(), disputeHandler.RejectDispute)
		}

		v1.GET("/payment-terms", paymentTermsHandler.GetPaymentTerms)
		v1.PUT("/payment-terms", middleware.AdminRequired(), paymentTermsHandler.UpsertPaymentTerms)
		v1.GET("/incentives", paymentTermsHandler.ListIncentivePrograms)
		v1.POST("/incentives", middleware.AdminRequired(), paymentTermsHandler.CreateIncentiveProgram)

		vendors := v1.Group("/vendors/:vendor_id")
		{
			vendors.GET("/balance", vendorHandler.GetBalance)
			vendors.GET("/incentives", vendorHandler.EvaluateIncentives)
			vendors.POST("/payouts", middleware.AdminRequired(), vendorHandler.SettlePayout)
			vendors.POST("/statements", append(export, vendorHandler.ExportStatement)...)
		}

		admin := v1.Group("/admin")
		admin.Use(middleware.AdminRequired())
		{
			admin.GET("/audit-logs", adminHandler.GetAuditLogs)
			admin.GET("/notifications", adminHandler.GetNotifications)
			admin.PUT("/notifications/:id/read", adminHandler.MarkNotificationRead)
		}
	}

	return r
}

// internal/router/router.go
package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"
	"gorm.io/gorm"

	"github.com/javajoker/paper-ledger/internal/config"
	"github.com/javajoker/paper-ledger/internal/handlers"
	"github.com/javajoker/paper-ledger/internal/metrics"
	"github.com/javajoker/paper-ledger/internal/middleware"
	"github.com/javajoker/paper-ledger/internal/services"
	"github.com/javajoker/paper-ledger/internal/utils"
)

const version = "1.0.0"

// Options carries what the router needs beyond the services.
type Options struct {
	Metrics  *metrics.Metrics
	Gatherer prometheus.Gatherer
	Limiter  *middleware.RateLimiter
}

func Initialize(db *gorm.DB, cfg *config.Config, svc *services.Services, opts Options) *gin.Engine {
	// Initialize handlers
	paperHandler := handlers.NewPaperHandler(svc.Papers, svc.Citations, svc.Royalties)
	citationHandler := handlers.NewCitationHandler(svc.Citations, svc.Ledger)
	royaltyHandler := handlers.NewRoyaltyHandler(svc.Royalties)
	roleHandler := handlers.NewRoleHandler(svc.Roles)
	adminHandler := handlers.NewAdminHandler(svc)

	// Set JWT secret
	utils.SetJWTSecret(cfg.JWT.SecretKey)

	limiter := opts.Limiter
	if limiter == nil {
		limiter = middleware.NewRateLimiter(rate.Limit(20), 40)
	}

	// Initialize Gin router
	r := gin.New()

	// Global middleware
	r.Use(gin.Recovery())
	r.Use(middleware.I18nMiddleware(cfg.I18n.DefaultLocale))
	r.Use(middleware.RequestLogger(opts.Metrics))
	r.Use(middleware.CORS(cfg.Server.CORSOrigins))
	r.Use(limiter.Middleware())
	r.Use(middleware.AuditLogMiddleware(db))

	// Health check
	r.GET("/health", func(c *gin.Context) {
		status := http.StatusOK
		state := "healthy"
		if sqlDB, err := db.DB(); err != nil || sqlDB.PingContext(c.Request.Context()) != nil {
			status = http.StatusServiceUnavailable
			state = "unhealthy"
		}
		c.JSON(status, gin.H{
			"status":  state,
			"version": version,
		})
	})

	r.NoRoute(func(c *gin.Context) {
		utils.NotFoundResponse(c, "route")
	})

	if opts.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{})))
	}

	// API v1 routes
	v1 := r.Group("/v1")
	{
		// Paper routes
		papers := v1.Group("/papers")
		{
			papers.GET("", paperHandler.ListPapers)
			papers.GET("/stats", paperHandler.GetStats)
			papers.GET("/:id", paperHandler.GetPaper)
			papers.GET("/:id/citations", paperHandler.GetCitations)
			papers.GET("/:id/references", paperHandler.GetReferences)
			papers.GET("/:id/royalties", paperHandler.GetRoyalties)
			papers.GET("/:id/co-authors/:principal", paperHandler.IsCoAuthor)

			// Authenticated routes
			protected := papers.Group("")
			protected.Use(middleware.AuthRequired())
			{
				protected.POST("", paperHandler.RegisterPaper)
				protected.POST("/:id/verify", paperHandler.VerifyPaper)
			}
		}

		// Citation routes
		citations := v1.Group("/citations")
		{
			citations.GET("/:id", citationHandler.GetCitation)

			protected := citations.Group("")
			protected.Use(middleware.AuthRequired())
			{
				protected.POST("", citationHandler.CitePaper)
				protected.POST("/record", citationHandler.RecordCitation)
				protected.POST("/:id/verify", citationHandler.VerifyCitation)
			}
		}

		// Royalty routes
		royalties := v1.Group("/royalties")
		{
			royalties.GET("/fee", royaltyHandler.GetFeeSettings)
			royalties.GET("/researchers/:principal", royaltyHandler.GetPaymentsForResearcher)
			royalties.GET("/:id", royaltyHandler.GetPayment)

			protected := royalties.Group("")
			protected.Use(middleware.AuthRequired())
			{
				protected.POST("", royaltyHandler.PayRoyalty)
				protected.POST("/batch", royaltyHandler.BatchPayRoyalties)
				protected.POST("/withdraw", royaltyHandler.Withdraw)
				protected.GET("/balance", royaltyHandler.GetBalance)
				protected.GET("/withdrawals", royaltyHandler.GetWithdrawals)
			}
		}

		// Role routes
		roles := v1.Group("/roles")
		{
			roles.GET("/:capability", roleHandler.ListHolders)
			roles.GET("/:capability/:principal", roleHandler.HasCapability)

			protected := roles.Group("")
			protected.Use(middleware.AuthRequired())
			{
				protected.POST("/:capability", roleHandler.Grant)
				protected.DELETE("/:capability/:principal", roleHandler.Revoke)
			}
		}

		// Admin routes
		admin := v1.Group("/admin")
		admin.Use(middleware.AuthRequired(), middleware.OwnerAdminRequired(cfg.Ledger.OwnerAdmin))
		{
			admin.GET("/settings", adminHandler.GetSettings)
			admin.PUT("/settings", adminHandler.UpdateSettings)
			admin.GET("/events", adminHandler.GetEvents)
			admin.POST("/reconcile", adminHandler.Reconcile)
			admin.POST("/export", adminHandler.Export)
		}
	}

	return r
}

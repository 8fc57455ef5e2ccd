package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"github.com/ulule/limiter/v3"

	"github.com/pixamint/credit_ledger_app/cmd/docs"
	portssvc "github.com/pixamint/credit_ledger_app/internal/core/ports/services"
	"github.com/pixamint/credit_ledger_app/internal/middleware"
	"github.com/pixamint/credit_ledger_app/internal/platform/config"
)

// RegisterRoutes sets up all application routes, injecting dependencies using interfaces
func RegisterRoutes(
	r *gin.Engine,
	cfg *config.Config,
	services *portssvc.ServiceContainer,
	limiterInstance *limiter.Limiter,
) {
	// Health check and metrics are public
	r.GET("/health", func(c *gin.Context) {
		c.String(200, "OK")
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	setupAPIV1Routes(r, cfg, services, limiterInstance)
	setupSwaggerRoutes(r, cfg)
}

// setupAPIV1Routes configures the /api/v1 group and delegates to specific entity route registrations
func setupAPIV1Routes(
	r *gin.Engine,
	cfg *config.Config,
	services *portssvc.ServiceContainer,
	limiterInstance *limiter.Limiter,
) {
	// Apply AuthMiddleware and rate limiting to the entire v1 group
	v1 := r.Group("/api/v1", middleware.AuthMiddleware(cfg.JWTSecret), middleware.RateLimit(limiterInstance))

	RegisterCreditRoutes(v1, services.Credit, services.Reporting)
}

// RegisterCreditRoutes wires the credit ledger endpoints.
func RegisterCreditRoutes(rg *gin.RouterGroup, creditSvc portssvc.CreditSvcFacade, reportingSvc portssvc.ReportingSvc) {
	creditHandler := NewCreditHandler(creditSvc)
	reportingHandler := NewReportingHandler(reportingSvc)

	credits := rg.Group("/credits")
	{
		credits.GET("", creditHandler.ListCredits)
		credits.GET("/balance", creditHandler.GetBalance)
		credits.POST("/balance/batch", creditHandler.GetBalanceBatch)
		credits.POST("/consume", creditHandler.ConsumeCredits)
		credits.POST("/grant", creditHandler.GrantCredits)
		credits.POST("/revoke", creditHandler.RevokeCredits)
		credits.GET("/summary", reportingHandler.GetUsageSummary)
	}
}

// setupSwaggerRoutes configures the swagger documentation routes
func setupSwaggerRoutes(r *gin.Engine, cfg *config.Config) {
	// Swagger setup
	if cfg.IsProduction {
		//no swagger in prod
		return
	}
	docs.SwaggerInfo.BasePath = "/api/v1"
	swagger := r.Group("/swagger")
	swagger.GET("/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
}

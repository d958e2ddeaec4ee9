package main

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/satudata-api/internal/middleware"
	"github.com/noah-isme/satudata-api/pkg/config"
	"github.com/noah-isme/satudata-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/satudata-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/satudata-api/pkg/middleware/requestid"
)

func newRouter(cfg *config.Config, a *app, logr *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(a.metrics))

	r.GET("/health", a.ops.Health)
	r.GET("/ready", a.ops.Ready)
	r.GET("/metrics", a.ops.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	public := api.Group("/public", middleware.WithResponseMeta(), middleware.PublicRateLimit(a.apiKeys, rateLimitChecker(a)))
	public.GET("/datasets", a.publicCatalog.List)
	public.GET("/datasets/:slug", a.publicCatalog.Get)
	public.POST("/datasets/:slug/views", a.publicCatalog.RecordView)
	public.POST("/datasets/:slug/downloads", a.publicCatalog.RecordDownload)

	secured := api.Group("", middleware.JWT(a.tokens))
	staff := middleware.RequireRoles(middleware.Staff...)
	operators := middleware.RequireRoles(middleware.Operators...)
	audit := func(action, resource string) gin.HandlerFunc {
		return middleware.Audit(a.activity, logr.Named("activity"), action, resource)
	}

	secured.GET("/metrics/summary", operators, a.ops.Summary)

	priority := secured.Group("/priority-datasets", staff)
	priority.GET("", a.priority.List)
	priority.POST("", operators, audit("CREATE", "priority_dataset"), a.priority.Create)
	priority.GET("/audit", a.priority.AuditLog)
	priority.GET("/audit/export", operators, a.priority.ExportAuditLog)
	priority.GET("/:id", a.priority.Get)
	priority.PATCH("/:id", audit("UPDATE", "priority_dataset"), a.priority.Update)
	priority.DELETE("/:id", operators, audit("DELETE", "priority_dataset"), a.priority.Delete)
	priority.GET("/:id/audit", a.priority.AuditLog)
	priority.POST("/:id/assign", operators, audit("ASSIGN", "priority_dataset"), a.priority.Assign)
	priority.POST("/:id/claim", audit("CLAIM", "priority_dataset"), a.priority.Claim)
	priority.POST("/:id/convert", operators, audit("CONVERT", "priority_dataset"), a.priority.Convert)
	priority.POST("/:id/reset", operators, audit("RESET", "priority_dataset"), a.priority.Reset)

	catalog := secured.Group("/catalog", staff)
	catalog.GET("/:id", a.catalog.Get)
	catalog.POST("/:id/submit", audit("SUBMIT", "catalog_entry"), a.catalog.Submit)
	catalog.POST("/:id/review", operators, audit("REVIEW", "catalog_entry"), a.catalog.Review)

	secured.GET("/organizations", a.organizations.List)
	secured.GET("/organizations/:id", a.organizations.Get)
	secured.GET("/data-tables/:id/grid", a.dataTables.Grid)

	return r
}

// rateLimitChecker avoids handing a typed nil to the middleware when limiting is off.
func rateLimitChecker(a *app) middleware.RateLimitChecker {
	if a.rateLimit == nil {
		return nil
	}
	return a.rateLimit
}

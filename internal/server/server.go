package server

import (
	"context"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/docupulse/docupulse/internal/billingwebhook"
	"github.com/docupulse/docupulse/internal/config"
	obslogger "github.com/docupulse/docupulse/internal/observability/logger"
	quotadomain "github.com/docupulse/docupulse/internal/quota/domain"
	"github.com/docupulse/docupulse/internal/ratelimit"
	tenantdomain "github.com/docupulse/docupulse/internal/tenant/domain"
	usagedomain "github.com/docupulse/docupulse/internal/usage/domain"
	"github.com/docupulse/docupulse/internal/workflow"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(NewEngine),
	fx.Provide(NewServer),
	fx.Invoke(func(*Server) {}),
	fx.Invoke(run),
)

func NewEngine(log *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obslogger.GinMiddleware(log))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func run(lc fx.Lifecycle, r *gin.Engine, cfg config.Config, log *zap.Logger) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatal("http server failed", zap.Error(err))
				}
			}()
			log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
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
	engine *gin.Engine
	cfg    config.Config
	genID  *snowflake.Node

	tenantSvc    tenantdomain.Service
	usageSvc     usagedomain.Service
	quotaSvc     quotadomain.Service
	workflowSvc  workflow.Client
	webhookSvc   *billingwebhook.Service
	usageLimiter *ratelimit.UsageIngestLimiter
}

type ServerParams struct {
	fx.In

	Gin   *gin.Engine
	Cfg   config.Config
	GenID *snowflake.Node

	TenantSvc    tenantdomain.Service
	UsageSvc     usagedomain.Service
	QuotaSvc     quotadomain.Service
	WorkflowSvc  workflow.Client
	WebhookSvc   *billingwebhook.Service
	UsageLimiter *ratelimit.UsageIngestLimiter `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine: p.Gin,
		cfg:    p.Cfg,
		genID:  p.GenID,

		tenantSvc:    p.TenantSvc,
		usageSvc:     p.UsageSvc,
		quotaSvc:     p.QuotaSvc,
		workflowSvc:  p.WorkflowSvc,
		webhookSvc:   p.WebhookSvc,
		usageLimiter: p.UsageLimiter,
	}

	svc.registerAPIRoutes()
	svc.registerWebhookRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api")

	api.POST("/tenants", s.CreateTenant)
	api.PATCH("/tenants/:id/credentials", s.UpdateTenantCredentials)

	api.POST("/usage/ingest", s.IngestUsage)
	api.GET("/usage/summary", s.UsageSummary)

	api.GET("/quota/status", s.QuotaStatus)
	api.POST("/quota/pause", s.PauseScenarios)
	api.POST("/quota/resume", s.ResumeScenarios)
	api.POST("/quota/reset", s.AdminResetUsage)

	api.POST("/scenarios/sync", s.SyncScenarios)
}

func (s *Server) registerWebhookRoutes() {
	s.engine.POST("/webhooks/billing", s.BillingWebhook)
}

package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/maxmarketing/backend/docs"
	"github.com/maxmarketing/backend/internal/app/api/handlers"
	mw "github.com/maxmarketing/backend/internal/app/api/middleware"
	"github.com/maxmarketing/backend/internal/app/service/account"
	"github.com/maxmarketing/backend/internal/app/service/checkout"
	"github.com/maxmarketing/backend/internal/app/service/entitlement"
	"github.com/maxmarketing/backend/internal/app/service/generator"
	"github.com/maxmarketing/backend/internal/app/service/history"
	"github.com/maxmarketing/backend/internal/app/service/ingest"
	"github.com/maxmarketing/backend/internal/app/service/ledger"
	cfgpkg "github.com/maxmarketing/backend/pkg/config"
	metrics "github.com/maxmarketing/backend/pkg/metrics"
)

func newEngine() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	// Add request tracing middleware only; request logger & access log are attached per group in registerRoutes
	r.Use(mw.TraceMiddleware())
	return r
}

type routeDeps struct {
	fx.In

	Log       *zap.SugaredLogger
	Cfg       *cfgpkg.Config
	Accounts  *account.Service
	Tokens    *account.TokenIssuer
	Checkout  *checkout.Service
	Resolver  entitlement.Resolver
	Generator *generator.Service
	Histories *history.Service
	Ingestor  ingest.Ingestor
	Scanner   ledger.Scanner
}

func registerRoutes(r *gin.Engine, d routeDeps) {
	log := d.Log

	// Prometheus metrics
	if d.Cfg != nil && d.Cfg.MetricsAddr != "" {
		p := metrics.NewPrometheus(metrics.NewPrometheusOptions{
			ReqCntURLLabelMappingFn: func(c *gin.Context) string {
				if fp := c.FullPath(); fp != "" {
					return fp
				}
				return c.Request.URL.Path
			},
			Logger: log,
		})
		p.SetListenAddress(d.Cfg.MetricsAddr)
		p.Use(r)

		log.Infow("metrics started", "addr", d.Cfg.MetricsAddr)
	}

	// Public group: request logger + access log
	pub := r.Group("/")
	pub.Use(mw.RequestLoggerMiddleware(log), mw.AccessLogMiddleware())
	handlers.RegisterHealthRoutes(pub)
	// Swagger UI
	docs.SwaggerInfo.BasePath = "/"
	pub.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Provider webhooks: signature-verified, never token-authed
	webhooks := r.Group("/webhook")
	webhooks.Use(mw.RequestLoggerMiddleware(log), mw.AccessLogMiddleware())
	handlers.RegisterWebhookRoutes(webhooks, d.Ingestor, log)

	// Public auth endpoints
	authGroup := r.Group("/api/auth")
	authGroup.Use(mw.RequestLoggerMiddleware(log), mw.AccessLogMiddleware())
	handlers.RegisterAuthRoutes(authGroup, d.Accounts)

	// Authenticated endpoints
	api := r.Group("/api")
	api.Use(mw.RequestLoggerMiddleware(log), mw.AccessLogMiddleware(), mw.RequireAuth(d.Tokens))
	api.GET("/me", handlers.ApiMe(d.Accounts))
	handlers.RegisterBillingRoutes(api.Group("/billing"), d.Checkout, d.Resolver)
	handlers.RegisterPrivacyRoutes(api.Group("/privacy"), d.Accounts)

	// Premium endpoints: auth first, then the entitlement gate
	premium := api.Group("/")
	premium.Use(mw.RequirePremium(d.Resolver, log))
	handlers.RegisterGenerateRoutes(premium.Group("/generate"), d.Generator)
	handlers.RegisterHistoryRoutes(premium, d.Histories)

	// Admin listing APIs
	admin := r.Group("/api/v1/admin")
	admin.Use(mw.RequestLoggerMiddleware(log), mw.AccessLogMiddleware(), mw.RequireAuth(d.Tokens))
	handlers.RegisterAdminRoutes(admin, d.Scanner)
}

func runServer(lc fx.Lifecycle, log *zap.SugaredLogger, cfg *cfgpkg.Config, r *gin.Engine) {
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{Addr: addr, Handler: r, ReadHeaderTimeout: 5 * time.Second}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Infow("starting HTTP server", "addr", addr)
			go func() {
				if err := srv.ListenAndServe(); err != nil {
					log.Errorf("server error: %v", err)
					panic(err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Infow("stopping HTTP server")
			shutdownCtx, cancel := context.WithTimeout(ctx, 120*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

var Module = fx.Options(
	fx.Provide(newEngine),
	fx.Invoke(registerRoutes),
	fx.Invoke(runServer),
)

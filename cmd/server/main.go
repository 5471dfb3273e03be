package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/passthekeys/outbound-core/internal/analysis"
	"github.com/passthekeys/outbound-core/internal/broadcast"
	"github.com/passthekeys/outbound-core/internal/cache"
	"github.com/passthekeys/outbound-core/internal/clock"
	"github.com/passthekeys/outbound-core/internal/config"
	"github.com/passthekeys/outbound-core/internal/domain"
	"github.com/passthekeys/outbound-core/internal/handler"
	"github.com/passthekeys/outbound-core/internal/provider"
	"github.com/passthekeys/outbound-core/internal/ratelimit"
	"github.com/passthekeys/outbound-core/internal/repository"
	"github.com/passthekeys/outbound-core/internal/scheduler"
	"github.com/passthekeys/outbound-core/internal/timezone"
	"github.com/passthekeys/outbound-core/internal/trigger"
	"github.com/passthekeys/outbound-core/internal/webhook"
	"github.com/passthekeys/outbound-core/internal/workflow"
	"github.com/passthekeys/outbound-core/pkg/logger"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("info: .env file not found or skipped (expected in production): %v", err)
	}

	if _, err := logger.Init(os.Getenv("LOG_ENV")); err != nil {
		log.Printf("failed to initialize zap logger, falling back to std log: %v", err)
	}

	cfg := config.Load()

	store, err := repository.NewStore()
	if err != nil {
		logger.Base().Fatal("failed to connect to database", zap.Error(err))
	}

	router := buildRouter(cfg, store)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Base().Info("starting server", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Base().Fatal("server failed", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Base().Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Base().Error("graceful shutdown failed", zap.Error(err))
	}
	if err := store.Close(); err != nil {
		logger.Base().Error("failed to close database connection", zap.Error(err))
	}
	logger.Sync()
}

func buildRouter(cfg *config.Config, store *repository.Store) *mux.Router {
	providers := provider.NewRegistry()
	providers.Register(domain.ProviderA, provider.NewProviderAAdapter(cfg.AppBaseURL+"/webhook/provider-a"))
	providers.Register(domain.ProviderB, provider.NewProviderBAdapter(cfg.ProviderBBaseURL, cfg.AppBaseURL+"/webhook/provider-b"))
	providers.Register(domain.ProviderC, provider.NewProviderCAdapter(cfg.ProviderCBaseURL, cfg.AppBaseURL+"/webhook/provider-c"))

	tzOracle := timezone.New(timezone.NewAreaCodeTable(), nil)

	triggerIngress := trigger.New(store, tzOracle, providers, clock.Real{})

	sched := scheduler.New(store, tzOracle, providers, clock.Real{})

	var sink broadcast.EventSink = broadcast.NoopSink{}
	if cfg.Pubsub.ProjectID != "" {
		pubsubSink, err := broadcast.NewPubSubSink(context.Background(), broadcast.PubSubConfig{
			ProjectID: cfg.Pubsub.ProjectID,
			TopicName: cfg.Pubsub.TopicID,
		})
		if err != nil {
			logger.Base().Warn("failed to initialize pubsub event sink, falling back to noop", zap.Error(err))
		} else {
			sink = pubsubSink
		}
	}

	workflowExecutor := workflow.New(store, cfg.ActionsBaseURL, workflow.OAuthEndpoints{
		CRMBClientID:         cfg.HubspotClientID,
		CRMBClientSecret:     cfg.HubspotClientSecret,
		CRMBTokenURL:         cfg.HubspotTokenURL,
		CalendarClientID:     cfg.CalendarClientID,
		CalendarClientSecret: cfg.CalendarClientSecret,
		CalendarTokenURL:     cfg.CalendarTokenURL,
	}, clock.Real{})

	var limiter *ratelimit.Limiter
	if cfg.Redis.Addr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		var err error
		limiter, err = ratelimit.New(redisClient)
		if err != nil {
			logger.Base().Warn("failed to initialize rate limiter, AI analysis will run unthrottled", zap.Error(err))
			limiter = nil
		}
	}
	analysisQueue := analysis.New(store, limiter, cfg.AnthropicAPIKey)

	cachedStore := cache.WrapWebhookStore(store, cache.DefaultAgentCacheTTL)
	webhookIngress := webhook.New(webhookStoreAdapter{Store: store, cached: cachedStore}, providers, sink, workflowExecutor, analysisQueue)

	triggerHandler := handler.NewTriggerHandler(triggerIngress)
	webhookHandler := handler.NewWebhookHandler(webhookIngress, store, providers, cfg.ProviderBWebhookKey)
	cronHandler := handler.NewCronHandler(sched)
	widgetHandler := handler.NewWidgetHandler(store, cfg.JWTSigningKey, cfg.WidgetSessionTTL, cfg.WidgetDefaultColor)
	callsHandler := handler.NewCallsHandler(store, providers)

	hm := handler.NewHandlerManager(triggerHandler, webhookHandler, cronHandler, widgetHandler, callsHandler, cfg.CronSecret)

	router := mux.NewRouter()
	hm.SetupAllRoutes(router)
	return router
}

// webhookStoreAdapter satisfies webhook.Store while routing agent lookups
// through the pull-through cache instead of straight to Postgres; every
// other method passes through to the repository unchanged.
type webhookStoreAdapter struct {
	*repository.Store
	cached webhook.Store
}

func (a webhookStoreAdapter) GetAgentByExternalID(ctx context.Context, p domain.Provider, externalID string) (*domain.Agent, error) {
	return a.cached.GetAgentByExternalID(ctx, p, externalID)
}

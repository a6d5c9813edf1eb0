package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/archdesk/archdesk/internal/action"
	"github.com/archdesk/archdesk/internal/appcontext"
	"github.com/archdesk/archdesk/internal/backend"
	"github.com/archdesk/archdesk/internal/config"
	"github.com/archdesk/archdesk/internal/handler"
	"github.com/archdesk/archdesk/internal/intent"
	"github.com/archdesk/archdesk/internal/lua"
	"github.com/archdesk/archdesk/internal/metrics"
	"github.com/archdesk/archdesk/internal/orchestrator"
	"github.com/archdesk/archdesk/internal/provider"
	"github.com/archdesk/archdesk/internal/records"
	"github.com/archdesk/archdesk/internal/scheduler"
	"github.com/archdesk/archdesk/internal/store"
	"github.com/archdesk/archdesk/internal/tools"
)

// app holds every long-lived component of one process.
type app struct {
	cfg    *config.Config
	logger *zap.Logger

	db         *store.DB
	sessions   *store.SessionStore
	actionLog  *store.ActionLog
	records    *records.Store
	registry   *tools.Registry
	appContext *appcontext.Store
	classifier *intent.Classifier
	lru        *intent.LRUCache
	redis      *redis.Client
	orch       *orchestrator.Orchestrator
	runner     *orchestrator.Runner
	sched      *scheduler.Scheduler

	promRegistry *prometheus.Registry
	metrics      *metrics.Metrics
}

func newApp(cfg *config.Config, logger *zap.Logger) (*app, error) {
	a := &app{cfg: cfg, logger: logger}

	a.promRegistry = prometheus.NewRegistry()
	a.promRegistry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	a.metrics = metrics.New(a.promRegistry)

	db, err := store.Open(store.Options{Driver: cfg.Store.Driver, DataDir: cfg.Store.DataDir, DSN: cfg.Store.DSN})
	if err != nil {
		return nil, err
	}
	a.db = db
	a.sessions = store.NewSessionStore(db, cfg.Orchestrator.MaxHistoryTurns*2)
	a.actionLog = store.NewActionLog(db)
	a.records = records.New(db)
	a.registry = tools.NewDefaultRegistry()
	a.appContext = appcontext.New()

	llm, err := newLLM(cfg, logger)
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	cache, err := a.newCache()
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	a.classifier = intent.NewClassifier(llm, cache,
		intent.WithModel(cfg.LLM.Model),
		intent.WithLogger(logger.Named("intent")),
		intent.WithMetrics(a.metrics),
	)

	dispatcher := backend.NewDispatcher(backend.Deps{
		Records:    a.records,
		AppContext: a.appContext,
		Registry:   a.registry,
		HTTPClient: &http.Client{Timeout: config.Duration(cfg.Web.Timeout)},
		SearchURL:  cfg.Web.SearchURL,
		Logger:     logger.Named("backend"),
	})
	engine := action.NewEngine(a.registry, dispatcher,
		action.WithRecorder(a.actionLog),
		action.WithLogger(logger.Named("action")),
		action.WithMetrics(a.metrics),
	)

	opts := []orchestrator.Option{
		orchestrator.WithLogger(logger.Named("orchestrator")),
		orchestrator.WithMetrics(a.metrics),
	}
	if script := cfg.Orchestrator.PreparerScript; script != "" {
		prep, err := lua.Load(script)
		if err != nil {
			_ = a.Close()
			return nil, fmt.Errorf("preparer script: %w", err)
		}
		opts = append(opts, orchestrator.WithPreparer(prep))
	}

	a.orch = orchestrator.New(
		orchestrator.Config{
			Credential:      cfg.LLM.APIKey,
			Model:           cfg.LLM.Model,
			MaxTokens:       cfg.LLM.MaxTokens,
			MaxHistoryTurns: cfg.Orchestrator.MaxHistoryTurns,
			Rules:           cfg.Orchestrator.Rules,
		},
		orchestrator.Deps{
			LLM:        llm,
			Classifier: a.classifier,
			Selector:   handler.NewSelector(a.registry.Names(), cfg.Orchestrator.Threshold),
			Registry:   a.registry,
			Engine:     engine,
			Context:    a.appContext,
			Saver:      backend.NewMeditationSaver(a.records, a.appContext),
		},
		opts...,
	)
	a.runner = orchestrator.NewRunner(a.orch, a.sessions)

	if err := a.newScheduler(); err != nil {
		_ = a.Close()
		return nil, err
	}
	return a, nil
}

func newLLM(cfg *config.Config, logger *zap.Logger) (provider.Provider, error) {
	p, err := provider.FromConfig(provider.Config{
		BaseURL: cfg.LLM.BaseURL,
		APIKey:  cfg.LLM.APIKey,
		API:     cfg.LLM.API,
		Model:   cfg.LLM.Model,
	})
	if err != nil {
		return nil, err
	}
	var llm provider.Provider = provider.NewRetrying(p, provider.RetryConfig{
		MaxAttempts:    cfg.LLM.Retry.MaxAttempts,
		InitialBackoff: config.Duration(cfg.LLM.Retry.InitialBackoff),
		MaxBackoff:     config.Duration(cfg.LLM.Retry.MaxBackoff),
		Multiplier:     2,
	}, logger.Named("llm"))
	if len(cfg.LLM.Fallbacks) > 0 {
		llm = provider.NewFallback(llm, cfg.LLM.Fallbacks, logger.Named("llm"))
	}
	return llm, nil
}

func (a *app) newCache() (intent.Cache, error) {
	ttl := config.Duration(a.cfg.Cache.TTL)
	if a.cfg.Cache.Backend != "redis" {
		a.lru = intent.NewLRUCache(a.cfg.Cache.Size, ttl)
		return a.lru, nil
	}

	a.redis = redis.NewClient(&redis.Options{
		Addr:     a.cfg.Cache.RedisAddr,
		Password: a.cfg.Cache.RedisPassword,
		DB:       a.cfg.Cache.RedisDB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), config.Duration(a.cfg.Web.Timeout))
	defer cancel()
	if err := a.redis.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis %s: %w", a.cfg.Cache.RedisAddr, err)
	}
	return intent.NewRedisCache(a.redis, a.cfg.Cache.Prefix, ttl, a.logger.Named("cache")), nil
}

func (a *app) newScheduler() error {
	a.sched = scheduler.New(a.logger.Named("scheduler"))
	if err := a.sched.Add(scheduler.Job{
		Name: "prune-sessions",
		Spec: a.cfg.Scheduler.PruneSchedule,
		Task: scheduler.PruneSessions(a.sessions, config.Duration(a.cfg.Scheduler.SessionMaxAge)),
	}); err != nil {
		return err
	}
	// Redis expires entries on its own.
	if a.lru != nil {
		if err := a.sched.Add(scheduler.Job{
			Name: "purge-intent-cache",
			Spec: a.cfg.Scheduler.PurgeSchedule,
			Task: scheduler.PurgeCache(a.lru),
		}); err != nil {
			return err
		}
	}
	return nil
}

// start launches the background services enabled in config. They stop when
// ctx is done.
func (a *app) start(ctx context.Context) {
	if a.cfg.Scheduler.Enabled {
		a.sched.Start()
	}
	if addr := a.cfg.Metrics.Addr; addr != "" {
		go func() {
			if err := metrics.Serve(ctx, addr, a.promRegistry, a.logger); err != nil {
				a.logger.Error("metrics endpoint stopped", zap.Error(err))
			}
		}()
	}
}

func (a *app) Close() error {
	var errs []error
	if a.sched != nil {
		a.sched.Stop()
	}
	if a.redis != nil {
		errs = append(errs, a.redis.Close())
	}
	if a.db != nil {
		errs = append(errs, a.db.Close())
	}
	return errors.Join(errs...)
}

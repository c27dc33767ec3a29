package main

import (
	"alcyxob/wellness-app/internal/activity"
	"alcyxob/wellness-app/internal/api"
	"alcyxob/wellness-app/internal/clock"
	"alcyxob/wellness-app/internal/config"
	"alcyxob/wellness-app/internal/generator"
	"alcyxob/wellness-app/internal/logger"
	"alcyxob/wellness-app/internal/memoryctx"
	"alcyxob/wellness-app/internal/quota"
	"alcyxob/wellness-app/internal/ratelimit"
	"alcyxob/wellness-app/internal/repository"
	"alcyxob/wellness-app/internal/repository/memory"
	"alcyxob/wellness-app/internal/repository/mongo"
	"alcyxob/wellness-app/internal/repository/redis"
	"alcyxob/wellness-app/internal/service"
	"alcyxob/wellness-app/internal/storage"
	"alcyxob/wellness-app/internal/strategy"
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"
)

// stores bundles the repositories selected by the database driver.
type stores struct {
	plans    repository.PlanRepository
	days     repository.DayRepository
	exports  repository.ExportRepository
	activity repository.ActivityStore
	closers  []func()
}

func (s *stores) close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

// @title Wellness Plan API
// @version 1.0
// @description API for generating and following multi-day exercise programs and nutrition challenges.
// @host localhost:8080
// @BasePath /api/v1
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.
func main() {
	// --- Configuration ---
	cfg, cfgErr := config.LoadConfig(".")

	log, err := logger.New(cfg.Log.Mode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "could not build logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	if cfgErr != nil {
		log.Fatal("could not load config", "error", cfgErr)
	}
	log.Info("starting wellness plan server", "address", cfg.Server.Address, "database", cfg.Database.Driver)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Storage Layers ---
	st, err := openStores(ctx, cfg, log)
	if err != nil {
		log.Fatal("could not open stores", "error", err)
	}
	defer st.close()

	var fileStorage storage.FileStorage
	switch {
	case cfg.S3.Enabled:
		fileStorage, err = storage.NewS3Storage(ctx, cfg.S3, log.With("component", "s3"))
		if err != nil {
			log.Fatal("failed to initialize S3 storage", "error", err)
		}
	case cfg.Database.Driver == "memory":
		fileStorage = storage.NewMemoryStorage()
	default:
		log.Warn("object storage disabled, plan exports are unavailable")
	}

	// --- Initialize Services ---
	clk := clock.Real()
	ledger := activity.NewLedger(st.activity, clk, log.With("component", "ledger"))
	limiter := ratelimit.NewLimiter(ledger, ratelimit.LimitsFromConfig(cfg.Limits.Actions), log.With("component", "limiter"))
	fraud := ratelimit.NewFraudDetector(ledger, ratelimit.FraudSettingsFromConfig(cfg.Fraud), log.With("component", "fraud"))
	aggregator := memoryctx.NewAggregator(st.days, clk)

	gen := generator.NewClient(cfg.Generator)
	orchestrator := service.NewOrchestrator(service.OrchestratorDeps{
		Plans:      st.plans,
		Days:       st.days,
		Quota:      quota.NewValidator(st.plans, cfg.Limits.Tiers, clk),
		Limiter:    limiter,
		Fraud:      fraud,
		Ledger:     ledger,
		Memory:     aggregator,
		Strategies: []service.ContentStrategy{strategy.NewExercise(gen), strategy.NewNutrition(gen)},
		Clock:      clk,
		Log:        log.With("component", "orchestrator"),
	}, cfg.Orchestrator)

	dispatcher := service.NewDispatcher(cfg.Orchestrator.MaxConcurrentRuns, cfg.Orchestrator.RunTimeout, log.With("component", "dispatcher"))
	planService := service.NewPlanService(service.PlanServiceDeps{
		Plans:        st.plans,
		Days:         st.days,
		Exports:      st.exports,
		Orchestrator: orchestrator,
		Dispatcher:   dispatcher,
		Limiter:      limiter,
		Ledger:       ledger,
		Memory:       aggregator,
		Storage:      fileStorage,
		Clock:        clk,
		Log:          log.With("component", "plans"),
	})

	// --- Initialize Gin Engine ---
	if cfg.Server.Mode == gin.ReleaseMode {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	api.SetupRoutes(router, cfg.JWT.Secret, planService, log.With("component", "http"))

	server := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// --- Run ---
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("server listening", "address", cfg.Server.Address)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		ledger.RunJanitor(gctx, cfg.Activity.JanitorInterval, cfg.Activity.Retention)
		return nil
	})

	// --- Graceful Shutdown ---
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down server...")

		ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancelShutdown()
		if err := server.Shutdown(ctxShutdown); err != nil {
			return fmt.Errorf("server forced to shutdown: %w", err)
		}

		// Running generations stop at their next day boundary and record a partial state.
		ctxRuns, cancelRuns := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancelRuns()
		if err := dispatcher.Shutdown(ctxRuns); err != nil {
			return fmt.Errorf("generation runs did not stop: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Error("server stopped with error", "error", err)
		return
	}
	log.Info("server exiting")
}

func openStores(ctx context.Context, cfg config.Config, log *logger.Logger) (*stores, error) {
	st := &stores{}

	switch cfg.Database.Driver {
	case "memory":
		log.Warn("using in-memory repositories; data is lost on restart")
		st.plans = memory.NewPlanRepository()
		st.days = memory.NewDayRepository()
		st.exports = memory.NewExportRepository()
		st.activity = memory.NewActivityStore()

	case "mongo", "":
		dbClient, err := mongo.ConnectDB(cfg.Database.URI)
		if err != nil {
			return nil, fmt.Errorf("connect to MongoDB: %w", err)
		}
		st.closers = append(st.closers, func() {
			log.Info("disconnecting MongoDB...")
			if err := mongo.DisconnectDB(dbClient); err != nil {
				log.Error("failed to disconnect MongoDB", "error", err)
			}
		})
		appDB := dbClient.Database(cfg.Database.Name)

		idxCtx, cancel := context.WithTimeout(ctx, time.Minute)
		defer cancel()
		if err := mongo.EnsureIndexes(idxCtx, appDB, cfg.Activity.Retention); err != nil {
			st.close()
			return nil, fmt.Errorf("ensure indexes: %w", err)
		}
		log.Info("database connection established", "name", cfg.Database.Name)

		st.plans = mongo.NewMongoPlanRepository(appDB)
		st.days = mongo.NewMongoDayRepository(appDB)
		st.exports = mongo.NewMongoExportRepository(appDB)
		st.activity = mongo.NewMongoActivityStore(appDB)

	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Database.Driver)
	}

	if cfg.Redis.Enabled {
		rdb, err := redis.Connect(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			st.close()
			return nil, fmt.Errorf("connect to Redis: %w", err)
		}
		st.closers = append(st.closers, func() { _ = rdb.Close() })
		retention := cfg.Activity.Retention
		if retention <= 0 {
			retention = activity.DefaultRetention
		}
		st.activity = redis.NewActivityStore(rdb, cfg.Redis.KeyPrefix, retention)
		log.Info("activity ledger backed by Redis", "addr", cfg.Redis.Addr)
	}
	return st, nil
}

// Package main provides the entry point for the call-congress webhook service
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/amirphl/call-congress/app/handlers"
	"github.com/amirphl/call-congress/app/router"
	"github.com/amirphl/call-congress/app/services"
	businessflow "github.com/amirphl/call-congress/business_flow"
	"github.com/amirphl/call-congress/config"
	"github.com/amirphl/call-congress/models"
	"github.com/amirphl/call-congress/repository"
)

// Application represents the main application structure
type Application struct {
	router    router.Router
	config    *config.ProductionConfig
	stopFuncs []func()
}

func main() {
	cfg, err := config.LoadProductionConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	log.SetOutput(cfg.Logging.LogWriter())
	log.Println("Starting call-congress...")

	app, err := initializeApplication(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}

	app.router.SetupRoutes()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		address := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		if err := app.router.Start(address); err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	<-sigChan
	log.Println("Shutting down gracefully...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := app.router.GetApp().ShutdownWithContext(shutdownCtx); err != nil {
		log.Printf("Error during shutdown: %v", err)
	}

	for _, fn := range app.stopFuncs {
		fn()
	}

	log.Println("Server stopped")
}

// initializeDatabase opens the call log store and applies migrations
func initializeDatabase(cfg config.DatabaseConfig) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case "sqlite":
		dialector = sqlite.Open(cfg.SQLitePath)
	default:
		dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Name, cfg.SSLMode)
		dialector = postgres.Open(dsn)
	}

	gormCfg := &gorm.Config{}
	if cfg.SlowQueryLog {
		gormCfg.Logger = logger.New(log.Default(), logger.Config{
			SlowThreshold:             cfg.SlowQueryTime,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
		})
	}

	db, err := gorm.Open(dialector, gormCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if cfg.AutoMigrate {
		if err := db.AutoMigrate(&models.Call{}, &models.CallStatusPing{}); err != nil {
			return nil, fmt.Errorf("failed to migrate call log: %w", err)
		}
	}

	log.Printf("Database connection established (driver=%s)", cfg.Driver)
	return db, nil
}

// initializeCache returns nil when the override cache is disabled
func initializeCache(cfg config.CacheConfig) (*redis.Client, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	opt.DB = cfg.RedisDB

	rc := redis.NewClient(opt)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rc.Ping(ctx).Err(); err != nil {
		_ = rc.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	log.Printf("Redis connection established (db=%d)", cfg.RedisDB)
	return rc, nil
}

// startCacheHealthMonitor pings Redis periodically until the returned func is called
func startCacheHealthMonitor(parent context.Context, client *redis.Client, interval time.Duration) func() {
	monitorCtx, cancel := context.WithCancel(parent)
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-monitorCtx.Done():
				return
			case <-ticker.C:
				ctx, c := context.WithTimeout(monitorCtx, 3*time.Second)
				if err := client.Ping(ctx).Err(); err != nil {
					log.Printf("Redis healthcheck failed: %v", err)
				}
				c()
			}
		}
	}()
	return cancel
}

// initializeApplication wires repositories, flows and handlers
func initializeApplication(cfg *config.ProductionConfig) (*Application, error) {
	var stopFuncs []func()

	db, err := initializeDatabase(cfg.Database)
	if err != nil {
		return nil, err
	}

	rc, err := initializeCache(cfg.Cache)
	if err != nil {
		return nil, err
	}
	if rc != nil {
		stopFuncs = append(stopFuncs, startCacheHealthMonitor(context.Background(), rc, 30*time.Second))
		stopFuncs = append(stopFuncs, func() { _ = rc.Close() })
	}

	wb, err := repository.LoadWorkbookFile(cfg.Directory.WorkbookPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load directory workbook: %w", err)
	}

	// Repositories
	overrides := repository.NewRedisOverrideCache(rc, cfg.Cache.RedisPrefix, cfg.Cache.LocalTTL)
	campaignRepo := repository.NewCampaignRepository(wb, overrides)
	legislatorRepo := repository.NewLegislatorRepository(wb)
	districtRepo := repository.NewDistrictRepository(wb)
	callRepo := repository.NewCallRepository(db)
	pingRepo := repository.NewCallStatusPingRepository(db)

	log.Printf("Directory loaded: %d campaigns", len(campaignRepo.IDs(context.Background())))

	// Services
	telephony := services.NewTelephonyService(&cfg.Twilio)

	// Flows
	picker := businessflow.NewRandomPicker()
	directory := businessflow.NewCampaignDirectory(campaignRepo, legislatorRepo, districtRepo)
	codec := businessflow.NewCallParamsCodec(directory, validator.New(), picker, cfg.CallFlow.RerollRandomChoice)
	callFlow := businessflow.NewCallFlow(
		codec,
		directory,
		businessflow.NewRepresentativeResolver(legislatorRepo),
		businessflow.NewCallOutcomeRecorder(callRepo, pingRepo),
		telephony,
		picker,
		&cfg.Twilio,
		cfg.App.Debug,
	)
	statsFlow := businessflow.NewStatsFlow(callRepo, cfg.App.SecretKey)

	// Handlers
	callHandler := handlers.NewCallHandler(callFlow, cfg.Server.RequestTimeout)
	statsHandler := handlers.NewStatsHandler(statsFlow, campaignRepo, cfg.App.Version, cfg.Cache.ReportTTL, cfg.Server.RequestTimeout)

	appRouter := router.NewFiberRouter(cfg, callHandler, statsHandler)

	return &Application{
		router:    appRouter,
		config:    cfg,
		stopFuncs: stopFuncs,
	}, nil
}

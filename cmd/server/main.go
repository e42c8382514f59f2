package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm/logger"

	"taskshare/backend/internal/cache"
	"taskshare/backend/internal/config"
	"taskshare/backend/internal/database"
	"taskshare/backend/internal/handlers"
	"taskshare/backend/internal/identity"
	"taskshare/backend/internal/logsink"
	"taskshare/backend/internal/middleware"
	"taskshare/backend/internal/monitoring"
	"taskshare/backend/internal/services"
	"taskshare/backend/internal/store"
	"taskshare/backend/internal/worker"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	logLevel := logger.Info
	if cfg.IsProduction() {
		logLevel = logger.Warn
	}
	pool, err := database.NewDatabasePool(&database.PoolConfig{
		DSN:             cfg.GetDatabaseDSN(),
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.Database.ConnMaxIdleTime,
		LogLevel:        logLevel,
	})
	if err != nil {
		log.Fatalf("connect database: %v", err)
	}
	defer pool.Close()

	if err := store.AutoMigrate(pool.DB); err != nil {
		log.Fatalf("migrate schema: %v", err)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:         cfg.GetRedisAddr(),
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
		DialTimeout:  cfg.Redis.DialTimeout,
		ReadTimeout:  cfg.Redis.ReadTimeout,
		WriteTimeout: cfg.Redis.WriteTimeout,
	})
	defer redisClient.Close()

	sink := logsink.NewEmitter(logsink.Config{
		URL:        cfg.LogSink.URL,
		Service:    cfg.LogSink.Service,
		BufferSize: cfg.LogSink.BufferSize,
		MaxRetries: cfg.LogSink.MaxRetries,
	})
	defer sink.Close()

	var taskStore store.TaskStore = store.NewGormTaskStore(pool.DB)
	if cfg.Cache.Enabled {
		redisCache := cache.NewRedisCacheWithClient(redisClient)
		taskStore = store.NewCachedTaskStore(taskStore, redisCache, cfg.Cache.TTL)
	}

	directory := identity.NewHTTPDirectory(
		cfg.Identity.DirectoryURL,
		cfg.Identity.DirectoryToken,
		cfg.Identity.DirectoryTimeout,
	)
	resolver := identity.NewJWTResolver(cfg.Identity.JWTSecret, cfg.Identity.Issuer)

	taskService := services.NewTaskService(taskStore, directory, sink)
	collabService := services.NewCollaborationService(taskStore, directory, sink)

	jobWorker := worker.New(worker.Config{RedisClient: redisClient})
	jobWorker.RegisterHandler(worker.JobTypeDueReminder, worker.DueReminderHandler(sink))
	jobWorker.Start(cfg.Worker.Concurrency)
	defer jobWorker.Stop()

	scheduler := worker.NewReminderScheduler(worker.ReminderConfig{
		Store:       taskStore,
		Queue:       worker.NewQueue(redisClient),
		RedisClient: redisClient,
		Interval:    cfg.Worker.ReminderInterval,
		Window:      cfg.Worker.ReminderWindow,
	})
	scheduler.Start()
	defer scheduler.Stop()

	checker := monitoring.NewHealthChecker()
	checker.Register("database", func(context.Context) error { return pool.Health() })
	checker.Register("redis", func(ctx context.Context) error {
		return redisClient.Ping(ctx).Err()
	})

	var limiter *middleware.RateLimiter
	if cfg.RateLimit.Enabled {
		limiter = middleware.NewRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.BurstSize)
	}

	router := handlers.NewRouter(handlers.RouterConfig{
		TaskService:          taskService,
		CollaborationService: collabService,
		TokenResolver:        resolver,
		Metrics:              monitoring.NewMetrics(),
		HealthChecker:        checker,
		RateLimiter:          limiter,
	})

	srv := &http.Server{
		Addr:         cfg.GetServerAddr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Printf("listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("shutdown: %v", err)
	}
}

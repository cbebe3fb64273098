// Command fittrack-server serves the FitTrack REST API.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/go-redis/redis_rate/v9"
	"go.uber.org/zap"

	"github.com/and161185/fittrack/internal/config"
	"github.com/and161185/fittrack/internal/events"
	"github.com/and161185/fittrack/internal/limiter"
	"github.com/and161185/fittrack/internal/metrics"
	"github.com/and161185/fittrack/internal/migrate"
	"github.com/and161185/fittrack/internal/repository"
	"github.com/and161185/fittrack/internal/repository/kv"
	"github.com/and161185/fittrack/internal/repository/memory"
	"github.com/and161185/fittrack/internal/repository/postgres"
	"github.com/and161185/fittrack/internal/server/httpserver"
	"github.com/and161185/fittrack/internal/service"
	"github.com/and161185/fittrack/internal/stats"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

const statsCacheTTL = 10 * time.Minute

// backend is the storage selected by configuration.
type backend struct {
	users    repository.UserRepository
	workouts repository.WorkoutRepository
	lim      limiter.Limiter
	rdb      *redis.Client
	health   httpserver.HealthCheck
	close    func()
}

func main() {
	cfg, err := config.Load("fittrack-server", os.Args[1:], os.Getenv)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	logger, _ := zap.NewProduction()
	if cfg.Dev {
		logger, _ = zap.NewDevelopment()
	}
	defer func() { _ = logger.Sync() }()
	logger.Info("starting",
		zap.String("version", version),
		zap.String("buildDate", buildDate),
		zap.String("addr", cfg.Addr),
		zap.String("store", cfg.Store),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	be, err := openBackend(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("open store", zap.Error(err))
	}
	defer be.close()

	reg := metrics.NewRegistry()
	m := metrics.NewManager("fittrack", "server", reg)

	weekStart, _ := cfg.Weekday()
	loc, _ := cfg.Location()
	agg := stats.New(stats.WithWeekStart(weekStart), stats.WithLocation(loc))

	cache := service.NewStatsCache(cfg.StatsCacheMB, statsCacheTTL)
	cache.OnLookup(func(result string) { m.CounterStatsCache.WithLabelValues(result).Inc() })

	var pub events.Publisher = events.Nop{}
	if len(cfg.KafkaBrokers) > 0 {
		pub = events.NewKafka(cfg.KafkaBrokers, cfg.KafkaTopic)
		logger.Info("publishing workout events", zap.Strings("brokers", cfg.KafkaBrokers), zap.String("topic", cfg.KafkaTopic))
	}
	defer func() {
		if err := pub.Close(); err != nil {
			logger.Warn("close publisher", zap.Error(err))
		}
	}()

	authSvc := service.NewAuthService(be.users, []byte(cfg.JWTKey), cfg.AccessTTL, be.lim, logger, service.WithProfileCache(cache))
	workoutSvc := service.NewWorkoutService(be.workouts, be.users,
		service.WithAggregator(agg),
		service.WithStatsCache(cache),
		service.WithPublisher(pub),
		service.WithLogger(logger),
		service.WithEventObserver(func(eventType, outcome string) {
			m.CounterWorkoutEvents.WithLabelValues(eventType, outcome).Inc()
		}),
	)

	opts := []httpserver.Option{
		httpserver.WithMetrics(m, reg),
		httpserver.WithHealthCheck(be.health),
	}
	if be.rdb != nil && cfg.RateLimitPerMin > 0 {
		opts = append(opts, httpserver.WithRateLimiter(redis_rate.NewLimiter(be.rdb), cfg.RateLimitPerMin))
	}
	app := httpserver.New(authSvc, workoutSvc, []byte(cfg.JWTKey), logger, opts...)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           app,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("graceful shutdown", zap.Error(err))
			_ = srv.Close()
		}
	case err := <-errCh:
		if err != nil {
			logger.Error("server error", zap.Error(err))
			be.close()
			os.Exit(1)
		}
	}

	logger.Info("shutdown complete")
}

func limiterConfig(cfg *config.Config) limiter.Config {
	return limiter.Config{
		Window:   cfg.LoginWindow,
		MaxFails: cfg.LoginMaxFails,
		BlockFor: cfg.LoginBlockFor,
	}
}

func openBackend(ctx context.Context, cfg *config.Config, log *zap.Logger) (*backend, error) {
	switch cfg.Store {
	case config.StorePostgres:
		if err := migrate.Up(ctx, cfg.DSN); err != nil {
			return nil, fmt.Errorf("migrate up: %w", err)
		}
		if v, err := migrate.Version(ctx, cfg.DSN); err == nil {
			log.Info("schema ready", zap.Int64("version", v))
		}
		db, err := postgres.New(ctx, cfg.DSN, cfg.DBMaxConns)
		if err != nil {
			return nil, err
		}
		return &backend{
			users:    postgres.NewUserRepo(db),
			workouts: postgres.NewWorkoutRepo(db),
			lim:      limiter.NewPG(db.Pool, limiterConfig(cfg)),
			health:   db.Pool.Ping,
			close:    db.Close,
		}, nil

	case config.StoreKV:
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			_ = rdb.Close()
			return nil, fmt.Errorf("redis ping: %w", err)
		}
		return &backend{
			users:    kv.NewUserRepo(rdb),
			workouts: kv.NewWorkoutRepo(rdb),
			lim:      limiter.NewRedis(rdb, limiterConfig(cfg)),
			rdb:      rdb,
			health:   func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
			close:    func() { _ = rdb.Close() },
		}, nil

	default:
		log.Warn("using in-memory store; data is lost on restart")
		return &backend{
			users:    memory.NewUserRepo(),
			workouts: memory.NewWorkoutRepo(),
			lim:      limiter.NewMemory(limiterConfig(cfg)),
			close:    func() {},
		}, nil
	}
}

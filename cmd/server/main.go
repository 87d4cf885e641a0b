package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/iliyamo/cinema-booking-core/internal/config"
	"github.com/iliyamo/cinema-booking-core/internal/database"
	"github.com/iliyamo/cinema-booking-core/internal/logger"
	"github.com/iliyamo/cinema-booking-core/internal/middleware"
	"github.com/iliyamo/cinema-booking-core/internal/queue"
	"github.com/iliyamo/cinema-booking-core/internal/reservation"
	"github.com/iliyamo/cinema-booking-core/internal/router"
	"github.com/iliyamo/cinema-booking-core/internal/store"
	"github.com/iliyamo/cinema-booking-core/internal/telemetry"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "fatal:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log, err := logger.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracer, err := telemetry.InitTracer(ctx, telemetry.Settings{
		Enabled:     cfg.OTelEnabled,
		Endpoint:    cfg.OTelEndpoint,
		ServiceName: cfg.ServiceName,
		Version:     version,
		Env:         cfg.Env,
	})
	if err != nil {
		return err
	}

	col, closeStore, err := openCollections(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeStore()

	opts := []reservation.Option{reservation.WithLogger(log)}
	qcfg, err := config.LoadQueueConfig()
	if err != nil {
		return fmt.Errorf("queue config: %w", err)
	}
	var pub *queue.Publisher
	if qcfg.Enabled {
		pub = queue.NewPublisher(qcfg, log)
		opts = append(opts, reservation.WithPublisher(pub))
		if qcfg.ConsumerEnabled {
			go func() {
				if err := queue.StartBookingConsumer(ctx, qcfg, log); err != nil && !errors.Is(err, context.Canceled) {
					log.Error("booking consumer stopped", zap.Error(err))
				}
			}()
		}
	}

	core := reservation.New(store.NewGateway(col, log), opts...)
	rep, err := core.Load(ctx)
	if err != nil {
		return fmt.Errorf("load state: %w", err)
	}
	if len(rep.Placeholders) > 0 {
		log.Warn("bookings reference unknown movies", zap.Ints("movie_ids", rep.Placeholders))
	}

	cacheCfg, err := config.LoadCacheConfig()
	if err != nil {
		return fmt.Errorf("cache config: %w", err)
	}
	rlCfg, err := config.LoadRateLimitConfig()
	if err != nil {
		return fmt.Errorf("rate limit config: %w", err)
	}
	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Warn("redis unavailable, response cache and rate limiting disabled")
	} else {
		defer func() { _ = rdb.Close() }()
	}

	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = middleware.HTTPErrorHandler(log)
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(middleware.UserIdentity())
	e.Use(middleware.RequestLogger(log))
	router.RegisterRoutes(e, router.Deps{
		Core:      core,
		Log:       log,
		Redis:     rdb,
		Cache:     cacheCfg,
		RateLimit: rlCfg,
		Version:   version,
	})

	addr := ":" + cfg.Port
	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", zap.String("addr", addr), zap.String("env", cfg.Env), zap.String("store", cfg.StoreDriver))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-ctx.Done():
		log.Info("shutdown signal received")
	}

	sctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	gracefulStop(sctx, log, e, core)
	if pub != nil {
		_ = pub.Close()
	}
	if err := shutdownTracer(sctx); err != nil {
		log.Warn("tracer shutdown", zap.Error(err))
	}
	return nil
}

type httpServer interface {
	Shutdown(ctx context.Context) error
}

type drainer interface {
	Drain(ctx context.Context) error
}

// gracefulStop shuts the HTTP server down before draining the core, so
// every acknowledged mutation has been persisted.
func gracefulStop(ctx context.Context, log *zap.Logger, srv httpServer, core drainer) {
	if err := srv.Shutdown(ctx); err != nil {
		log.Warn("http shutdown", zap.Error(err))
	}
	if err := core.Drain(ctx); err != nil {
		log.Warn("drain incomplete", zap.Error(err))
	}
}

// openCollections connects the configured storage driver.  The returned
// func releases its connections.
func openCollections(ctx context.Context, cfg config.Config, log *zap.Logger) (store.Collections, func(), error) {
	switch cfg.StoreDriver {
	case config.DriverMySQL:
		db, err := database.Open(ctx, cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
		if err != nil {
			return nil, nil, err
		}
		col := store.NewSQLCollections(db)
		if err := col.EnsureSchema(ctx); err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		log.Info("using mysql store", zap.String("host", cfg.DBHost), zap.String("db", cfg.DBName))
		return col, func() { _ = db.Close() }, nil

	case config.DriverPostgres:
		pool, err := database.OpenPostgres(ctx, cfg.PGDSN)
		if err != nil {
			return nil, nil, err
		}
		col := store.NewPostgresCollections(pool)
		if err := col.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, nil, err
		}
		log.Info("using postgres store")
		return col, pool.Close, nil
	}

	wd, err := os.Getwd()
	if err != nil {
		return nil, nil, err
	}
	dir, err := store.ResolveDataDir(cfg.DataRoot, cfg.DataRootMarker, wd)
	if err != nil {
		return nil, nil, err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, nil, fmt.Errorf("create data dir: %w", err)
	}
	log.Info("using file store", zap.String("dir", dir))
	return store.NewFileCollections(dir), func() {}, nil
}

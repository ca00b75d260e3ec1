// Command jobrunner serves a resumable job handler over HTTP.
//
// Jobs are created with POST /jobs and processed in bounded invocations.
// With JOBS_SELF_URL set, continuations are HTTP requests back to this
// service (so any replica behind the URL can pick them up); otherwise they
// run in-process. Every item is logged; embed pkg/handler to supply real
// item semantics.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/jdziat/resumable-jobs/pkg/core"
	"github.com/jdziat/resumable-jobs/pkg/dispatch"
	"github.com/jdziat/resumable-jobs/pkg/handler"
	"github.com/jdziat/resumable-jobs/pkg/lock"
	"github.com/jdziat/resumable-jobs/pkg/schedule"
	"github.com/jdziat/resumable-jobs/pkg/storage"
	"github.com/jdziat/resumable-jobs/pkg/transport"
)

func main() {
	cfg, err := loadConfig()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}
	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.logLevel()}))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("jobrunner stopped", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg Config, log *slog.Logger) error {
	db, err := openDB(cfg)
	if err != nil {
		return err
	}
	store, err := storage.NewGormStorageWithPool(db, cfg.poolOptions()...)
	if err != nil {
		return fmt.Errorf("configure pool: %w", err)
	}
	if err := store.Migrate(ctx); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	locker, closeLocker, err := openLocker(ctx, cfg, db, log)
	if err != nil {
		return err
	}
	defer closeLocker()

	scheduler := schedule.NewCronScheduler(schedule.WithLogger(log))
	scheduler.Start()
	defer func() { <-scheduler.Stop().Done() }()

	var (
		dispatcher core.Dispatcher
		local      *dispatch.LocalDispatcher
		remote     *dispatch.HTTPDispatcher
	)
	if cfg.SelfURL != "" {
		remote = dispatch.NewHTTP(cfg.continuationURL(), cfg.DispatchToken, dispatch.WithLogger(log))
		dispatcher = remote
	} else {
		local = dispatch.NewLocal(log)
		dispatcher = local
	}

	h, err := handler.New(cfg.handlerConfig(), logItem(log),
		handler.WithStore(store),
		handler.WithLocker(locker),
		handler.WithScheduler(scheduler),
		handler.WithDispatcher(dispatcher),
		handler.WithLogger(log),
	)
	if err != nil {
		return err
	}
	if local != nil {
		local.Bind(h)
	}

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           transport.Handler(h, transport.WithToken(cfg.DispatchToken), transport.WithContext(ctx), transport.WithLogger(log)),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("listening", "addr", cfg.ListenAddr, "identifier", cfg.Identifier)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		// Resume whatever a previous process left behind.
		empty, err := h.IsQueueEmpty(gctx)
		if err != nil || empty {
			return err
		}
		return h.Dispatch(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	err = g.Wait()
	// Queued jobs are left for the next start; the startup resume picks them up.
	h.Close()
	if local != nil {
		local.Close()
		local.Wait()
	}
	if remote != nil {
		remote.Wait()
	}
	return err
}

func openDB(cfg Config) (*gorm.DB, error) {
	dialector := sqlite.Open(cfg.DatabaseDSN)
	if cfg.usePostgres() {
		dialector = postgres.Open(cfg.DatabaseDSN)
	}
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return db, nil
}

func openLocker(ctx context.Context, cfg Config, db *gorm.DB, log *slog.Logger) (core.Locker, func(), error) {
	if cfg.RedisAddr != "" {
		client := goredis.NewClient(&goredis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("connect redis: %w", err)
		}
		return lock.NewRedisLocker(client), func() { _ = client.Close() }, nil
	}

	locker := lock.NewGormLocker(db, lock.WithGormLogger(log))
	if err := locker.Migrate(ctx); err != nil {
		return nil, nil, fmt.Errorf("migrate locks: %w", err)
	}
	return locker, func() {}, nil
}

// logItem is the item processor of the standalone service.
func logItem(log *slog.Logger) handler.ItemProcessor {
	return func(ctx context.Context, item any, job *core.Job) error {
		log.InfoContext(ctx, "item processed", "job_id", job.ID, "progress", job.Progress, "item", item)
		return nil
	}
}

package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	"github.com/pelyams/cached_product_service/internal/adapters/cache"
	"github.com/pelyams/cached_product_service/internal/adapters/repository"
	"github.com/pelyams/cached_product_service/internal/cacheaside"
	"github.com/pelyams/cached_product_service/internal/config"
	"github.com/pelyams/cached_product_service/internal/ports"
	"github.com/pelyams/cached_product_service/internal/routing"
	"github.com/pelyams/cached_product_service/internal/service"
)

const connectTimeout = 10 * time.Second

type App struct {
	config  *config.Config
	logger  *slog.Logger
	service ports.ProductService
	router  http.Handler
	server  *http.Server
	closers []func() error
}

// New wires the store, cache and HTTP layers selected by cfg. Everything
// opened here is released by Close, also when New itself fails.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{config: cfg}

	logger, err := a.newLogger()
	if err != nil {
		return nil, err
	}
	a.logger = logger

	repo, err := a.openStore(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}
	productCache, err := a.openCache(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}

	cached := cacheaside.New(repo, productCache,
		cacheaside.WithTTL(time.Duration(cfg.Cache.TTL)),
		cacheaside.WithCacheTimeout(time.Duration(cfg.Cache.Timeout)),
		cacheaside.WithLogger(logger),
	)
	a.service = service.New(cached)

	handler := routing.NewProductHandler(a.service)
	a.router = routing.NewRouter(handler, routing.NewLogger(logger), time.Duration(cfg.Server.RequestTimeout)).SetupRoutes()
	a.server = &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           a.router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
		ErrorLog:          slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}
	return a, nil
}

func (a *App) Handler() http.Handler {
	return a.router
}

// Run serves until ctx is cancelled, then drains in-flight requests within
// the configured shutdown timeout and releases the store and cache.
func (a *App) Run(ctx context.Context) error {
	defer a.Close()

	serveErr := make(chan error, 1)
	go func() {
		a.logger.Info("http server listening", slog.String("addr", a.server.Addr))
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err, ok := <-serveErr:
		if ok {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	a.logger.Info("shutting down", slog.Duration("timeout", time.Duration(a.config.Server.ShutdownTimeout)))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(a.config.Server.ShutdownTimeout))
	defer cancel()
	if err := a.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http server shutdown: %w", err)
	}
	a.logger.Info("http server stopped")
	return nil
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	return errors.Join(errs...)
}

func (a *App) newLogger() (*slog.Logger, error) {
	level, err := a.config.Log.SlogLevel()
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}

	var out io.Writer = os.Stdout
	if a.config.Log.File != "" {
		file, err := os.OpenFile(a.config.Log.File, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		a.closers = append(a.closers, file.Close)
		out = io.MultiWriter(file, os.Stdout)
	}

	opts := &slog.HandlerOptions{Level: level}
	var h slog.Handler = slog.NewTextHandler(out, opts)
	if a.config.Log.Format == "json" {
		h = slog.NewJSONHandler(out, opts)
	}
	return slog.New(h), nil
}

func (a *App) openStore(ctx context.Context) (ports.Repository, error) {
	cfg := a.config.Store
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	switch cfg.Driver {
	case config.StorePostgres:
		db, err := sql.Open("postgres", cfg.PostgresDSN())
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		a.closers = append(a.closers, db.Close)
		if err := db.PingContext(ctx); err != nil {
			return nil, fmt.Errorf("ping postgres at %s:%s: %w", cfg.PostgresHost, cfg.PostgresPort, err)
		}
		repo := repository.NewPostgresRepository(db)
		if cfg.AutoMigrate {
			if err := repo.Migrate(ctx); err != nil {
				return nil, err
			}
		}
		a.logger.Info("store ready", slog.String("driver", cfg.Driver), slog.String("host", cfg.PostgresHost))
		return repo, nil

	case config.StoreSQLite:
		db, err := repository.OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("sqlite handle: %w", err)
		}
		a.closers = append(a.closers, sqlDB.Close)
		repo := repository.NewSQLiteRepository(db)
		if cfg.AutoMigrate {
			if err := repo.Migrate(ctx); err != nil {
				return nil, err
			}
		}
		a.logger.Info("store ready", slog.String("driver", cfg.Driver), slog.String("path", cfg.SQLitePath))
		return repo, nil
	}
	return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
}

func (a *App) openCache(ctx context.Context) (ports.Cache, error) {
	cfg := a.config.Cache
	ttl := time.Duration(cfg.TTL)

	switch cfg.Driver {
	case config.CacheRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr(),
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		redisCache := cache.NewRedisCache(client, ttl)
		a.closers = append(a.closers, redisCache.Close)

		pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
		defer cancel()
		if err := redisCache.Ping(pingCtx); err != nil {
			// the service degrades to store-only reads while redis is down
			a.logger.Warn("redis unreachable at startup", slog.String("addr", cfg.RedisAddr()), slog.Any("err", err))
		} else {
			if err := client.ConfigSet(pingCtx, "maxmemory", "10mb").Err(); err != nil {
				a.logger.Warn("failed to cap redis memory", slog.Any("err", err))
			}
			if err := client.ConfigSet(pingCtx, "maxmemory-policy", "allkeys-lru").Err(); err != nil {
				a.logger.Warn("failed to set redis eviction policy", slog.Any("err", err))
			}
		}
		a.logger.Info("cache ready", slog.String("driver", cfg.Driver), slog.String("addr", cfg.RedisAddr()))
		return redisCache, nil

	case config.CacheMemory:
		memCfg := cache.DefaultMemoryConfig()
		memCfg.Capacity = cfg.MemoryCapacity
		memCfg.DefaultTTL = ttl
		if ttl > memCfg.MaxTTL {
			memCfg.MaxTTL = ttl
		}
		memoryCache, err := cache.NewMemoryCache(memCfg)
		if err != nil {
			return nil, fmt.Errorf("memory cache: %w", err)
		}
		a.logger.Info("cache ready", slog.String("driver", cfg.Driver), slog.Int("capacity", cfg.MemoryCapacity))
		return memoryCache, nil

	case config.CacheBolt:
		boltCache, err := cache.OpenBoltCache(cfg.BoltPath, ttl)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, boltCache.Close)
		a.logger.Info("cache ready", slog.String("driver", cfg.Driver), slog.String("path", cfg.BoltPath))
		return boltCache, nil
	}
	return nil, fmt.Errorf("unknown cache driver %q", cfg.Driver)
}

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/inkroom/inkroom/cmd/inkroom/cli"
	"github.com/inkroom/inkroom/internal/app"
	"github.com/inkroom/inkroom/internal/documents"
	"github.com/inkroom/inkroom/internal/observability"
	"github.com/inkroom/inkroom/internal/platform/cache"
	"github.com/inkroom/inkroom/internal/platform/db"
	"github.com/inkroom/inkroom/internal/users"
)

const usage = `usage: inkroom [command]

commands:
  serve                     run the HTTP API (default)
  migrate                   apply the database schema
  docs <owner-id> [--json]  list the documents owned by a user
`

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	command := "serve"
	if len(args) > 0 {
		command, args = args[0], args[1:]
	}
	if command == "help" || command == "-h" || command == "--help" {
		_, _ = fmt.Fprint(os.Stdout, usage)
		return 0
	}

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		return 1
	}
	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN, cfg.PGMaxConns)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		return 1
	}
	defer pool.Close()

	switch command {
	case "serve":
		if err := serve(ctx, cfg, logger, pool); err != nil {
			logger.Error("serve", slog.Any("error", err))
			return 1
		}
		return 0
	case "migrate":
		if err := db.Migrate(ctx, pool); err != nil {
			logger.Error("migrate", slog.Any("error", err))
			return 1
		}
		logger.Info("schema applied")
		return 0
	case "docs":
		return docs(ctx, logger, pool, args)
	default:
		_, _ = fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", command, usage)
		return 2
	}
}

func docs(ctx context.Context, logger *slog.Logger, pool *pgxpool.Pool, args []string) int {
	fs := flag.NewFlagSet("docs", flag.ContinueOnError)
	jsonOutput := fs.Bool("json", false, "print JSON instead of a table")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		_, _ = fmt.Fprint(os.Stderr, usage)
		return 2
	}
	service := documents.NewService(documents.NewRepository(pool), documents.ServiceConfig{Logger: logger})
	docsCLI, err := cli.NewDocsCLI(service)
	if err != nil {
		logger.Error("docs cli", slog.Any("error", err))
		return 1
	}
	return docsCLI.ListCommand(ctx, cli.DocsOptions{OwnerID: fs.Arg(0), JSONOutput: *jsonOutput})
}

func serve(ctx context.Context, cfg *app.Config, logger *slog.Logger, pool *pgxpool.Pool) error {
	if cfg.PGAutoMigrate {
		if err := db.Migrate(ctx, pool); err != nil {
			return fmt.Errorf("auto migrate: %w", err)
		}
		logger.Info("schema applied")
	}

	var (
		redisClient *redis.Client
		cachePinger app.Pinger
	)
	if cfg.CacheEnabled() {
		client, err := cache.New(ctx, cfg.RedisAddr)
		if err != nil {
			logger.Warn("content cache disabled", slog.Any("error", err))
		} else {
			redisClient = client
			cachePinger = app.PingFunc(func(ctx context.Context) error { return cache.Ping(ctx, client) })
			defer func() {
				if err := client.Close(); err != nil {
					logger.Warn("redis close", slog.Any("error", err))
				}
			}()
		}
	}

	metrics := observability.NewMetrics()
	metrics.Registerer().MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	usersService := users.NewService(users.NewRepository(pool), logger)
	documentsService := documents.NewService(documents.NewRepository(pool), documents.ServiceConfig{
		Cache:    documents.NewContentCache(redisClient, cfg.ContentCacheTTL, logger),
		Logger:   logger,
		Observer: metrics,
	})

	router := app.NewRouter(app.RouterParams{
		Logger:           logger,
		Config:           cfg,
		DB:               pool,
		Cache:            cachePinger,
		UsersHandler:     users.NewHandler(logger, usersService),
		DocumentsHandler: documents.NewHandler(logger, documentsService, cfg.WriteRateLimitPerMin),
		Metrics:          metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown: %w", err)
		}
		return nil
	})
	return g.Wait()
}

package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/danielhkuo/livepoll/auth"
	"github.com/danielhkuo/livepoll/cliparse"
	"github.com/danielhkuo/livepoll/db"
	"github.com/danielhkuo/livepoll/feed"
	"github.com/danielhkuo/livepoll/router"
	"github.com/danielhkuo/livepoll/service"
	"github.com/danielhkuo/livepoll/store"
	"github.com/danielhkuo/livepoll/telemetry"
)

const shutdownTimeout = 15 * time.Second

func main() {
	if err := run(); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// Parse configuration
	cliparse.LoadDotEnv()
	cfg, err := cliparse.ParseFlags(os.Args[1:])
	if err != nil {
		return err
	}

	setupLogging(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Setup(ctx, cfg.OTelEndpoint)
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			slog.Warn("tracing shutdown failed", "error", err)
		}
	}()

	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()
	slog.Info("Store ready", "type", cfg.DatabaseType)

	changes, err := feed.New(ctx, feed.Options{
		Backend:  cfg.FeedBackend,
		RedisURL: cfg.RedisURL,
		NATSURL:  cfg.NATSURL,
	})
	if err != nil {
		return err
	}
	defer changes.Close()
	slog.Info("Change feed ready", "backend", cfg.FeedBackend)

	provider := auth.NewProvider(cfg.TokenSecret, cfg.TokenTTL, st)
	svc := service.New(st, changes, service.Options{RequireSignInToVote: cfg.RequireSignInToVote})

	// Create router
	rt := router.NewRouter(svc, provider, cfg)

	// Create server
	server := &http.Server{
		Handler:           rt,
		Addr:              ":" + strconv.Itoa(cfg.Port),
		ReadHeaderTimeout: 10 * time.Second,
	}
	// Hijacked WebSocket connections are not closed by Shutdown
	server.RegisterOnShutdown(rt.Shutdown)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("Listening", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("Shutting down")
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(sctx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	slog.Info("Server closed")
	return nil
}

func setupLogging(cfg cliparse.Config) {
	opts := &slog.HandlerOptions{Level: cfg.SlogLevel()}

	var handler slog.Handler
	if strings.EqualFold(cfg.LogFormat, "json") {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
}

func openStore(cfg cliparse.Config) (store.Store, error) {
	if strings.EqualFold(cfg.DatabaseType, "memory") {
		return store.NewMemoryStore(), nil
	}

	dialect, err := db.ParseDialect(cfg.DatabaseType)
	if err != nil {
		return nil, err
	}
	sqlStore, err := store.OpenSQL(dialect, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	return sqlStore, nil
}

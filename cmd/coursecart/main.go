package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nikolayk812/coursecart/internal/api"
	"github.com/nikolayk812/coursecart/internal/cart"
	"github.com/nikolayk812/coursecart/internal/catalog"
	"github.com/nikolayk812/coursecart/internal/checkout"
	"github.com/nikolayk812/coursecart/internal/config"
	"github.com/nikolayk812/coursecart/internal/logger"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", os.Getenv("COURSECART_CONFIG"), "path to YAML config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "coursecart: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("config.Load: %w", err)
	}

	log, err := logger.New(cfg.Log.Level)
	if err != nil {
		return fmt.Errorf("logger.New: %w", err)
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	storage, closeStorage, err := newStorage(ctx, cfg.Storage, log)
	if err != nil {
		return fmt.Errorf("newStorage: %w", err)
	}
	defer closeStorage()

	store := cart.New(storage,
		cart.WithLogger(log.Named("cart")),
		cart.WithCurrency(cfg.Cart.Unit()),
		cart.WithWriteTimeout(cfg.Storage.WriteTimeout))

	unsubscribe := store.Subscribe(func(snap cart.Snapshot) {
		log.Debug("cart changed",
			zap.Int("items", len(snap.Entries)),
			zap.String("total", snap.Total.Display()))
	})
	defer unsubscribe()

	// hydration runs in the background; the API answers 503 on mutations until it completes
	go store.Initialize(ctx)

	courses, err := catalog.NewClient(cfg.Catalog.URL,
		catalog.WithHTTPClient(&http.Client{Timeout: cfg.Catalog.Timeout}),
		catalog.WithRevalidate(cfg.Catalog.Revalidate),
		catalog.WithPageSize(cfg.Catalog.PageSize),
		catalog.WithLogger(log.Named("catalog")))
	if err != nil {
		return fmt.Errorf("catalog.NewClient: %w", err)
	}

	policy, err := checkout.ParseEmailPolicy(cfg.Checkout.EmailPolicy)
	if err != nil {
		return fmt.Errorf("checkout.ParseEmailPolicy: %w", err)
	}
	validator := checkout.NewValidator(checkout.WithEmailPolicy(policy))

	handler := api.NewHandler(store, courses, validator, log.Named("api"))

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      api.NewRouter(handler, cfg.Server.RequestTimeout),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.Server.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("server starting",
			zap.String("addr", cfg.Server.Addr),
			zap.String("storage", cfg.Storage.Backend))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("srv.ListenAndServe: %w", err)
		}
	case <-ctx.Done():
	}

	log.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}

	if err := store.Close(shutdownCtx); err != nil {
		log.Error("pending cart writes were not flushed", zap.Error(err))
	}

	log.Info("server exited")

	return nil
}

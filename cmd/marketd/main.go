package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"nftmarket/config"
	"nftmarket/core/genesis"
	"nftmarket/core/ledger"
	"nftmarket/gateway/middleware"
	"nftmarket/gateway/routes"
	"nftmarket/indexer"
	"nftmarket/native/market"
	"nftmarket/native/metadata"
	"nftmarket/native/token"
	"nftmarket/observability"
	"nftmarket/observability/logging"
	telemetry "nftmarket/observability/otel"
	"nftmarket/storage"
)

const serviceName = "marketd"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := run(ctx, os.Args[1:], os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "marketd: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stderr io.Writer) error {
	fs := flag.NewFlagSet(serviceName, flag.ContinueOnError)
	fs.SetOutput(stderr)
	cfgPath := fs.String("config", "./marketd.toml", "path to the daemon configuration")
	genesisPath := fs.String("genesis", "", "override the genesis file from the configuration")
	listen := fs.String("listen", "", "override the listen address from the configuration")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		return err
	}
	if strings.TrimSpace(*genesisPath) != "" {
		cfg.GenesisFile = *genesisPath
	}
	if strings.TrimSpace(*listen) != "" {
		cfg.ListenAddress = *listen
	}

	logger, logCloser := logging.Setup(logging.Config{
		Service:    serviceName,
		Env:        cfg.Environment,
		Level:      cfg.Log.Level,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
	})
	defer logCloser.Close()

	shutdownTelemetry, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName: serviceName,
		Environment: cfg.Environment,
		Endpoint:    cfg.Telemetry.Endpoint,
		Insecure:    cfg.Telemetry.Insecure,
		Headers:     telemetry.ParseHeaders(cfg.Telemetry.Headers),
		Metrics:     cfg.Telemetry.Metrics,
		Traces:      cfg.Telemetry.Traces,
	})
	if err != nil {
		return fmt.Errorf("initialise telemetry: %w", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTelemetry(flushCtx); err != nil {
			logger.Warn("telemetry shutdown failed", slog.Any("error", err))
		}
	}()

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	db, err := storage.NewLevelDB(filepath.Join(cfg.DataDir, "ledger"))
	if err != nil {
		return fmt.Errorf("open ledger database: %w", err)
	}
	defer db.Close()

	l, err := ledger.New(db, logger)
	if err != nil {
		return err
	}
	tokens := token.NewEngine()
	tokens.SetState(l.State())
	registry := metadata.NewRegistry(tokens)
	registry.SetState(l.State())
	engine, err := market.NewEngine(tokens, registry)
	if err != nil {
		return err
	}
	engine.SetState(l.State())
	if err := token.RegisterHandlers(l, tokens); err != nil {
		return err
	}
	if err := market.RegisterHandlers(l, engine); err != nil {
		return err
	}

	metrics := observability.Market()
	l.Subscribe(metrics)
	l.SetObserver(metrics)

	var index routes.ListingIndex
	if strings.TrimSpace(cfg.IndexDSN) != "" {
		indexDB, err := indexer.Open(cfg.IndexDSN)
		if err != nil {
			return err
		}
		idx := indexer.New(indexDB, logger)
		l.Subscribe(idx)
		index = idx
	} else {
		logger.Info("listing index disabled")
	}

	if cfg.GenesisFile != "" {
		if err := applyGenesis(ctx, l, tokens, cfg.GenesisFile, logger); err != nil {
			return err
		}
	}

	limiter := middleware.NewRateLimiter(map[string]middleware.RateLimit{
		routes.RateLimitSubmit: {RequestsPerSecond: cfg.RateLimit.RequestsPerSecond, Burst: cfg.RateLimit.Burst},
		routes.RateLimitRead:   {RequestsPerSecond: cfg.RateLimit.RequestsPerSecond * 4, Burst: cfg.RateLimit.Burst * 4},
	}, logger)
	router, err := routes.New(routes.Config{
		Ledger:        l,
		Market:        engine,
		Tokens:        tokens,
		Metadata:      registry,
		Index:         index,
		RateLimiter:   limiter,
		Observability: middleware.NewObservability(middleware.ObservabilityConfig{ServiceName: serviceName, LogRequests: true}, logger),
		MaxBodyBytes:  cfg.HTTP.MaxBodyBytes,
		Logger:        logger,
	})
	if err != nil {
		return fmt.Errorf("configure routes: %w", err)
	}
	handler := router
	if cfg.Telemetry.Traces {
		handler = otelhttp.NewHandler(router, serviceName)
	}

	server := &http.Server{
		Addr:              cfg.ListenAddress,
		Handler:           handler,
		ReadHeaderTimeout: cfg.HTTP.ReadHeaderTimeoutDuration(),
		ReadTimeout:       cfg.HTTP.ReadTimeoutDuration(),
		WriteTimeout:      cfg.HTTP.WriteTimeoutDuration(),
		IdleTimeout:       cfg.HTTP.IdleTimeoutDuration(),
	}
	listener, err := net.Listen("tcp", cfg.ListenAddress)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}

	go sweepLimiter(ctx, limiter)

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("marketd listening", slog.String("address", listener.Addr().String()), slog.Uint64("sequence", l.Sequence()))
		serveErr <- server.Serve(listener)
	}()

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("marketd shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeoutDuration())
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("graceful shutdown failed", slog.Any("error", err))
	}
	return nil
}

// applyGenesis seeds an empty ledger. A ledger that already holds a genesis
// is left untouched.
func applyGenesis(ctx context.Context, l *ledger.Ledger, tokens *token.Engine, path string, logger *slog.Logger) error {
	spec, err := genesis.Load(path)
	if err != nil {
		return err
	}
	resolved, err := genesis.Apply(ctx, l, tokens, spec)
	if errors.Is(err, ledger.ErrGenesisApplied) {
		logger.Info("genesis already applied", slog.String("file", path))
		return nil
	}
	if err != nil {
		return fmt.Errorf("apply genesis: %w", err)
	}
	logger.Info("genesis applied",
		slog.String("file", path),
		slog.Int("mints", len(resolved.Mints)),
		slog.Int("accounts", len(resolved.Accounts)))
	return nil
}

func sweepLimiter(ctx context.Context, limiter *middleware.RateLimiter) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			limiter.Sweep()
		}
	}
}

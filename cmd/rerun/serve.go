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

	"github.com/aretw0/rerun"
	"github.com/aretw0/rerun/internal/config"
	"github.com/aretw0/rerun/internal/demo"
	"github.com/aretw0/rerun/internal/presentation/tui"
	"github.com/aretw0/rerun/pkg/adapters/fswatch"
	rerunhttp "github.com/aretw0/rerun/pkg/adapters/http"
	"github.com/aretw0/rerun/pkg/adapters/redis"
	"github.com/aretw0/rerun/pkg/observability"
	"github.com/aretw0/rerun/pkg/persistence/middleware"
	"github.com/aretw0/rerun/pkg/ports"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the demo app over HTTP",
	Long: `Starts the HTTP server: session runs, widget updates, SSE and WebSocket streams,
media and Prometheus metrics. Redis is used for the cache and the session lock when configured.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("addr", "a", "", "Address to listen on (overrides server.addr)")
	serveCmd.Flags().Bool("dev", false, "Treat every client as a developer")
	serveCmd.Flags().StringSlice("watch", nil, "Directories to watch for script changes")
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := setup(cmd)
	if err != nil {
		return err
	}
	if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
		cfg.Server.Addr = addr
	}
	if dev, _ := cmd.Flags().GetBool("dev"); dev {
		cfg.Server.DevMode = true
	}
	if watch, _ := cmd.Flags().GetStringSlice("watch"); len(watch) > 0 {
		cfg.Watch.Paths = watch
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	streams := rerunhttp.NewStreamManager(logger)

	app, err := newApp(ctx, cfg, logger, streams, reg)
	if err != nil {
		return err
	}

	handlerOpts := []rerunhttp.Option{
		rerunhttp.WithLogger(logger),
		rerunhttp.WithDevMode(cfg.Server.DevMode),
	}
	if cfg.Server.Metrics {
		handlerOpts = append(handlerOpts, rerunhttp.WithMetrics(reg))
	}
	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           rerunhttp.NewHandler(app, demo.Script, streams, handlerOpts...),
		ReadHeaderTimeout: 10 * time.Second,
	}

	tui.PrintBanner(cmd.OutOrStdout(), rerun.Version)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting rerun server", "addr", srv.Addr, "dev_mode", cfg.Server.DevMode)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down", "timeout", cfg.Server.ShutdownTimeout)
		sctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(sctx); err != nil {
			logger.Warn("Graceful shutdown did not complete", "err", err)
			return srv.Close()
		}
		return nil
	})
	if len(cfg.Watch.Paths) > 0 {
		g.Go(func() error {
			reloader := fswatch.New(cfg.Watch.Paths,
				fswatch.WithDependencyFiles(cfg.Watch.DependencyFiles...),
				fswatch.WithDebounce(cfg.Watch.Debounce),
				fswatch.WithLogger(logger),
			)
			return app.WatchReloads(gctx, reloader)
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("rerun server stopped")
	return nil
}

// newApp wires the App from configuration: metrics and log hooks always, Redis when configured.
func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger, streams *rerunhttp.StreamManager, reg prometheus.Registerer) (*rerun.App, error) {
	metrics := observability.NewMetrics(reg)
	opts := []rerun.Option{
		rerun.WithTransport(streams),
		rerun.WithLogger(logger),
		rerun.WithLifecycleHooks(observability.Chain(metrics.Hooks(), observability.LogHooks(logger))),
		rerun.WithDevMode(cfg.Server.DevMode),
		rerun.WithHeartbeat(cfg.Engine.Heartbeat),
		rerun.WithMaxReruns(cfg.Engine.MaxReruns),
	}

	if cfg.Redis.Enabled() {
		rc := redis.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB,
			redis.WithPrefix(cfg.Redis.Prefix),
			redis.WithTTL(cfg.Redis.TTL),
		)
		if err := rc.Client().Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("redis at %s is unreachable: %w", cfg.Redis.Addr, err)
		}
		cache, err := protect(rc, cfg.Redis)
		if err != nil {
			return nil, err
		}
		logger.Info("Using Redis cache and session lock", "addr", cfg.Redis.Addr, "prefix", cfg.Redis.Prefix,
			"encrypted", cfg.Redis.EncryptionKey != "", "masked_patterns", len(cfg.Redis.MaskPatterns))
		opts = append(opts,
			rerun.WithCache(cache),
			rerun.WithLocker(redis.NewLocker(rc.Client(), cfg.Redis.Prefix)),
		)
	}

	return rerun.New(opts...)
}

// protect masks, then encrypts, values on their way to the shared cache.
func protect(c ports.Cache, cfg config.RedisConfig) (ports.Cache, error) {
	var mws []middleware.Middleware
	if len(cfg.MaskPatterns) > 0 {
		pii, err := middleware.NewPIIMiddleware(cfg.MaskPatterns)
		if err != nil {
			return nil, err
		}
		mws = append(mws, pii)
	}
	active, fallback, err := cfg.Keys()
	if err != nil {
		return nil, err
	}
	if active != nil {
		enc, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: active, FallbackKeys: fallback})
		if err != nil {
			return nil, err
		}
		mws = append(mws, enc)
	}
	return middleware.Wrap(c, mws...), nil
}

package cli

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

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/vnkhanh/vocasync/config"
	"github.com/vnkhanh/vocasync/metrics"
	"github.com/vnkhanh/vocasync/routes"
	"github.com/vnkhanh/vocasync/services"
	"github.com/vnkhanh/vocasync/store"
	"github.com/vnkhanh/vocasync/ws"
)

const shutdownTimeout = 15 * time.Second

type ServeOptions struct {
	*RootOptions
	Addr string
}

func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the sync HTTP server",
		Long: `Run the sync HTTP server.

Configuration comes from the environment (and .env): STORE_DRIVER selects
postgres, sqlite or pebble, AUTH_MODE selects session tokens or Google ID
tokens. The server stops gracefully on SIGINT/SIGTERM.

Example:
  STORE_DRIVER=sqlite JWT_SECRET=dev vocasync serve --addr :8080`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Addr, "addr", "", "listen address (default :$PORT)")
	return cmd
}

func runServe(opts *ServeOptions, cmd *cobra.Command) error {
	cfg, err := opts.loadConfig()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, stop := signal.NotifyContext(parentCtx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := config.OpenStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			slog.Error("error closing store", "error", closeErr)
		}
	}()

	identity, err := config.NewIdentity(cfg)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	extra := []prometheus.Collector{
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	}
	if ps, ok := st.(*store.PebbleStore); ok {
		extra = append(extra, ps.Collector())
	}
	if err := metrics.Register(reg, extra...); err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}

	hub := ws.NewHub(slog.Default())
	defer hub.Close()

	syncSvc := services.NewSyncService(st,
		services.WithNotifier(hub),
		services.WithStoreTimeout(cfg.StoreTimeout),
		services.WithLogger(slog.Default()),
	)

	if cfg.LogLevel > slog.LevelDebug {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	routes.SetupRouter(r, routes.Deps{
		Store:          st,
		Sync:           syncSvc,
		Auth:           identity.Auth,
		Resolver:       identity.Resolver,
		Hub:            hub,
		Gatherer:       reg,
		Logger:         slog.Default(),
		AllowedOrigins: cfg.AllowedOrigins,
	})

	addr := opts.Addr
	if addr == "" {
		addr = ":" + cfg.Port
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server listening", "addr", addr, "store", cfg.StoreDriver, "auth", cfg.AuthMode)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
		slog.Info("received signal, shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	slog.Info("server stopped gracefully")
	return nil
}

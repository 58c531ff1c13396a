package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/goliatone/go-treads/internal/metrics"
	"github.com/goliatone/go-treads/internal/server"
	"github.com/goliatone/go-treads/pkg/resolver"
)

const shutdownTimeout = 10 * time.Second

func newServeCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the render API over HTTP",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}
			logger, err := a.logger(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			collectors := metrics.New(nil)
			rt, err := buildRuntime(cfg, logger, true, resolver.WithObserver(collectors))
			if err != nil {
				return err
			}

			if cfg.Log.Level != "debug" {
				gin.SetMode(gin.ReleaseMode)
			}
			srv, err := server.New(server.Deps{
				Resolver: rt.resolver,
				Invoker:  rt.invoker,
				UI:       rt.lookup,
				Catalog:  rt.catalog,
			},
				server.WithLogger(logger),
				server.WithMetrics(collectors),
				server.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout),
			)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, srv.HTTPServer(cfg.Server.Address), logger)
		},
	}
	cmd.Flags().String("addr", "", "listen address")
	_ = a.v.BindPFlag("server.address", cmd.Flags().Lookup("addr"))
	return cmd
}

// serve runs httpServer until ctx ends, then shuts it down gracefully.
func serve(ctx context.Context, httpServer *http.Server, logger *zap.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("address", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("cli: listen: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("cli: shutdown: %w", err)
	}
	return nil
}

package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/exp/slog"

	"github.com/zitadel/ciba/internal/config"
)

func newServeCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the provider and the expiration sweeper",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			logger, err := newLogger(cmd.ErrOrStderr(), cfg.Server.LogLevel, cfg.Server.LogFormat)
			if err != nil {
				return err
			}
			listener, err := net.Listen("tcp", cfg.Server.Addr)
			if err != nil {
				return err
			}
			return serve(cmd.Context(), listener, cfg, logger)
		},
	}
}

// serve runs until ctx is done, then drains the server
// and waits for the sweeper to stop.
func serve(ctx context.Context, listener net.Listener, cfg *config.Config, logger *slog.Logger) error {
	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		listener.Close()
		return err
	}
	defer a.Close()

	sweepCtx, stopSweeper := context.WithCancel(ctx)
	defer stopSweeper()
	a.provider.Start(sweepCtx)

	server := &http.Server{
		Handler:           a.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errs := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", listener.Addr().String())
		errs <- server.Serve(listener)
	}()

	select {
	case err = <-errs:
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		err = server.Shutdown(shutdownCtx)
	}
	stopSweeper()
	<-a.provider.Sweeper().Done()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

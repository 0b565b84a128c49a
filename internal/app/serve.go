package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// ListenAndServe runs the HTTP API until ctx is cancelled, then shuts down gracefully.
func (a *App) ListenAndServe(ctx context.Context) error {
	hc := a.Config.HTTP
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", hc.Port),
		Handler:      a.Server().Handler(),
		ReadTimeout:  time.Duration(hc.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(hc.WriteTimeoutSec) * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("Starting HTTP server", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}
	a.logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(hc.ShutdownSec)*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	a.logger.Info("Server stopped gracefully")
	return nil
}

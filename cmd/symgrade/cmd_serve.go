package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/njchilds90/symgrade"
	"github.com/njchilds90/symgrade/internal/server"
)

var (
	servePort int

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Serve the grader over HTTP",
		RunE:  runServe,
	}
)

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", getEnvInt("SYMGRADE_PORT", 8080), "Port to listen on")
}

func runServe(cmd *cobra.Command, args []string) error {
	gin.SetMode(getEnvString("GIN_MODE", gin.ReleaseMode))
	logger := slog.Default()
	handlers := server.NewHandlers(symgrade.New(symgrade.WithLogger(logger)), logger)

	addr := fmt.Sprintf(":%d", servePort)
	srv := &http.Server{
		Addr:              addr,
		Handler:           server.NewRouter(handlers, logger),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("symgrade listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("Shutting down symgrade server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

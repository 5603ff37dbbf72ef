package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"taskflow/internal/recordstore/sqlstore"
	"taskflow/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the local database as a record store over HTTP",
	Long: `Serve the local database as a record store over HTTP. Other TaskFlow
instances reach it by setting TASKFLOW_STORE_URL. When TASKFLOW_PUBLIC_KEY is
set, requests must carry a bearer token signed with it.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	store, err := sqlstore.Open(cfg.DatabaseURL, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	srv := server.New(store, server.Options{
		ProjectID: cfg.ProjectID,
		Secret:    cfg.PublicKey,
	}, logger)

	if err := srv.Run(ctx, cfg.HTTPAddr); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logger.Info("shutdown complete")
	return nil
}

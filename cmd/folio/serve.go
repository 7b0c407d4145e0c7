package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	folionet "github.com/sawpanic/folio/internal/interfaces/http"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the analysis HTTP server",
		Long:  "Serves the analysis API with /health and Prometheus /metrics endpoints.",
		RunE:  runServe,
	}
	cmd.Flags().String("host", "", "Override configured listen host")
	cmd.Flags().Int("port", 0, "Override configured listen port")
	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	serverCfg := folionet.DefaultServerConfig()
	if cfg.Server.Host != "" {
		serverCfg.Host = cfg.Server.Host
	}
	if cfg.Server.Port != 0 {
		serverCfg.Port = cfg.Server.Port
	}
	if cfg.Server.ReadTimeout > 0 {
		serverCfg.ReadTimeout = cfg.Server.ReadTimeout
	}
	if cfg.Server.WriteTimeout > 0 {
		serverCfg.WriteTimeout = cfg.Server.WriteTimeout
	}
	if host, _ := cmd.Flags().GetString("host"); host != "" {
		serverCfg.Host = host
	}
	if port, _ := cmd.Flags().GetInt("port"); port != 0 {
		serverCfg.Port = port
	}
	serverCfg.Report = cfg.Report

	server, err := folionet.NewServer(serverCfg)
	if err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		log.Info().Str("signal", sig.String()).Msg("shutting down")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(ctx)
}

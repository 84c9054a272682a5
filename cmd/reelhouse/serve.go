package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/reelhouse/reelhouse/internal/api"
	"github.com/reelhouse/reelhouse/internal/config"
	"github.com/reelhouse/reelhouse/internal/database"
	"github.com/reelhouse/reelhouse/internal/scheduler"
	"github.com/reelhouse/reelhouse/internal/websocket"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd(opts *options) *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("port") {
				cfg.Server.Port = port
			}

			log := newLogger(cfg, cmd.OutOrStdout())
			defer log.Close()

			log.Info().
				Str("version", config.Version).
				Str("logLevel", cfg.Logging.Level).
				Msg("starting reelhouse")

			db, err := database.New(cfg.Database.Path)
			if err != nil {
				return fmt.Errorf("failed to open database: %w", err)
			}
			defer db.Close()

			log.Info().Msg("running database migrations")
			if err := db.Migrate(); err != nil {
				return fmt.Errorf("failed to run migrations: %w", err)
			}

			sched, err := scheduler.New(log.Logger)
			if err != nil {
				return err
			}

			hubCtx, stopHub := context.WithCancel(context.Background())
			defer stopHub()
			hub := websocket.NewHub(log.Logger)
			go hub.Run(hubCtx)

			server := api.NewServer(db, hub, sched, cfg, log.Logger)

			if err := sched.Start(); err != nil {
				return fmt.Errorf("failed to start scheduler: %w", err)
			}

			errCh := make(chan error, 1)
			go func() {
				errCh <- server.Start(cfg.Server.Address())
			}()

			ctx := cmd.Context()
			select {
			case <-ctx.Done():
				log.Info().Msg("received shutdown signal")
			case err := <-errCh:
				if err != nil {
					log.Error().Err(err).Msg("HTTP server failed")
				}
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()

			if err := server.Shutdown(shutdownCtx); err != nil {
				log.Error().Err(err).Msg("server shutdown error")
			}
			if err := sched.Stop(); err != nil {
				log.Warn().Err(err).Msg("scheduler shutdown error")
			}
			stopHub()
			<-hub.Done()

			log.Info().Msg("server stopped")
			return nil
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 0, "Override the configured listen port")
	return cmd
}

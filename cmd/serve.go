package cmd

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/naka-gawa/github-activity/internal/server"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the activity report over HTTP",
	Long: `Serves the activity report of GITHUB_USERNAME.

Routes:
  GET /                            welcome text
  GET /health                      liveness
  GET /api/github-activity         per-repository summaries (JSON)
  GET /api/github-activity/summary account-wide totals (JSON)`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
			cfg.Server.ListenAddr = addr
		}

		aggregator, err := newAggregator(cfg)
		if err != nil {
			return err
		}

		logger := log.Logger.With().Str("component", "server").Logger()
		handler := server.NewHandler(aggregator, cfg.GitHub.Username, logger)
		srv := &http.Server{
			Addr:              cfg.Server.ListenAddr,
			Handler:           server.NewRouter(handler, logger),
			ReadHeaderTimeout: 10 * time.Second,
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		errCh := make(chan error, 1)
		go func() {
			log.Info().Str("addr", cfg.Server.ListenAddr).Str("user", cfg.GitHub.Username).Msg("Starting GitHub activity server")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
			close(errCh)
		}()

		select {
		case err := <-errCh:
			return err
		case <-ctx.Done():
		}

		log.Info().Msg("Shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		log.Info().Msg("Server stopped")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("addr", "", "Listen address (overrides LISTEN_ADDR)")
}

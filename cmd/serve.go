package cmd

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"github.com/BioHazard786/Warpcall/internal/config"
	"github.com/BioHazard786/Warpcall/internal/logging"
	"github.com/BioHazard786/Warpcall/internal/relay"
	"github.com/BioHazard786/Warpcall/internal/server"
)

const shutdownTimeout = 5 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the signaling relay",
	Long: `Run the signaling relay that forwards offers, answers and ICE candidates
between the members of a session.

Examples:
  warpcall serve
  warpcall serve --listen :9000
  WARPCALL_LISTEN=:9000 warpcall serve`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadRelay(cmd.Flags())
		if err != nil {
			return err
		}
		logging.Init(zerolog.InfoLevel)
		logging.SetLevel(cfg.LogLevel)

		ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()
		return serve(ctx, cfg)
	},
}

func serve(ctx context.Context, cfg *config.RelayConfig) error {
	hub := relay.NewHub()
	go hub.Run()

	opts := relay.Options{
		MaxMessageSize: cfg.MaxMessageSize,
		SendBuffer:     cfg.SendBuffer,
		RateLimit:      rate.Limit(cfg.RateLimit),
		RateBurst:      cfg.RateBurst,
	}

	srv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           server.NewRouter(hub, opts),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.Listen).Msg("Relay started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		hub.Stop()
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("Shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	hub.Stop()
	log.Info().Msg("Relay exited gracefully")
	return nil
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringP("listen", "l", config.DefaultListen, "Address to listen on")
	serveCmd.Flags().Int64("max-message-size", config.DefaultMaxMessageSize, "Largest accepted frame in bytes")
	serveCmd.Flags().Int("send-buffer", config.DefaultSendBuffer, "Outbound frames queued per connection")
	serveCmd.Flags().Float64("rate-limit", config.DefaultRateLimit, "Inbound frames per second per connection (0 disables)")
	serveCmd.Flags().Int("rate-burst", config.DefaultRateBurst, "Inbound frame burst per connection")
}

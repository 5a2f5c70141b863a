package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/ukydev/garage-service/internal/auth"
	"github.com/ukydev/garage-service/internal/config"
	"github.com/ukydev/garage-service/internal/events"
	"github.com/ukydev/garage-service/internal/handlers"
)

func newServeCmd(load loader) *cobra.Command {
	var ensureIndexes bool
	var seedOpts seedOptions

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()
			return serve(ctx, cfg, ensureIndexes, seedOpts)
		},
	}
	cmd.Flags().BoolVar(&ensureIndexes, "ensure-indexes", true, "create MongoDB indexes on startup")
	cmd.Flags().StringVar(&seedOpts.ManagerEmail, "seed-manager-email", "manager@garage.local", "manager login created by --seed-manager-password")
	cmd.Flags().StringVar(&seedOpts.ManagerPassword, "seed-manager-password", "", "seed the manager account and starter catalog on startup")
	return cmd
}

// serve runs the API until ctx is cancelled. A non-empty
// seedOpts.ManagerPassword seeds the store first.
func serve(ctx context.Context, cfg *config.Config, ensureIndexes bool, seedOpts seedOptions) error {
	store, closeStore, err := openStore(ctx, cfg, ensureIndexes)
	if err != nil {
		return err
	}
	defer closeStore()

	publisher, closePublisher, err := newPublisher(cfg)
	if err != nil {
		return err
	}
	defer closePublisher()

	authService, err := auth.NewService(cfg.JWTSecret, cfg.JWTExpiry)
	if err != nil {
		return err
	}
	if seedOpts.ManagerPassword != "" {
		if err := seed(ctx, store, authService, seedOpts); err != nil {
			return err
		}
	}

	router := handlers.NewRouter(handlers.RouterConfig{
		Store:             store,
		Auth:              authService,
		Publisher:         publisher,
		RateLimitRequests: cfg.RateLimitRequests,
		RateLimitWindow:   time.Duration(cfg.RateLimitWindowSeconds) * time.Second,
		TrustProxyHeaders: cfg.TrustProxyHeaders,
	})
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithFields(log.Fields{"addr": cfg.HTTPAddr, "backend": cfg.StorageBackend}).Info("HTTP server listening")
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

	log.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// newPublisher connects to the MQTT broker when one is configured. Events
// are queued so requests never wait on the broker.
func newPublisher(cfg *config.Config) (events.Publisher, func(), error) {
	if cfg.MQTTBroker == "" {
		return events.Nop{}, func() {}, nil
	}
	p, err := events.NewMQTTPublisher(events.MQTTConfig{
		Broker:      cfg.MQTTBroker,
		ClientID:    cfg.MQTTClientID,
		TopicPrefix: cfg.MQTTTopicPrefix,
	})
	if err != nil {
		return nil, nil, err
	}
	async := events.NewAsync(p, 0)
	return async, func() {
		async.Close()
		p.Close()
	}, nil
}

package cmd

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/img-edit-agent/studio/internal/config"
	"github.com/img-edit-agent/studio/internal/gateway"
	"github.com/img-edit-agent/studio/internal/handlers"
	"github.com/img-edit-agent/studio/internal/samples"
	"github.com/img-edit-agent/studio/internal/storage"
	"github.com/img-edit-agent/studio/internal/studio"
)

func newServeCmd() *cobra.Command {
	var port string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the studio HTTP API",
		Long: `Starts the studio API on the specified port.

Settings are read from the environment (or a .env file): HF_API_URL points at
the chat backend, AWS_S3_BUCKET_NAME and the AWS_* variables configure where
uploads are stored.`,
		Example: `  # Start server on default port 8888
  studio serve

  # Start server on custom port against a local chat backend
  HF_API_URL=http://localhost:8000 studio serve --port 3000`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			slog.Info("Configuration loaded", "config", cfg)

			seeds := samples.Defaults()
			if cfg.SeedFile != "" {
				if seeds, err = samples.Load(cfg.SeedFile); err != nil {
					return err
				}
			}

			gw := gateway.New(gateway.Options{
				ChatBaseURL: cfg.ChatURL,
				UserID:      cfg.UserID,
				PresignTTL:  cfg.PresignTTL,
				Objects:     newObjectStore(ctx, cfg),
			})

			sessions := storage.New()
			defer sessions.CloseAll()

			handler := handlers.New(sessions, func() (*studio.Session, error) {
				return studio.New(gw, studio.Options{
					UserID:        cfg.UserID,
					UploadGrace:   cfg.UploadGrace,
					NotifyUploads: cfg.NotifyUploads,
					Samples:       seeds,
				})
			})

			addr := ":" + port
			server := &http.Server{
				Addr:              addr,
				Handler:           handlers.NewServer(handler),
				ReadHeaderTimeout: 10 * time.Second,
			}

			return runServer(ctx, server, "Studio API available")
		},
	}

	cmd.Flags().StringVarP(&port, "port", "p", "8888", "Port to listen on")

	return cmd
}

// newObjectStore returns the S3 store, or a store that fails every call when S3 cannot be configured
func newObjectStore(ctx context.Context, cfg *config.Config) gateway.ObjectStore {
	store, err := gateway.NewS3Store(ctx, gateway.S3Config{
		Region:          cfg.Region,
		Bucket:          cfg.Bucket,
		AccessKeyID:     cfg.AccessKeyID,
		SecretAccessKey: cfg.SecretAccessKey,
		Endpoint:        cfg.S3Endpoint,
	})
	if err != nil {
		slog.Error("Object storage unavailable, uploads will keep local previews only", "error", err)
		return gateway.UnavailableStore{Err: err}
	}
	return store
}

// runServer serves until ctx is cancelled, then gives in-flight requests 5 seconds to finish
func runServer(ctx context.Context, server *http.Server, msg string) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info(msg, "addr", server.Addr, "url", "http://localhost"+server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		slog.Info("Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("Server shutdown failed", "err", err)
			return err
		}
		slog.Info("Server stopped")
		return nil
	})

	return g.Wait()
}

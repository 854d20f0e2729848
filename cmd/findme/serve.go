package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/erazemk/findme/internal/api"
	"github.com/erazemk/findme/internal/auth"
	"github.com/erazemk/findme/internal/store"
	"github.com/erazemk/findme/internal/upload"
)

const (
	shutdownTimeout = 5 * time.Second
	pruneInterval   = time.Hour
)

func newServeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long: `serve runs the HTTP API. On first start it creates the database and an
administrator account whose generated password is printed once.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.serve(ctx, cmd)
		},
	}
	cmd.Flags().StringP("addr", "a", "", "listen address (overrides FINDME_ADDR)")
	return cmd
}

func (a *app) serve(ctx context.Context, cmd *cobra.Command) error {
	cfg, log := a.cfg, a.log
	log.Info("starting", zap.Stringer("config", cfg))

	database, err := openDatabase(cfg.DBPath)
	if err != nil {
		return err
	}
	defer database.Close()
	log.Info("database ready", zap.String("path", cfg.DBPath))

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	password, err := ensureAdmin(ctx, database, cfg.AdminName, cfg.AdminEmail)
	if err != nil {
		return fmt.Errorf("provisioning admin: %w", err)
	}
	if password != "" {
		printCredentials(cmd.OutOrStdout(), "Admin account created", cfg.AdminName, cfg.AdminEmail, password)
	}

	secret := cfg.JWTSecret
	if secret == "" {
		// Stored in the database so tokens survive restarts.
		secret, err = store.GetJWTSecret(ctx, database)
		if err != nil {
			return err
		}
	}

	uploads, err := upload.New(cfg.UploadDir, cfg.MaxUploadBytes)
	if err != nil {
		return err
	}
	log.Info("uploads ready", zap.String("dir", uploads.Describe()))

	startTokenPruner(ctx, database, pruneInterval, log)

	server := &http.Server{
		Addr: cfg.Addr,
		Handler: api.NewRouter(api.Deps{
			DB:      database,
			Issuer:  auth.NewIssuer(secret, cfg.TokenTTL),
			Uploads: uploads,
			Log:     log,
		}),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
		ErrorLog:          zap.NewStdLog(log),
	}

	errc := make(chan error, 1)
	go func() {
		log.Info("server started", zap.String("addr", cfg.Addr))
		errc <- server.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
		log.Info("shutdown signal received")
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancelShutdown()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}
	log.Info("server stopped, closing database")
	return nil
}

// startTokenPruner periodically forgets revocations of expired tokens until
// ctx is done.
func startTokenPruner(ctx context.Context, database *sql.DB, interval time.Duration, log *zap.Logger) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				n, err := store.PruneRevokedTokens(ctx, database, now)
				if err != nil {
					log.Error("failed to prune revoked tokens", zap.Error(err))
					continue
				}
				if n > 0 {
					log.Info("pruned revoked tokens", zap.Int64("removed", n))
				}
			}
		}
	}()
}

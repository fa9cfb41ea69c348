package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	cmd2 "github.com/linkgate/urlshortener/cmd"
	"github.com/linkgate/urlshortener/internal/api"
	"github.com/linkgate/urlshortener/internal/clock"
	"github.com/linkgate/urlshortener/internal/logger"
	"github.com/linkgate/urlshortener/internal/maintenance"
	"github.com/linkgate/urlshortener/internal/monitor"
	"github.com/linkgate/urlshortener/internal/storage"
)

// RunServerCmd représente la commande 'run-server' de Cobra.
// C'est le point d'entrée pour lancer le serveur de l'application.
var RunServerCmd = &cobra.Command{
	Use:   "run-server",
	Short: "Starts the redirect and API server with its background jobs.",
	Long: `This command migrates the database, wires the services, starts the URL
monitor and the maintenance scheduler, then serves the JSON API and the
short-code redirects until SIGINT or SIGTERM.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := cmd2.Cfg
		log := logger.L()

		if !cfg.Log.Development {
			gin.SetMode(gin.ReleaseMode)
		}

		app, err := cmd2.NewApp(cfg, log)
		if err != nil {
			return err
		}
		defer app.Close()

		if err := storage.Migrate(app.DB); err != nil {
			return err
		}
		log.Info("Database migrated")

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		// Initialiser et lancer le moniteur d'URLs.
		if cfg.Monitor.Enabled && cfg.Monitor.IntervalMinutes > 0 {
			urlMonitor := monitor.NewUrlMonitor(app.LinkRepo, app.MonitorInterval(), cfg.Monitor.WorkerCount, clock.Real{}, log)
			go urlMonitor.Start(ctx)
		}

		scheduler := maintenance.NewScheduler(log, app.LinkRepo, clock.Real{}, cfg.Maintenance.Schedule, cfg.Maintenance.AnonymousRetention)
		if err := scheduler.Start(ctx); err != nil {
			return fmt.Errorf("failed to start maintenance scheduler: %w", err)
		}

		router := api.NewRouter(api.Dependencies{
			Links:    app.Links,
			Access:   app.Access,
			Clicks:   app.Clicks,
			Redirect: app.Redirect,
			Config:   cfg,
			Log:      log,
		})

		serverAddr := fmt.Sprintf(":%d", cfg.Server.Port)
		srv := &http.Server{
			Addr:              serverAddr,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		}

		serveErr := make(chan error, 1)
		go func() {
			log.Info("Starting HTTP server", zap.String("addr", serverAddr), zap.String("base_url", cfg.Server.BaseURL))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				serveErr <- err
			}
			close(serveErr)
		}()

		select {
		case err := <-serveErr:
			if err != nil {
				return fmt.Errorf("server failed: %w", err)
			}
		case <-ctx.Done():
			log.Info("Shutdown signal received, stopping server")
		}

		// Arrêt propre du serveur HTTP avec un timeout.
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("Server forced to shut down", zap.Error(err))
			return err
		}
		log.Info("Server stopped cleanly")
		return nil
	},
}

func init() {
	cmd2.RootCmd.AddCommand(RunServerCmd)
}

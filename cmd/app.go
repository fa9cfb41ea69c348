package cmd

import (
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/linkgate/urlshortener/internal/access"
	"github.com/linkgate/urlshortener/internal/analytics"
	"github.com/linkgate/urlshortener/internal/clock"
	"github.com/linkgate/urlshortener/internal/config"
	"github.com/linkgate/urlshortener/internal/events"
	"github.com/linkgate/urlshortener/internal/repository"
	"github.com/linkgate/urlshortener/internal/services"
	"github.com/linkgate/urlshortener/internal/shortcode"
	"github.com/linkgate/urlshortener/internal/storage"
)

// App holds the wired repositories and services shared by the server and the CLI.
type App struct {
	Config    *config.Config
	Log       *zap.Logger
	DB        *gorm.DB
	LinkRepo  *repository.GormLinkRepository
	ClickRepo *repository.GormClickRepository
	Gate      *access.Gate
	Links     *services.LinkService
	Access    *services.AccessService
	Clicks    *services.ClickService
	Redirect  *services.RedirectService

	publisher events.ClickPublisher
	geo       *analytics.MaxMindLookup
}

// NewApp opens the database and builds every service from cfg.
// Callers must Close the App.
func NewApp(cfg *config.Config, log *zap.Logger) (*App, error) {
	db, err := storage.Open(cfg, log)
	if err != nil {
		return nil, err
	}

	app := &App{Config: cfg, Log: log, DB: db}
	clk := clock.Real{}

	app.LinkRepo = repository.NewLinkRepository(db)
	app.ClickRepo = repository.NewClickRepository(db)

	grants, err := access.NewGrantIssuer(cfg.Security.GrantSecret, cfg.Security.GrantTTL, clk)
	if err != nil {
		app.Close()
		return nil, err
	}
	if cfg.Security.GrantSecret == "" {
		log.Warn("security.grant_secret is empty; password grants will not survive a restart")
	}
	app.Gate = access.NewGate(clk, grants)

	var geo analytics.GeoLookup
	if path := cfg.Geo.DatabasePath; path != "" {
		mm, err := analytics.OpenMaxMind(path)
		if err != nil {
			log.Warn("Geo database unavailable, locations will be Unknown", zap.String("path", path), zap.Error(err))
		} else {
			app.geo = mm
			geo = mm
		}
	}

	app.publisher = events.New(cfg.Events.KafkaBrokers, cfg.Events.KafkaTopic, log)

	app.Links = services.NewLinkService(app.LinkRepo, app.ClickRepo,
		shortcode.NewGenerator(cfg.ShortCode.Length), clk, log,
		services.LinkServiceOptions{
			MaxRetries:    cfg.ShortCode.MaxRetries,
			BcryptCost:    cfg.Security.BcryptCost,
			ReservedCodes: cfg.ReservedCodes(),
		})
	app.Access = services.NewAccessService(app.LinkRepo, app.Gate, grants, log)
	app.Clicks = services.NewClickService(app.ClickRepo, app.LinkRepo, app.publisher, clk, log, cfg.Analytics.TimelineDays)
	app.Redirect = services.NewRedirectService(app.LinkRepo, app.Gate, analytics.NewDeriver(geo, log), app.Clicks,
		services.RedirectOptions{FallbackURL: cfg.Server.FallbackURL, PasswordRoute: cfg.PasswordRoute}, log)

	return app, nil
}

// MonitorInterval returns the configured URL monitor period.
func (a *App) MonitorInterval() time.Duration {
	return time.Duration(a.Config.Monitor.IntervalMinutes) * time.Minute
}

// Close flushes the publisher and releases the geo database and the connection pool.
func (a *App) Close() {
	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			a.Log.Warn("Failed to close click publisher", zap.Error(err))
		}
	}
	if a.geo != nil {
		if err := a.geo.Close(); err != nil {
			a.Log.Warn("Failed to close geo database", zap.Error(err))
		}
	}
	storage.Close(a.DB, a.Log)
}

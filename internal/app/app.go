package app

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"bid-activity-alerts/internal/alerting"
	"bid-activity-alerts/internal/config"
	"bid-activity-alerts/internal/monitor"
	"bid-activity-alerts/internal/scheduler"
	"bid-activity-alerts/internal/service"
	"bid-activity-alerts/internal/storage"
)

// App aggregates configuration and shared dependencies for the CLI
// commands.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
}

// NewApp constructs a new application handle.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	return &App{Config: cfg, Logger: logger.With().Str("component", "app").Logger()}
}

func (a *App) newMonitor() *monitor.Monitor {
	return monitor.New(a.Config.MonitorSettings(), a.Logger)
}

func (a *App) newNotifier() alerting.Notifier {
	if a.Config.Alerting.Enabled && a.Config.Alerting.Telegram.Enabled {
		cfg := a.Config.Alerting.Telegram
		return alerting.NewTelegramNotifier(cfg.BotToken, cfg.ChatID, cfg.APIBase, 10*time.Second, a.Logger)
	}
	return nil
}

func (a *App) openStore(ctx context.Context) (*storage.Store, func(), error) {
	if a.Config.Database.DSN == "" {
		return nil, nil, nil
	}

	pool, err := storage.NewPool(ctx, a.Config.Database)
	if err != nil {
		return nil, nil, err
	}

	store := storage.NewStore(pool)
	closer := func() {
		store.Close()
	}
	return store, closer, nil
}

// Run executes the long-running monitoring service.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		a.Logger.Warn().Msg("database.dsn not configured; persistence disabled")
	}
	if closeStore != nil {
		defer closeStore()
	}

	var alertStore storage.AlertEventStore
	var snapStore storage.SnapshotStore
	if store != nil {
		alertStore = store
		snapStore = store
	}

	mon := a.newMonitor()
	svc := service.New(mon, alertStore, snapStore, a.newNotifier(), a.Logger)
	svc.Subscribe()

	sched := scheduler.New(a.Config.Monitor.UpdateInterval, svc.Tick, a.Logger)

	a.Logger.Info().Msg("starting activity monitoring service")
	err = svc.Run(ctx, sched)
	if err != nil && !errors.Is(err, context.Canceled) {
		a.Logger.Error().Err(err).Msg("service terminated with error")
		return err
	}

	a.Logger.Info().Msg("activity monitoring service stopped")
	return nil
}

// SimulateOptions configure the synthetic bid feed.
type SimulateOptions struct {
	VenueID    string
	VenueName  string
	Bids       int
	Interval   time.Duration
	StartPrice float64
	Increment  float64
}

// ShowOptions configure the show command.
type ShowOptions struct {
	Limit int
}

// ExportOptions hold parameters for exporting activity snapshots.
type ExportOptions struct {
	VenueID   string
	From      *time.Time
	To        *time.Time
	PNGPath   string
	CSVPath   string
	MaxPoints int
}

package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/phrazzld/scry-sprint/internal/config"
	"github.com/phrazzld/scry-sprint/internal/domain/srs"
	"github.com/phrazzld/scry-sprint/internal/events"
	"github.com/phrazzld/scry-sprint/internal/platform/memory"
	"github.com/phrazzld/scry-sprint/internal/platform/otel"
	"github.com/phrazzld/scry-sprint/internal/platform/postgres"
	"github.com/phrazzld/scry-sprint/internal/platform/push"
	"github.com/phrazzld/scry-sprint/internal/service/auth"
	"github.com/phrazzld/scry-sprint/internal/service/card_review"
	"github.com/phrazzld/scry-sprint/internal/service/reminder"
	"github.com/phrazzld/scry-sprint/internal/service/sprint"
	"github.com/phrazzld/scry-sprint/internal/store"
	"github.com/phrazzld/scry-sprint/internal/task"
	"golang.org/x/text/language"
)

// application holds the shared dependencies and owns their shutdown.
type application struct {
	config *config.Config
	logger *slog.Logger
	db     *sql.DB
	store  store.Store

	jwtService        auth.JWTService
	sprintService     *sprint.Service
	cardReviewService card_review.CardReviewService
	profileService    *reminder.ProfileService
	scheduler         *reminder.Scheduler

	eventEmitter *events.InMemoryEventEmitter
	taskRunner   *task.TaskRunner

	shutdownTelemetry func(context.Context) error
}

// bootstrap loads configuration and builds the application from it.
func bootstrap(ctx context.Context) (*application, error) {
	cfg, log, err := loadBase()
	if err != nil {
		return nil, err
	}
	log.Info("server configuration loaded",
		slog.Int("port", cfg.Server.Port),
		slog.String("log_level", cfg.Server.LogLevel),
		slog.String("database_driver", cfg.Database.Driver))

	var db *sql.DB
	if cfg.Database.Driver == driverPostgres {
		if db, err = openDatabase(ctx, cfg.Database, log); err != nil {
			return nil, err
		}
	}

	app, err := newApplication(ctx, cfg, log, db)
	if err != nil {
		if db != nil {
			_ = db.Close()
		}
		return nil, err
	}
	return app, nil
}

// newApplication wires every service. db is nil for the memory driver.
func newApplication(ctx context.Context, cfg *config.Config, logger *slog.Logger, db *sql.DB) (*application, error) {
	app := &application{
		config: cfg,
		logger: logger,
		db:     db,
	}

	var err error
	app.shutdownTelemetry, err = otel.Setup(ctx, cfg.Telemetry)
	if err != nil {
		return nil, fmt.Errorf("failed to set up telemetry: %w", err)
	}

	switch {
	case db != nil:
		app.store = postgres.NewStore(db, logger)
	case cfg.Database.Driver == driverMemory:
		logger.Warn("using in-memory store; data is lost on exit")
		app.store = memory.New()
	default:
		return nil, errors.New("postgres driver selected but no database connection was provided")
	}

	app.jwtService, err = auth.NewJWTService(cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize JWT service: %w", err)
	}
	logger.Info("JWT authentication service initialized",
		slog.Int("token_lifetime_minutes", cfg.Auth.TokenLifetimeMinutes))

	srsService := srs.NewServiceWithParams(srs.NewParams(srs.ParamsConfig{
		RequestRetention:      cfg.SRS.RequestRetention,
		MaximumIntervalDays:   cfg.SRS.MaximumIntervalDays,
		LearningStepMinutes:   cfg.SRS.LearningStepMinutes,
		RelearningStepMinutes: cfg.SRS.RelearningStepMinutes,
	}))

	app.sprintService = sprint.NewService(app.store, srsService, sprint.Config{
		ResumeWindow:  cfg.Sprint.ResumeWindow(),
		AbandonSnooze: cfg.Sprint.AbandonSnooze(),
	}, logger)
	app.cardReviewService = card_review.NewCardReviewService(app.store, srsService, logger)

	loc, err := cfg.Reminder.Location()
	if err != nil {
		return nil, fmt.Errorf("invalid reminder timezone: %w", err)
	}
	engine := reminder.NewEngine(loc)
	app.profileService = reminder.NewProfileService(app.store, engine, logger)

	app.taskRunner = task.NewTaskRunner(task.DefaultTaskRunnerConfig(), logger)
	app.taskRunner.SetErrorHandler(func(t task.Task, err error) {
		logger.Warn("background task failed",
			slog.String("task_id", t.ID().String()),
			slog.String("task_type", t.Type()),
			slog.String("error", err.Error()))
	})
	app.eventEmitter = events.NewInMemoryEventEmitter(logger)
	app.eventEmitter.RegisterHandler(task.NewReminderEventHandler(app.sprintService, app.taskRunner, logger))

	transport := push.NewClient(push.Config{
		BaseURL:     cfg.Push.Endpoint,
		AccessToken: cfg.Push.AccessToken,
		Timeout:     time.Duration(cfg.Push.TimeoutSeconds) * time.Second,
	}, logger)
	app.scheduler = reminder.NewScheduler(
		app.store,
		engine,
		reminder.NewGrouper(language.English),
		transport,
		reminder.SchedulerConfig{
			Interval:            time.Duration(cfg.Reminder.TickIntervalMinutes) * time.Minute,
			DueWindow:           time.Duration(cfg.Reminder.DueWindowMinutes) * time.Minute,
			RenotifyGuard:       time.Duration(cfg.Reminder.RenotifyGuardMinutes) * time.Minute,
			BatchSize:           cfg.Reminder.BatchSize,
			DispatchConcurrency: cfg.Reminder.DispatchConcurrency,
		},
		logger,
		reminder.WithEventEmitter(app.eventEmitter),
	)

	app.taskRunner.Start()
	logger.Info("application initialized")
	return app, nil
}

// Run serves HTTP and runs the scheduler until ctx is cancelled.
func (app *application) Run(ctx context.Context) error {
	if app.config.Reminder.Enabled {
		app.scheduler.Start(ctx)
	} else {
		app.logger.Info("reminder scheduler disabled")
	}

	err := app.startHTTPServer(ctx, app.setupRouter())
	app.cleanup(context.Background())
	if err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// cleanup stops background work and releases resources.
func (app *application) cleanup(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, app.shutdownTimeout())
	defer cancel()

	if app.scheduler != nil {
		app.scheduler.Stop()
	}
	if app.taskRunner != nil {
		app.taskRunner.Stop(ctx)
	}
	if app.shutdownTelemetry != nil {
		if err := app.shutdownTelemetry(ctx); err != nil {
			app.logger.Error("failed to flush telemetry", slog.String("error", err.Error()))
		}
	}
	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("error closing database connection", slog.String("error", err.Error()))
		}
	}

	app.logger.Info("application shutdown completed")
}

func (app *application) shutdownTimeout() time.Duration {
	if s := app.config.Server.ShutdownTimeoutSeconds; s > 0 {
		return time.Duration(s) * time.Second
	}
	return 10 * time.Second
}

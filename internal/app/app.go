package app

import (
	"context"
	"oficio/config"
	"oficio/internal/database"
	"oficio/internal/events"
	"oficio/internal/handlers/middleware"
	"oficio/internal/jobs"
	"oficio/internal/logger"
	"oficio/internal/repositories"
	"oficio/internal/services"
	"oficio/internal/store"
	"oficio/internal/websockets"
)

type App struct {
	Database    database.DB
	RecordStore store.Store
	Middleware  middleware.Middleware
	Websocket   *websockets.Manager
	EventBus    *events.EventBus
	Config      config.Config

	// Services
	AuthService      *services.AuthService
	BookingService   *services.BookingService
	SchedulerService *services.SchedulerService

	// Repositories
	Repository repositories.Repository
}

func New() (*App, error) {
	log := logger.New("app").Function("New")

	config, err := config.InitConfig()
	if err != nil {
		return &App{}, log.Err("failed to initialize config", err)
	}

	db, err := database.New(config)
	if err != nil {
		return &App{}, log.Err("failed to create database", err)
	}

	eventBus := events.New(db.Cache.Events, config)
	recordStore := store.NewValkeyStore(db.Cache.Store)

	// Initialize repositories
	repos := repositories.New(db, recordStore, eventBus)

	// Initialize services
	service, err := services.New(config, repos, eventBus)
	if err != nil {
		return &App{}, log.Err("failed to create services", err)
	}

	websocket, err := websockets.New(db, eventBus, config, service.Auth, repos.User)
	if err != nil {
		return &App{}, log.Err("failed to create websocket manager", err)
	}

	middleware := middleware.New(db, eventBus, config, repos)

	// Register jobs with scheduler if enabled
	if config.SchedulerEnabled && config.SlotSweeperEnabled {
		orphanSlotJob := jobs.NewOrphanSlotJob(
			repos.User,
			repos.Contract,
			repos.Agenda,
			recordStore,
			services.Daily,
		)
		if err := service.Scheduler.AddJob(orphanSlotJob); err != nil {
			return &App{}, log.Err("failed to register orphan slot job", err)
		}
		log.Info("Registered orphan slot sweep job with scheduler")

		if err := service.Scheduler.Start(context.Background()); err != nil {
			return &App{}, log.Err("failed to start scheduler", err)
		}
	}

	app := &App{
		Database:         db,
		RecordStore:      recordStore,
		Config:           config,
		Middleware:       middleware,
		AuthService:      service.Auth,
		BookingService:   service.Booking,
		SchedulerService: service.Scheduler,
		Repository:       repos,
		Websocket:        websocket,
		EventBus:         eventBus,
	}

	if err := app.validate(); err != nil {
		return &App{}, log.Err("failed to validate app", err)
	}

	return app, nil
}

func (a *App) validate() error {
	log := logger.New("app").Function("validate")
	if a.Database.SQL == nil {
		return log.ErrMsg("database is nil")
	}

	if a.Config == (config.Config{}) {
		return log.ErrMsg("config is nil")
	}

	nilChecks := []any{
		a.Websocket,
		a.EventBus,
		a.RecordStore,
		a.AuthService,
		a.BookingService,
		a.SchedulerService,
		a.Middleware,
		a.Repository.User,
		a.Repository.Contract,
		a.Repository.Agenda,
		a.Repository.Notification,
		a.Repository.Chat,
	}

	for _, check := range nilChecks {
		if check == nil {
			return log.ErrMsg("nil check failed")
		}
	}

	return nil
}

func (a *App) Close() (err error) {
	if a.EventBus != nil {
		if closeErr := a.EventBus.Close(); closeErr != nil {
			err = closeErr
		}
	}

	if a.SchedulerService != nil {
		if closeErr := a.SchedulerService.Stop(context.Background()); closeErr != nil {
			err = closeErr
		}
	}

	if dbErr := a.Database.Close(); dbErr != nil {
		err = dbErr
	}

	return err
}

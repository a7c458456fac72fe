package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"

	converthandler "github.com/autoorder/autoorder/internal/domain/convert/handler"
	"github.com/autoorder/autoorder/internal/domain/convert/parser"
	convertservice "github.com/autoorder/autoorder/internal/domain/convert/service"
	"github.com/autoorder/autoorder/internal/domain/convert/template"
	"github.com/autoorder/autoorder/internal/domain/delivery"
	"github.com/autoorder/autoorder/internal/domain/mappingstore"
	"github.com/autoorder/autoorder/internal/domain/suggest"
	"github.com/autoorder/autoorder/pkg/config"
	"github.com/autoorder/autoorder/pkg/db"
	"github.com/autoorder/autoorder/pkg/storage"
)

// Dependencies holds all application dependencies
type Dependencies struct {
	Config   *config.Config
	Pool     *pgxpool.Pool
	Logger   *slog.Logger
	Registry *prometheus.Registry

	// Repositories
	MappingRepo mappingstore.Repository

	// Services
	ConvertService *convertservice.ConvertService
	SuggestService *suggest.Service
	Mailer         *delivery.Mailer
	Scheduler      *delivery.Scheduler
	FileStorage    storage.Storage

	// Handlers
	ConvertHandler *converthandler.ConvertHandler
}

// InitDependencies initializes all application dependencies
func InitDependencies(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config:   cfg,
		Logger:   logger,
		Registry: prometheus.NewRegistry(),
	}

	if err := deps.initDatabase(ctx); err != nil {
		return nil, fmt.Errorf("failed to init database: %w", err)
	}
	if err := deps.initRepositories(); err != nil {
		return nil, fmt.Errorf("failed to init repositories: %w", err)
	}
	if err := deps.initServices(); err != nil {
		return nil, fmt.Errorf("failed to init services: %w", err)
	}
	if err := deps.initHandlers(); err != nil {
		return nil, fmt.Errorf("failed to init handlers: %w", err)
	}

	logger.Info("all dependencies initialized successfully")
	return deps, nil
}

// initDatabase connects to Postgres and runs migrations. With the database
// disabled the app runs fully in-memory.
func (d *Dependencies) initDatabase(ctx context.Context) error {
	if !d.Config.Database.Enabled {
		d.Logger.Info("database disabled, using in-memory mapping store")
		return nil
	}

	dsn := d.Config.Database.DSN()
	if err := db.Migrate(dsn); err != nil {
		return err
	}

	pool, err := db.Connect(ctx, dsn)
	if err != nil {
		return err
	}
	d.Pool = pool

	d.Logger.Info("database connected and migrations completed successfully")
	return nil
}

// initRepositories initializes the repository layer
func (d *Dependencies) initRepositories() error {
	if d.Pool != nil {
		d.MappingRepo = mappingstore.NewPostgresRepository(d.Pool)
	} else {
		d.MappingRepo = mappingstore.NewMemoryRepository()
	}

	d.Logger.Info("repositories initialized")
	return nil
}

// initServices initializes the service layer
func (d *Dependencies) initServices() error {
	fileStorage, err := storage.New(&storage.Config{LocalPath: d.Config.Storage.LocalPath})
	if err != nil {
		return fmt.Errorf("failed to init file storage: %w", err)
	}
	d.FileStorage = fileStorage

	reader := parser.NewReader(parser.Config{
		MinHeaderScore: d.Config.Heuristics.MinHeaderScore,
		MaxHeaderScan:  d.Config.Heuristics.MaxHeaderScan,
		MaxRows:        d.Config.Heuristics.MaxRows,
		MaxColumns:     d.Config.Heuristics.MaxColumns,
	})
	extractor := template.NewExtractor(d.Config.Heuristics.MinHeaderScore, d.Config.Heuristics.MaxHeaderScan)

	d.ConvertService = convertservice.NewConvertService(reader, extractor, d.FileStorage, d.Logger)
	if err := d.ConvertService.Register(d.Registry); err != nil {
		return err
	}

	// AI mapping suggestions; nil client falls back to keyword matching
	aiClient := suggest.NewClient(d.Config.OpenAI.APIKey, d.Config.OpenAI.Model)
	d.SuggestService = suggest.NewService(aiClient, d.Logger)

	d.Mailer = delivery.NewMailer(d.Config.Mail.ResendAPIKey, d.Config.Mail.FromEmail, d.Logger)
	d.Scheduler = delivery.NewScheduler(d.FileStorage, d.Mailer, d.Logger)

	d.Logger.Info("services initialized")
	return nil
}

// initHandlers initializes the handler layer
func (d *Dependencies) initHandlers() error {
	d.ConvertHandler = converthandler.NewConvertHandler(
		d.ConvertService,
		d.MappingRepo,
		d.SuggestService,
		d.Config.Server.MaxUploadBytes,
		d.Logger,
	)

	d.Logger.Info("handlers initialized")
	return nil
}

// Cleanup closes all resources
func (d *Dependencies) Cleanup() {
	if d.Scheduler != nil {
		<-d.Scheduler.Stop().Done()
	}
	if d.Pool != nil {
		d.Pool.Close()
	}
	d.Logger.Info("cleanup completed")
}

package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/frahmantamala/rt-lending/internal"
	"github.com/frahmantamala/rt-lending/internal/core/events"
	mirror "github.com/frahmantamala/rt-lending/internal/mirror/postgres"
	"github.com/frahmantamala/rt-lending/internal/outbox"
	"github.com/frahmantamala/rt-lending/internal/sheetsync"
	"github.com/frahmantamala/rt-lending/internal/store"
)

// initDB initializes the database connection
func initDB(cfg internal.DatabaseConfig) (*sqlx.DB, error) {
	const driver = "pgx"

	dbConn, err := sqlx.Connect(driver, cfg.Source)
	if err != nil {
		return nil, fmt.Errorf("failed to open db connection: %w", err)
	}

	dbConn.SetMaxIdleConns(cfg.MaxIdleConns)
	dbConn.SetMaxOpenConns(cfg.MaxOpenConns)
	dbConn.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	dbConn.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	if err := dbConn.Ping(); err != nil {
		_ = dbConn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return dbConn, nil
}

// initGorm puts gorm on top of the existing pool so both share connections.
func initGorm(db *sqlx.DB) (*gorm.DB, error) {
	gdb, err := gorm.Open(postgres.New(postgres.Config{Conn: db.DB}), &gorm.Config{
		Logger: gormLogger.Default.LogMode(gormLogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open gorm: %w", err)
	}
	return gdb, nil
}

type sinks struct {
	dispatchers []*outbox.Dispatcher
	client      *sheetsync.Client
	mirror      *mirror.Repository
}

func (s *sinks) shutdown() {
	for _, d := range s.dispatchers {
		d.Shutdown()
	}
}

func (s *sinks) queues() []*outbox.Dispatcher {
	return s.dispatchers
}

// buildSinks creates one dispatcher per configured destination and
// subscribes each to every change event on the bus.
func buildSinks(ctx context.Context, cfg *internal.Config, bus *events.EventBus, gdb *gorm.DB, lg *slog.Logger) (*sinks, error) {
	out := &sinks{}

	add := func(d outbox.Deliverer) {
		dispatcher := outbox.NewDispatcher(outbox.Config{
			MaxWorkers:      cfg.Sync.MaxWorkers,
			QueueSize:       cfg.Sync.QueueSize,
			DeliveryTimeout: cfg.Sync.Timeout,
		}, d, lg)
		bus.Subscribe(events.AllEvents, dispatcher.Handle)
		out.dispatchers = append(out.dispatchers, dispatcher)
	}

	if cfg.Sync.APIURL != "" {
		out.client = sheetsync.NewClient(sheetsync.Config{
			URL:     cfg.Sync.APIURL,
			Timeout: cfg.Sync.Timeout,
		}, lg)
		add(out.client)
	}

	if cfg.Sync.Sheets.Enabled {
		sheetsLog, err := sheetsync.NewSheetsLog(ctx, sheetsync.SheetsLogConfig{
			SpreadsheetID:   cfg.Sync.Sheets.SpreadsheetID,
			Range:           cfg.Sync.Sheets.Range,
			CredentialsFile: cfg.Sync.Sheets.CredentialsFile,
		}, lg)
		if err != nil {
			out.shutdown()
			return nil, err
		}
		add(sheetsLog)
	}

	if gdb != nil {
		out.mirror = mirror.NewRepository(gdb, lg)
		add(out.mirror)
	}

	return out, nil
}

// bootstrapSource asks the spreadsheet API first and falls back to the
// mirror when the API fails or returns nothing usable.
func (s *sinks) bootstrapSource(timeout time.Duration, lg *slog.Logger) store.Source {
	var sources []store.Source
	if s.client != nil {
		sources = append(sources, s.client)
	}
	if s.mirror != nil {
		sources = append(sources, s.mirror)
	}
	if len(sources) == 0 {
		return nil
	}
	return store.NewFallbackSource(timeout, lg, sources...)
}

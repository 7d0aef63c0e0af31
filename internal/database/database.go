// Package database opens the gorm connection and brings the schema up to date:
// versioned SQL migrations on Postgres, AutoMigrate on SQLite.
package database

import (
	"embed"
	"errors"
	"fmt"
	"time"

	"taskboard/internal/config"
	"taskboard/internal/model"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Models lists every persisted type in dependency order.
var Models = []any{
	&model.User{},
	&model.Board{},
	&model.BoardMember{},
	&model.List{},
	&model.Card{},
	&model.CardAssignee{},
}

func Open(cfg *config.Config, logger *logrus.Logger) (*gorm.DB, error) {
	switch cfg.DBDriver {
	case config.DriverSQLite:
		return OpenSQLite(cfg.SQLitePath+"?_foreign_keys=1&_busy_timeout=5000", logger)
	case config.DriverPostgres:
		if cfg.RunMigrations {
			if err := MigrateUp(cfg.PostgresURL()); err != nil {
				return nil, err
			}
			logger.Info("Database migrations applied")
		}
		db, err := gorm.Open(postgres.Open(cfg.PostgresDSN()), gormConfig(logger))
		if err != nil {
			return nil, fmt.Errorf("failed to connect to DB: %w", err)
		}
		return db, nil
	default:
		return nil, fmt.Errorf("unsupported DB driver %q", cfg.DBDriver)
	}
}

// OpenSQLite opens a SQLite database and creates the schema with AutoMigrate.
// SQLite has a single writer, so the pool is limited to one connection.
func OpenSQLite(dsn string, logger *logrus.Logger) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(dsn), gormConfig(logger))
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetConnMaxLifetime(0)

	if err := db.AutoMigrate(Models...); err != nil {
		return nil, fmt.Errorf("failed to migrate sqlite schema: %w", err)
	}
	return db, nil
}

// MigrateUp applies all pending embedded migrations against databaseURL.
func MigrateUp(databaseURL string) error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("open embedded migrations: %w", err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, databaseURL)
	if err != nil {
		return fmt.Errorf("init migrations: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

func gormConfig(logger *logrus.Logger) *gorm.Config {
	return &gorm.Config{
		TranslateError: true,
		Logger: gormlogger.New(logger.WithField("component", "gorm"), gormlogger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
		}),
	}
}

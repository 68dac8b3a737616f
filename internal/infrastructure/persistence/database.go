package persistence

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/erp/cheques/internal/infrastructure/config"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Database is the GORM handle shared by the repositories
type Database struct {
	DB     *gorm.DB
	Driver string
}

// Option adjusts the GORM configuration before the connection is opened
type Option func(*gorm.Config)

// WithLogger routes GORM's query log through l. Without it queries are
// not logged.
func WithLogger(l gormlogger.Interface) Option {
	return func(c *gorm.Config) { c.Logger = l }
}

// NewDatabase opens the configured database (postgres or sqlite), sizes
// its pool and pings it.
func NewDatabase(cfg *config.DatabaseConfig, opts ...Option) (*Database, error) {
	gormCfg := &gorm.Config{
		Logger:                 gormlogger.Default.LogMode(gormlogger.Silent),
		SkipDefaultTransaction: true,
		// Prepared statements pin connections; sqlite has only one anyway
		PrepareStmt:    cfg.Driver != config.DriverSQLite,
		TranslateError: true,
	}
	for _, opt := range opts {
		opt(gormCfg)
	}

	db, err := gorm.Open(dialector(cfg), gormCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	configurePool(sqlDB, cfg)

	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return &Database{DB: db, Driver: cfg.Driver}, nil
}

func dialector(cfg *config.DatabaseConfig) gorm.Dialector {
	if cfg.Driver == config.DriverSQLite {
		// Foreign keys are off by default in SQLite
		return sqlite.Open(cfg.SQLitePath + "?_foreign_keys=on")
	}
	return postgres.Open(cfg.DSN())
}

func configurePool(sqlDB *sql.DB, cfg *config.DatabaseConfig) {
	if cfg.Driver == config.DriverSQLite {
		// One writer avoids SQLITE_BUSY when two edits save at once
		sqlDB.SetMaxOpenConns(1)
		return
	}
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetime) * time.Minute)
	sqlDB.SetConnMaxIdleTime(time.Duration(cfg.ConnMaxIdleTime) * time.Minute)
}

func (d *Database) sqlDB() (*sql.DB, error) {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	return sqlDB, nil
}

func (d *Database) Close() error {
	sqlDB, err := d.sqlDB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Ping is used by the health endpoint
func (d *Database) Ping() error {
	sqlDB, err := d.sqlDB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

// DBSystem names the backend for tracing attributes
func (d *Database) DBSystem() string {
	if d.Driver == config.DriverSQLite {
		return "sqlite"
	}
	return "postgresql"
}

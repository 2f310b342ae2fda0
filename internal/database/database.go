package database

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/pressly/goose/v3"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// dsnParams enables foreign keys on every pooled connection and lets writers
// wait for the lock instead of failing with SQLITE_BUSY.
const dsnParams = "?_foreign_keys=on&_busy_timeout=5000"

type Database struct {
	DB   *gorm.DB
	path string
	log  *zap.Logger
}

type Option func(*options)

type options struct {
	log         *zap.Logger
	debugSQL    bool
	skipMigrate bool
}

// WithLogger routes migration progress through the given logger.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.log = l }
}

// WithDebugSQL makes gorm log every statement.
func WithDebugSQL(enabled bool) Option {
	return func(o *options) { o.debugSQL = enabled }
}

// WithoutMigrations opens the store as-is. Used by the migrate command to
// report status before applying anything.
func WithoutMigrations() Option {
	return func(o *options) { o.skipMigrate = true }
}

// NewDatabase opens the SQLite file at dbPath, creating its directory if needed,
// and applies all pending migrations.
func NewDatabase(dbPath string, opts ...Option) (*Database, error) {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.log == nil {
		o.log = zap.NewNop()
	}

	if dir := filepath.Dir(dbPath); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	logMode := logger.Silent
	if o.debugSQL {
		logMode = logger.Info
	}
	db, err := gorm.Open(sqlite.Open(dbPath+dsnParams), &gorm.Config{
		Logger: logger.Default.LogMode(logMode),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	database := &Database{DB: db, path: dbPath, log: o.log}

	if !o.skipMigrate {
		if err := database.Migrate(context.Background()); err != nil {
			_ = database.Close()
			return nil, err
		}
	}

	o.log.Info("database initialized", zap.String("path", dbPath))
	return database, nil
}

// Path returns the filesystem path the store was opened from.
func (d *Database) Path() string {
	return d.path
}

func (d *Database) Close() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (d *Database) provider() (*goose.Provider, error) {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return nil, err
	}
	migrations, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		return nil, err
	}
	return goose.NewProvider(goose.DialectSQLite3, sqlDB, migrations,
		goose.WithGoMigrations(
			goose.NewGoMigration(legacyColumnsVersion, &goose.GoFunc{RunTx: migrateLegacyColumns}, nil),
		),
	)
}

// Migrate applies every pending migration. Already applied versions are skipped.
func (d *Database) Migrate(ctx context.Context) error {
	p, err := d.provider()
	if err != nil {
		return fmt.Errorf("failed to prepare migrations: %w", err)
	}
	results, err := p.Up(ctx)
	if err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	for _, r := range results {
		d.log.Info("applied migration",
			zap.Int64("version", r.Source.Version),
			zap.String("source", r.Source.Path),
			zap.Duration("took", r.Duration),
		)
	}
	return nil
}

// MigrationStatus lists every known migration with its applied state.
func (d *Database) MigrationStatus(ctx context.Context) ([]*goose.MigrationStatus, error) {
	p, err := d.provider()
	if err != nil {
		return nil, err
	}
	return p.Status(ctx)
}

// Version returns the highest applied migration version.
func (d *Database) Version(ctx context.Context) (int64, error) {
	p, err := d.provider()
	if err != nil {
		return 0, err
	}
	return p.GetDBVersion(ctx)
}

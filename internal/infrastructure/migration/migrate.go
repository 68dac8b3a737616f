// Package migration applies the SQL scripts under migrations/ with
// golang-migrate and scaffolds new script pairs.
package migration

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"go.uber.org/zap"
)

// Migrator wraps a golang-migrate instance. Running with nothing to do is
// not an error.
type Migrator struct {
	m      *migrate.Migrate
	logger *zap.Logger
}

// New reads scripts from the root of scripts (normally migrations.FS).
// The scheme of databaseURL picks the driver: postgres:// or sqlite3://.
func New(scripts fs.FS, databaseURL string, logger *zap.Logger) (*Migrator, error) {
	src, err := iofs.New(scripts, ".")
	if err != nil {
		return nil, fmt.Errorf("failed to open migration scripts: %w", err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create migrate instance: %w", err)
	}
	return &Migrator{m: m, logger: logger}, nil
}

// Up applies every pending script
func (mg *Migrator) Up() error {
	return mg.run("up", mg.m.Up)
}

// Down rolls every script back
func (mg *Migrator) Down() error {
	return mg.run("down", mg.m.Down)
}

// Steps moves n scripts forward, or back when n is negative.
func (mg *Migrator) Steps(n int) error {
	return mg.run(fmt.Sprintf("step %+d", n), func() error { return mg.m.Steps(n) })
}

func (mg *Migrator) run(op string, apply func() error) error {
	mg.logger.Info("Running migrations", zap.String("op", op))
	err := apply()
	switch {
	case errors.Is(err, migrate.ErrNoChange):
		mg.logger.Info("Schema already current", zap.String("op", op))
		return nil
	case err != nil:
		return fmt.Errorf("migration %s failed: %w", op, err)
	}

	version, dirty, err := mg.Version()
	if err != nil {
		return err
	}
	mg.logger.Info("Migrations applied",
		zap.String("op", op),
		zap.Uint("version", version),
		zap.Bool("dirty", dirty))
	return nil
}

// Version reports the applied version. It is 0 on an empty database.
func (mg *Migrator) Version() (uint, bool, error) {
	version, dirty, err := mg.m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to get migration version: %w", err)
	}
	return version, dirty, nil
}

// Force records version as applied and clears the dirty flag without
// running anything. Used after repairing a failed script by hand.
func (mg *Migrator) Force(version int) error {
	mg.logger.Warn("Forcing migration version", zap.Int("version", version))
	if err := mg.m.Force(version); err != nil {
		return fmt.Errorf("failed to force version %d: %w", version, err)
	}
	return nil
}

func (mg *Migrator) Close() error {
	srcErr, dbErr := mg.m.Close()
	return errors.Join(srcErr, dbErr)
}

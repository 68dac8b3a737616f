package main

import (
	"context"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	currencyapp "github.com/erp/cheques/internal/application/currency"
	"github.com/erp/cheques/internal/domain/currency"
	"github.com/erp/cheques/internal/infrastructure/config"
	"github.com/erp/cheques/internal/infrastructure/logger"
	"github.com/erp/cheques/internal/infrastructure/migration"
	"github.com/erp/cheques/internal/infrastructure/persistence"
	"github.com/erp/cheques/migrations"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// cli carries what every command needs
type cli struct {
	log     *zap.Logger
	dir     string // -path, empty for the embedded scripts
	scripts fs.FS
	args    []string
}

// schemaCommands run against an open Migrator
var schemaCommands = map[string]func(*cli, *migration.Migrator) error{
	"up":   func(_ *cli, m *migration.Migrator) error { return m.Up() },
	"down": func(_ *cli, m *migration.Migrator) error { return m.Down() },
	"step": func(c *cli, m *migration.Migrator) error {
		n, err := c.intArg("step count")
		if err != nil {
			return err
		}
		return m.Steps(n)
	},
	"force": func(c *cli, m *migration.Migrator) error {
		v, err := c.intArg("version")
		if err != nil {
			return err
		}
		return m.Force(v)
	},
	"version": func(c *cli, m *migration.Migrator) error {
		v, dirty, err := m.Version()
		if err != nil {
			return err
		}
		c.log.Info("Current migration version", zap.Uint("version", v), zap.Bool("dirty", dirty))
		return nil
	},
}

func main() {
	dir := flag.String("path", "", "Read scripts from this directory instead of the embedded set")
	level := flag.String("log-level", "info", "Log level (debug, info, warn, error)")
	flag.Usage = printUsage
	flag.Parse()

	if flag.NArg() == 0 {
		printUsage()
		os.Exit(2)
	}

	log, err := logger.New(&logger.Config{Level: *level, Format: "console", Output: "stdout"})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync(log) }()

	c := &cli{log: log, dir: *dir, scripts: migrations.FS, args: flag.Args()[1:]}
	if *dir != "" {
		c.scripts = os.DirFS(*dir)
	}

	command := flag.Arg(0)
	if err := c.run(command); err != nil {
		log.Fatal("Migration command failed", zap.String("command", command), zap.Error(err))
	}
}

func (c *cli) run(command string) error {
	switch command {
	case "create":
		return c.create()
	case "list":
		return c.list()
	case "seed-rates":
		return c.seedRates(context.Background())
	}

	apply, ok := schemaCommands[command]
	if !ok {
		printUsage()
		return fmt.Errorf("unknown command %q", command)
	}
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	m, err := migration.New(c.scripts, cfg.Database.MigrationURL(), c.log)
	if err != nil {
		return err
	}
	defer m.Close()
	return apply(c, m)
}

func (c *cli) intArg(what string) (int, error) {
	if len(c.args) == 0 {
		return 0, fmt.Errorf("%s required", what)
	}
	n, err := strconv.Atoi(c.args[0])
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q", what, c.args[0])
	}
	return n, nil
}

func (c *cli) create() error {
	if len(c.args) == 0 {
		return fmt.Errorf("usage: migrate create <name> [description]")
	}
	dir := c.dir
	if dir == "" {
		dir = "migrations"
	}
	var description string
	if len(c.args) > 1 {
		description = c.args[1]
	}
	mf, err := migration.CreateMigration(dir, c.args[0], description)
	if err != nil {
		return err
	}
	c.log.Info("Migration created",
		zap.String("version", mf.Version),
		zap.String("up_file", mf.UpPath),
		zap.String("down_file", mf.DownPath))
	return nil
}

func (c *cli) list() error {
	names, err := migration.ListMigrations(c.scripts)
	if err != nil {
		return err
	}
	c.log.Info("Available migrations", zap.Int("count", len(names)))
	for _, name := range names {
		fmt.Println("  -", name)
	}
	return nil
}

// seedRates records Currency Exchange rows from a YAML list such as
//
//	- {from: USD, to: EGP, rate: "30.9", date: "2024-01-01"}
func (c *cli) seedRates(ctx context.Context) error {
	if len(c.args) == 0 {
		return fmt.Errorf("usage: migrate seed-rates <file.yaml>")
	}
	path := c.args[0]
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var reqs []currencyapp.RecordRateRequest
	if err := yaml.Unmarshal(raw, &reqs); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	db, err := persistence.NewDatabase(&cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	repo := persistence.NewGormExchangeRateRepository(db.DB)
	svc := currencyapp.NewRateService(currency.NewExchangeRateLookup(repo), repo, c.log)
	n, err := svc.Seed(ctx, reqs)
	c.log.Info("Exchange rates seeded", zap.Int("stored", n), zap.Int("total", len(reqs)))
	return err
}

func printUsage() {
	fmt.Fprint(os.Stderr, `Cheque Entry database tool

Usage:
  migrate [flags] <command> [arguments]

Commands:
  up                    Apply all pending migrations
  down                  Roll back all migrations
  step <n>              Apply n migrations (negative rolls back)
  version               Show the applied version
  force <version>       Mark a version as applied without running it
  create <name> [desc]  Scaffold the next up/down script pair
  list                  List available migrations
  seed-rates <file>     Record exchange rates from a YAML file

Flags:
  -path string          Read scripts from a directory instead of the embedded set
  -log-level string     debug, info, warn or error (default info)

Database settings come from CHEQUES_DATABASE_* (DRIVER, HOST, PORT, USER,
PASSWORD, NAME, SSLMODE, SQLITE_PATH).
`)
}

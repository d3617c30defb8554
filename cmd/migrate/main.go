package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/thedailydev/dailydev-backend/pkg/config"
	"github.com/thedailydev/dailydev-backend/pkg/db"
	"github.com/thedailydev/dailydev-backend/pkg/logger"
	"github.com/thedailydev/dailydev-backend/pkg/migrate"
)

type options struct {
	dir     string
	name    string
	version string
}

// offline commands only touch the migrations directory.
var offline = map[string]func(options) error{
	"create": func(o options) error {
		if o.name == "" {
			return fmt.Errorf("-name is required for create")
		}
		path, err := migrate.CreateSQLMigration(o.dir, o.name)
		if err != nil {
			return err
		}
		fmt.Println("created migration:", path)
		return nil
	},
	"validate": func(o options) error {
		if err := migrate.ValidateDir(o.dir); err != nil {
			return err
		}
		fmt.Println("migrations valid")
		return nil
	},
}

var online = map[string]func(context.Context, *sql.DB, options) error{
	"up":   gooseCommand("up"),
	"down": gooseCommand("down"),
	"redo": gooseCommand("redo"),
	"status": func(ctx context.Context, sqlDB *sql.DB, o options) error {
		states, err := migrate.Status(ctx, sqlDB, o.dir)
		if err != nil {
			return err
		}
		for _, s := range states {
			applied := "pending"
			if s.Applied {
				applied = s.AppliedAt.UTC().Format(time.RFC3339)
			}
			fmt.Printf("%-45s %s\n", s.File, applied)
		}
		return nil
	},
	"version": func(ctx context.Context, sqlDB *sql.DB, o options) error {
		if o.version == "" {
			return fmt.Errorf("-version is required for version")
		}
		applied, err := migrate.MigrateToVersion(ctx, sqlDB, o.dir, o.version)
		printApplied(applied)
		return err
	},
}

func gooseCommand(name string) func(context.Context, *sql.DB, options) error {
	return func(ctx context.Context, sqlDB *sql.DB, o options) error {
		applied, err := migrate.Run(ctx, sqlDB, o.dir, name)
		printApplied(applied)
		return err
	}
}

func printApplied(applied []migrate.Applied) {
	for _, a := range applied {
		fmt.Printf("%-4s %s (%s)\n", a.Direction, a.File, a.Duration.Round(time.Millisecond))
	}
}

func main() {
	logg := logger.New(logger.Options{ServiceName: "migrate"})
	_ = godotenv.Load()

	cmd := flag.String("cmd", "up", "up|down|redo|status|version|create|validate")
	var opts options
	flag.StringVar(&opts.dir, "dir", migrate.DefaultDir, "migrations directory")
	flag.StringVar(&opts.name, "name", "", "migration name for -cmd=create")
	flag.StringVar(&opts.version, "version", "", "target YYYYMMDDHHMMSS for -cmd=version")
	flag.Parse()

	ctx := logg.WithFields(context.Background(), map[string]any{"cmd": *cmd, "dir": opts.dir})

	if run, ok := offline[*cmd]; ok {
		exitOnErr(ctx, logg, "migrate "+*cmd, run(opts))
		return
	}
	run, ok := online[*cmd]
	if !ok {
		exitOnErr(ctx, logg, "migrate", fmt.Errorf("unknown -cmd %q", *cmd))
	}

	cfg, err := config.Load()
	exitOnErr(ctx, logg, "load config", err)
	logg = logger.New(logger.Options{
		ServiceName: "migrate",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})
	ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env, "cmd": *cmd, "dir": opts.dir})

	dbClient, err := db.New(ctx, cfg.DB, logg)
	exitOnErr(ctx, logg, "connect database", err)
	defer dbClient.Close()

	sqlDB, err := dbClient.DB().DB()
	exitOnErr(ctx, logg, "extract sql.DB", err)

	if err := run(ctx, sqlDB, opts); err != nil {
		_ = dbClient.Close()
		exitOnErr(ctx, logg, "migrate "+*cmd, err)
	}
	logg.Info(ctx, "migrate finished")
}

func exitOnErr(ctx context.Context, logg *logger.Logger, step string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, step+" failed", err)
	os.Exit(1)
}

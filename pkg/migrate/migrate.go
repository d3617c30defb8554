package migrate

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/pressly/goose/v3"
)

const DefaultDir = "pkg/migrate/migrations"

// Applied describes one migration goose ran.
type Applied struct {
	Version   int64
	File      string
	Direction string
	Duration  time.Duration
}

// State is one row of Status output.
type State struct {
	Version   int64
	File      string
	Applied   bool
	AppliedAt time.Time
}

func newProvider(db *sql.DB, dir string) (*goose.Provider, error) {
	if db == nil {
		return nil, fmt.Errorf("db is required")
	}
	if dir == "" {
		return nil, fmt.Errorf("dir is required")
	}
	provider, err := goose.NewProvider(goose.DialectPostgres, db, os.DirFS(dir))
	if err != nil {
		return nil, fmt.Errorf("goose provider for %q: %w", dir, err)
	}
	return provider, nil
}

// Run executes up, down or redo against db.
func Run(ctx context.Context, db *sql.DB, dir string, command string) ([]Applied, error) {
	provider, err := newProvider(db, dir)
	if err != nil {
		return nil, err
	}

	var results []*goose.MigrationResult
	switch command {
	case "up":
		results, err = provider.Up(ctx)
	case "down":
		var res *goose.MigrationResult
		res, err = provider.Down(ctx)
		results = appendResult(results, res)
	case "redo":
		var res *goose.MigrationResult
		if res, err = provider.Down(ctx); err == nil {
			results = appendResult(results, res)
			res, err = provider.UpByOne(ctx)
			results = appendResult(results, res)
		}
	default:
		return nil, fmt.Errorf("unsupported goose command %q", command)
	}
	if errors.Is(err, goose.ErrNoNextVersion) {
		err = nil
	}
	if err != nil {
		return convert(results), fmt.Errorf("goose %s: %w", command, err)
	}
	return convert(results), nil
}

// Status lists every known migration and whether it is applied.
func Status(ctx context.Context, db *sql.DB, dir string) ([]State, error) {
	provider, err := newProvider(db, dir)
	if err != nil {
		return nil, err
	}
	statuses, err := provider.Status(ctx)
	if err != nil {
		return nil, fmt.Errorf("goose status: %w", err)
	}
	out := make([]State, 0, len(statuses))
	for _, s := range statuses {
		out = append(out, State{
			Version:   s.Source.Version,
			File:      filepath.Base(s.Source.Path),
			Applied:   s.State == goose.StateApplied,
			AppliedAt: s.AppliedAt,
		})
	}
	return out, nil
}

// SchemaVersion returns the newest applied version.
func SchemaVersion(ctx context.Context, db *sql.DB, dir string) (int64, error) {
	provider, err := newProvider(db, dir)
	if err != nil {
		return 0, err
	}
	return provider.GetDBVersion(ctx)
}

// MigrateToVersion moves the schema up or down to targetVersion.
func MigrateToVersion(ctx context.Context, db *sql.DB, dir string, targetVersion string) ([]Applied, error) {
	target, err := strconv.ParseInt(targetVersion, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid version %q (expected YYYYMMDDHHMMSS): %w", targetVersion, err)
	}
	provider, err := newProvider(db, dir)
	if err != nil {
		return nil, err
	}
	current, err := provider.GetDBVersion(ctx)
	if err != nil {
		return nil, fmt.Errorf("get db version: %w", err)
	}

	var results []*goose.MigrationResult
	switch {
	case current == target:
		return nil, nil
	case current < target:
		results, err = provider.UpTo(ctx, target)
	default:
		results, err = provider.DownTo(ctx, target)
	}
	if err != nil {
		return convert(results), fmt.Errorf("goose migrate %d -> %d: %w", current, target, err)
	}
	return convert(results), nil
}

func appendResult(results []*goose.MigrationResult, res *goose.MigrationResult) []*goose.MigrationResult {
	if res == nil {
		return results
	}
	return append(results, res)
}

func convert(results []*goose.MigrationResult) []Applied {
	out := make([]Applied, 0, len(results))
	for _, r := range results {
		if r == nil || r.Source == nil {
			continue
		}
		out = append(out, Applied{
			Version:   r.Source.Version,
			File:      filepath.Base(r.Source.Path),
			Direction: r.Direction,
			Duration:  r.Duration,
		})
	}
	return out
}

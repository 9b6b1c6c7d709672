package db

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strconv"
	"strings"

	"github.com/colonyops/refinery/internal/core/logging"
)

// Schema files are named NNNN_description.sql and applied in version order.
// The applied version lives in SQLite's user_version header, so the trail
// database carries no bookkeeping table of its own.
//
//go:embed migrations/*.sql
var schemaFS embed.FS

type schemaStep struct {
	version int
	name    string
	sql     string
}

func schemaSteps() ([]schemaStep, error) {
	files, err := fs.Glob(schemaFS, "migrations/*.sql")
	if err != nil {
		return nil, err
	}

	steps := make([]schemaStep, 0, len(files))
	seen := make(map[int]string, len(files))
	for _, f := range files {
		version, name, err := parseStepName(path.Base(f))
		if err != nil {
			return nil, fmt.Errorf("schema file %s: %w", f, err)
		}
		if prev, ok := seen[version]; ok {
			return nil, fmt.Errorf("schema version %04d used by both %s and %s", version, prev, name)
		}
		seen[version] = name

		body, err := fs.ReadFile(schemaFS, f)
		if err != nil {
			return nil, err
		}
		steps = append(steps, schemaStep{version: version, name: name, sql: string(body)})
	}

	sort.Slice(steps, func(i, j int) bool { return steps[i].version < steps[j].version })
	for i, s := range steps {
		if s.version != i+1 {
			return nil, fmt.Errorf("schema versions must be contiguous from 1, found %04d at position %d", s.version, i+1)
		}
	}
	return steps, nil
}

// parseStepName splits "0002_trail_indexes.sql" into 2 and "trail_indexes".
func parseStepName(base string) (int, string, error) {
	stem, ok := strings.CutSuffix(base, ".sql")
	if !ok {
		return 0, "", fmt.Errorf("missing .sql suffix")
	}
	num, name, ok := strings.Cut(stem, "_")
	if !ok || name == "" {
		return 0, "", fmt.Errorf("expected NNNN_name.sql")
	}
	version, err := strconv.Atoi(num)
	if err != nil || version <= 0 {
		return 0, "", fmt.Errorf("bad version %q", num)
	}
	return version, name, nil
}

func schemaVersion(ctx context.Context, conn *sql.DB) (int, error) {
	var v int
	if err := conn.QueryRowContext(ctx, "PRAGMA user_version").Scan(&v); err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	return v, nil
}

// migrateUp brings the trail schema to the newest embedded version. Each
// step and its version bump commit together.
func migrateUp(ctx context.Context, conn *sql.DB) error {
	steps, err := schemaSteps()
	if err != nil {
		return err
	}

	current, err := schemaVersion(ctx, conn)
	if err != nil {
		return err
	}
	if current > len(steps) {
		return fmt.Errorf("trail database schema version %d is newer than this binary supports (%d)", current, len(steps))
	}

	log := logging.Component("db")
	for _, s := range steps[current:] {
		log.Debug().Int("version", s.version).Str("name", s.name).Msg("applying schema step")
		if err := applyStep(ctx, conn, s); err != nil {
			return fmt.Errorf("schema step %04d (%s): %w", s.version, s.name, err)
		}
	}
	return nil
}

func applyStep(ctx context.Context, conn *sql.DB, s schemaStep) error {
	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, s.sql); err != nil {
		return err
	}
	// PRAGMA does not accept bound parameters.
	if _, err := tx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", s.version)); err != nil {
		return err
	}
	return tx.Commit()
}

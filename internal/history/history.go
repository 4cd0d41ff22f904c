// Package history persists benchmark results in a local SQLite database so a
// run can be compared with the previous one.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/dkoosis/gbbench/internal/bench"
	"github.com/dkoosis/gbbench/internal/report"
)

// Store records results across runs.
type Store struct {
	db *sql.DB
}

// DefaultPath is the history database location under the user config dir.
func DefaultPath() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user config dir: %w", err)
	}
	return filepath.Join(configDir, "gbbench", "history.db"), nil
}

// Open opens (creating if needed) the database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create history directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}

	s := &Store{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return s, nil
}

// Close releases the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS results (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		started_at TEXT NOT NULL,
		lang TEXT NOT NULL,
		script TEXT NOT NULL DEFAULT '',
		variant TEXT NOT NULL,
		frames INTEGER NOT NULL,
		ok INTEGER NOT NULL,
		fps REAL,
		duration_ms INTEGER NOT NULL
	);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return err
	}
	// Databases written before the script column existed.
	if err := s.addColumn("results", "script", "TEXT NOT NULL DEFAULT ''"); err != nil {
		return err
	}
	_, err := s.db.Exec(`
	CREATE INDEX IF NOT EXISTS idx_results_script ON results(lang, script);
	CREATE INDEX IF NOT EXISTS idx_results_run ON results(run_id);
	`)
	return err
}

// addColumn adds column to table unless it is already present.
func (s *Store) addColumn(table, column, decl string) error {
	rows, err := s.db.Query(fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			cid     int
			name    string
			colType string
			notNull int
			dflt    sql.NullString
			pk      int
		)
		if err := rows.Scan(&cid, &name, &colType, &notNull, &dflt, &pk); err != nil {
			return err
		}
		if name == column {
			return nil
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}
	rows.Close()
	_, err = s.db.Exec(fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", table, column, decl))
	return err
}

// RunID derives a run identifier from its start time.
func RunID(startedAt time.Time) string {
	return startedAt.UTC().Format(time.RFC3339Nano)
}

// Record stores every result of a run in one transaction.
func (s *Store) Record(ctx context.Context, out bench.Outcome) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO results
		(run_id, started_at, lang, script, variant, frames, ok, fps, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	runID := RunID(out.StartedAt)
	for _, res := range out.Results {
		var fps sql.NullFloat64
		if res.OK && res.HasFPS {
			fps = sql.NullFloat64{Float64: res.FPS, Valid: true}
		}
		if _, err := stmt.ExecContext(ctx,
			runID,
			out.StartedAt.Format(time.RFC3339),
			res.Case.Lang,
			res.Case.Runner,
			res.Case.Variant,
			res.Scaled,
			res.OK,
			fps,
			res.Duration.Milliseconds(),
		); err != nil {
			return fmt.Errorf("recording %s: %w", res.Case.ID(), err)
		}
	}
	return tx.Commit()
}

// Previous returns the most recently recorded fps for each runner that has one.
func (s *Store) Previous(ctx context.Context) (map[report.Key]float64, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT r.lang, r.script, r.fps
		FROM results r
		WHERE r.id = (
			SELECT MAX(r2.id) FROM results r2
			WHERE r2.lang = r.lang AND r2.script = r.script
			  AND r2.ok = 1 AND r2.fps IS NOT NULL
		)
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	prev := make(map[report.Key]float64)
	for rows.Next() {
		var k report.Key
		var fps float64
		if err := rows.Scan(&k.Lang, &k.Script, &fps); err != nil {
			return nil, err
		}
		prev[k] = fps
	}
	return prev, rows.Err()
}

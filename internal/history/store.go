// Package history keeps a local record of the predictions the service made.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/Brownie44l1/cropdoc/internal/inference"
)

// FileName is the database file created inside the history directory.
const FileName = "history.db"

// DefaultLimit caps Recent when the caller passes no limit.
const DefaultLimit = 20

// Record is one stored prediction.
type Record struct {
	ID         string    `json:"id"`
	CreatedAt  time.Time `json:"created_at"`
	Class      string    `json:"class"`
	Confidence float32   `json:"confidence"`
	Solution   string    `json:"solution"`
}

// Store is an SQLite backed prediction log.
type Store struct {
	db *sql.DB
}

// Open creates dir if needed and opens the history database inside it.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("create history directory: %w", err)
	}

	db, err := sql.Open("sqlite", filepath.Join(dir, FileName)+"?mode=rwc")
	if err != nil {
		return nil, fmt.Errorf("open history database: %w", err)
	}

	// SQLite has a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s := &Store{db: db}
	if err := s.init(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) init(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		return fmt.Errorf("enable WAL mode: %w", err)
	}

	schema := `
	CREATE TABLE IF NOT EXISTS predictions (
		id TEXT PRIMARY KEY,
		created_at INTEGER NOT NULL,
		class TEXT NOT NULL,
		confidence REAL NOT NULL,
		solution TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_predictions_created ON predictions(created_at);
	`
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("create tables: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Record stores a prediction made by a loaded model. Sentinel results are
// skipped.
func (s *Store) Record(ctx context.Context, result inference.Result) error {
	if !result.ModelLoaded {
		return nil
	}

	_, err := s.db.ExecContext(ctx, `
	INSERT INTO predictions (id, created_at, class, confidence, solution)
	VALUES (?, ?, ?, ?, ?)
	`,
		result.ID.String(),
		time.Now().UnixMilli(),
		result.Class,
		result.Confidence,
		result.Solution,
	)
	if err != nil {
		return fmt.Errorf("insert prediction: %w", err)
	}
	return nil
}

// Recent returns up to limit predictions, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}

	rows, err := s.db.QueryContext(ctx, `
	SELECT id, created_at, class, confidence, solution
	FROM predictions
	ORDER BY created_at DESC, rowid DESC
	LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query predictions: %w", err)
	}
	defer rows.Close()

	records := make([]Record, 0, limit)
	for rows.Next() {
		var (
			r       Record
			created int64
		)
		if err := rows.Scan(&r.ID, &created, &r.Class, &r.Confidence, &r.Solution); err != nil {
			return nil, fmt.Errorf("scan prediction: %w", err)
		}
		r.CreatedAt = time.UnixMilli(created)
		records = append(records, r)
	}
	return records, rows.Err()
}

// Counts returns the number of stored predictions per class.
func (s *Store) Counts(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT class, COUNT(*) FROM predictions GROUP BY class`)
	if err != nil {
		return nil, fmt.Errorf("count predictions: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var (
			class string
			n     int
		)
		if err := rows.Scan(&class, &n); err != nil {
			return nil, fmt.Errorf("scan count: %w", err)
		}
		counts[class] = n
	}
	return counts, rows.Err()
}

package metadatastore

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/titanic-mlops/titanic-survival/pkg/models"
)

// SQLiteStore provides SQLite-based persistence for training and validation runs
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite-based storage instance
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	// Format: file:path?param=value
	dsn := fmt.Sprintf("file:%s?_busy_timeout=10000&_journal_mode=WAL&_synchronous=NORMAL", dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Writes are serialized by SQLite anyway
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(time.Hour)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// retryOnBusy retries a database operation if it fails due to SQLITE_BUSY
func (s *SQLiteStore) retryOnBusy(operation func() error, maxRetries int) error {
	var err error
	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if strings.Contains(err.Error(), "SQLITE_BUSY") {
			// 10ms, 20ms, 40ms, ...
			backoff := time.Duration(10*(1<<uint(i))) * time.Millisecond
			time.Sleep(backoff)
			continue
		}

		return err
	}
	return fmt.Errorf("operation failed after %d retries: %w", maxRetries, err)
}

// initSchema creates the database schema if it doesn't exist
func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS training_runs (
		id TEXT PRIMARY KEY,
		kind TEXT NOT NULL,
		status TEXT NOT NULL,
		best_model TEXT,
		best_score REAL,
		started_at DATETIME NOT NULL,
		finished_at DATETIME,
		data TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_training_runs_kind ON training_runs(kind);
	CREATE INDEX IF NOT EXISTS idx_training_runs_status ON training_runs(status);
	`

	_, err := s.db.Exec(schema)
	return err
}

// SaveRun inserts or replaces a run
func (s *SQLiteStore) SaveRun(run *models.TrainingRun) error {
	if run.ID == "" {
		return fmt.Errorf("run ID is required")
	}
	data, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("failed to marshal training run: %w", err)
	}

	query := `
		INSERT OR REPLACE INTO training_runs (id, kind, status, best_model, best_score, started_at, finished_at, data)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	// Scheduled validation can race with a manual training run
	err = s.retryOnBusy(func() error {
		_, execErr := s.db.Exec(query,
			run.ID,
			string(run.Kind),
			string(run.Status),
			run.BestModel,
			run.BestScore,
			run.StartedAt.UTC(),
			run.FinishedAt,
			string(data),
		)
		return execErr
	}, 5)
	if err != nil {
		return fmt.Errorf("failed to save training run: %w", err)
	}

	return nil
}

// GetRun retrieves a run by ID
func (s *SQLiteStore) GetRun(id string) (*models.TrainingRun, error) {
	var data string
	err := s.db.QueryRow(`SELECT data FROM training_runs WHERE id = ?`, id).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get training run: %w", err)
	}

	return decodeRun(data)
}

// ListRuns lists runs of one kind, newest first. An empty kind lists all runs.
func (s *SQLiteStore) ListRuns(kind models.RunKind) ([]*models.TrainingRun, error) {
	query := `SELECT data FROM training_runs ORDER BY started_at DESC`
	args := []any{}
	if kind != "" {
		query = `SELECT data FROM training_runs WHERE kind = ? ORDER BY started_at DESC`
		args = append(args, string(kind))
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list training runs: %w", err)
	}
	defer rows.Close()

	runs := make([]*models.TrainingRun, 0)
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			continue
		}
		run, err := decodeRun(data)
		if err != nil {
			continue
		}
		runs = append(runs, run)
	}

	return runs, rows.Err()
}

// LatestRegistered returns the most recent run whose model was saved
func (s *SQLiteStore) LatestRegistered() (*models.TrainingRun, error) {
	var data string
	query := `SELECT data FROM training_runs WHERE status = ? ORDER BY started_at DESC LIMIT 1`
	err := s.db.QueryRow(query, string(models.RunStatusRegistered)).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest registered run: %w", err)
	}

	return decodeRun(data)
}

// DeleteRun deletes a run
func (s *SQLiteStore) DeleteRun(id string) error {
	result, err := s.db.Exec(`DELETE FROM training_runs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete training run: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return nil
}

func decodeRun(data string) (*models.TrainingRun, error) {
	var run models.TrainingRun
	if err := json.Unmarshal([]byte(data), &run); err != nil {
		return nil, fmt.Errorf("failed to unmarshal training run: %w", err)
	}
	return &run, nil
}

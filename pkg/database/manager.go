// Package database runs SQL against the prediction log database and moves
// frames in and out of it.
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/titanic-mlops/titanic-survival/pkg/config"
	"github.com/titanic-mlops/titanic-survival/pkg/dataset"
)

// Upload modes for UploadFrame
const (
	IfExistsAppend  = "append"
	IfExistsReplace = "replace"
)

// Columns added to every logged prediction row
const (
	PredictionColumn   = "prediction"
	PredictionIDColumn = "prediction_id"
	LoggedAtColumn     = "logged_at"
)

// ErrNotConnected is returned when a query runs before Connect
var ErrNotConnected = errors.New("database not connected")

// Manager is the persistence wrapper used by the CLI and the predictor
type Manager interface {
	Connect(ctx context.Context) error
	ExecuteQuery(ctx context.Context, query string, args ...any) (int64, error)
	FetchResults(ctx context.Context, query string, args ...any) (*Result, error)
	FetchFrame(ctx context.Context, query string, args ...any) (*dataset.Frame, error)
	UploadFrame(ctx context.Context, frame *dataset.Frame, table, ifExists string) error
	LogPrediction(ctx context.Context, rows *dataset.Frame, table string) error
	Close() error
}

// Dialect captures the SQL differences between the drivers we run against
type Dialect struct {
	Name        string
	Driver      string
	NumericType string
	TextType    string
	MaxConns    int
	// Positional placeholders ($1) instead of question marks
	Numbered bool
}

var (
	Postgres = Dialect{Name: "postgres", Driver: "postgres", NumericType: "DOUBLE PRECISION", TextType: "TEXT", MaxConns: 10, Numbered: true}

	// SQLite allows a single writer
	SQLite = Dialect{Name: "sqlite", Driver: "sqlite", NumericType: "REAL", TextType: "TEXT", MaxConns: 1}
)

// Placeholder returns the bind parameter for the n-th (1-based) argument
func (d Dialect) Placeholder(n int) string {
	if d.Numbered {
		return fmt.Sprintf("$%d", n)
	}
	return "?"
}

// SQLManager implements Manager over database/sql
type SQLManager struct {
	dialect Dialect
	dsn     string
	logger  *slog.Logger

	mu sync.RWMutex
	db *sql.DB
}

// NewSQLManager creates a manager for the given dialect and DSN. Connect must
// be called before use.
func NewSQLManager(dialect Dialect, dsn string, logger *slog.Logger) *SQLManager {
	if logger == nil {
		logger = slog.Default()
	}
	return &SQLManager{dialect: dialect, dsn: dsn, logger: logger.With("component", "database")}
}

// NewPostgresManager creates a manager for the configured Postgres server
func NewPostgresManager(cfg config.PostgresConfig, logger *slog.Logger) *SQLManager {
	return NewSQLManager(Postgres, cfg.DSN(), logger)
}

// Connect opens the connection pool and pings the server
func (m *SQLManager) Connect(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.db != nil {
		return nil
	}

	db, err := sql.Open(m.dialect.Driver, m.dsn)
	if err != nil {
		return fmt.Errorf("failed to open %s connection: %w", m.dialect.Name, err)
	}
	db.SetMaxOpenConns(m.dialect.MaxConns)
	db.SetMaxIdleConns(m.dialect.MaxConns)
	db.SetConnMaxLifetime(time.Hour)

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return fmt.Errorf("failed to connect to %s: %w", m.dialect.Name, err)
	}

	m.db = db
	m.logger.Info("database connected", "dialect", m.dialect.Name)
	return nil
}

// Close closes the connection pool
func (m *SQLManager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.db == nil {
		return nil
	}
	err := m.db.Close()
	m.db = nil
	return err
}

func (m *SQLManager) conn() (*sql.DB, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.db == nil {
		return nil, ErrNotConnected
	}
	return m.db, nil
}

// ExecuteQuery runs a statement and returns the affected row count
func (m *SQLManager) ExecuteQuery(ctx context.Context, query string, args ...any) (int64, error) {
	db, err := m.conn()
	if err != nil {
		return 0, err
	}
	result, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to execute query: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		// Not every driver reports it for DDL
		return 0, nil
	}
	return n, nil
}

// FetchResults runs a query and returns its rows
func (m *SQLManager) FetchResults(ctx context.Context, query string, args ...any) (*Result, error) {
	db, err := m.conn()
	if err != nil {
		return nil, err
	}
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to run query: %w", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read columns: %w", err)
	}

	result := &Result{Columns: columns, Rows: make([][]any, 0)}
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		for i, v := range values {
			values[i] = scanValue(v)
		}
		result.Rows = append(result.Rows, values)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate rows: %w", err)
	}
	return result, nil
}

// FetchFrame runs a query and returns its rows as a frame
func (m *SQLManager) FetchFrame(ctx context.Context, query string, args ...any) (*dataset.Frame, error) {
	result, err := m.FetchResults(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return result.Frame()
}

// UploadFrame writes every row of frame into table, creating the table when
// it does not exist. IfExistsReplace drops the table first.
func (m *SQLManager) UploadFrame(ctx context.Context, frame *dataset.Frame, table, ifExists string) error {
	if ifExists != IfExistsAppend && ifExists != IfExistsReplace {
		return fmt.Errorf("unknown if-exists mode %q", ifExists)
	}
	if frame.NumCols() == 0 {
		return fmt.Errorf("cannot upload a frame without columns")
	}
	db, err := m.conn()
	if err != nil {
		return err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	quoted := pq.QuoteIdentifier(table)
	if ifExists == IfExistsReplace {
		if _, err := tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+quoted); err != nil {
			return fmt.Errorf("failed to drop table %s: %w", table, err)
		}
	}
	if _, err := tx.ExecContext(ctx, m.createTableSQL(frame, quoted)); err != nil {
		return fmt.Errorf("failed to create table %s: %w", table, err)
	}

	stmt, err := tx.PrepareContext(ctx, m.insertSQL(frame.Columns(), quoted))
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, row := range frame.Records() {
		if _, err := stmt.ExecContext(ctx, row...); err != nil {
			return fmt.Errorf("failed to insert into %s: %w", table, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit upload: %w", err)
	}
	return nil
}

// LogPrediction appends feature rows, each already carrying its prediction,
// to table. A failure is logged and returned; it is never retried.
func (m *SQLManager) LogPrediction(ctx context.Context, rows *dataset.Frame, table string) error {
	if !rows.Has(PredictionColumn) {
		return fmt.Errorf("prediction rows need a %q column", PredictionColumn)
	}

	ids := make([]any, rows.NumRows())
	stamps := make([]any, rows.NumRows())
	now := time.Now().UTC().Format(time.RFC3339Nano)
	for i := range ids {
		ids[i] = uuid.NewString()
		stamps[i] = now
	}

	logged, err := rows.WithColumn(PredictionIDColumn, ids)
	if err == nil {
		logged, err = logged.WithColumn(LoggedAtColumn, stamps)
	}
	if err == nil {
		logged, err = logged.WithTypes(map[string]dataset.ColumnType{
			PredictionColumn:   dataset.Numeric,
			PredictionIDColumn: dataset.Text,
			LoggedAtColumn:     dataset.Text,
		})
	}
	if err == nil {
		err = m.UploadFrame(ctx, logged, table, IfExistsAppend)
	}
	if err != nil {
		m.logger.Error("failed to log prediction", "table", table, "rows", rows.NumRows(), "error", err)
		return fmt.Errorf("failed to log prediction: %w", err)
	}
	return nil
}

func (m *SQLManager) createTableSQL(frame *dataset.Frame, quotedTable string) string {
	defs := make([]string, 0, frame.NumCols())
	for _, name := range frame.Columns() {
		sqlType := m.dialect.TextType
		if frame.Type(name) == dataset.Numeric {
			sqlType = m.dialect.NumericType
		}
		defs = append(defs, pq.QuoteIdentifier(name)+" "+sqlType)
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", quotedTable, strings.Join(defs, ", "))
}

func (m *SQLManager) insertSQL(columns []string, quotedTable string) string {
	names := make([]string, len(columns))
	params := make([]string, len(columns))
	for i, c := range columns {
		names[i] = pq.QuoteIdentifier(c)
		params[i] = m.dialect.Placeholder(i + 1)
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", quotedTable, strings.Join(names, ", "), strings.Join(params, ", "))
}

func scanValue(v any) any {
	switch t := v.(type) {
	case []byte:
		return string(t)
	case time.Time:
		return t.UTC().Format(time.RFC3339)
	default:
		return t
	}
}

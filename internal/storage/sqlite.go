// internal/storage/sqlite.go
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"nutrition-tracker/internal/models"
)

// ErrNotFound is returned when an archived ledger does not exist.
var ErrNotFound = errors.New("ledger not found")

type SQLiteStorage struct {
	db  *sql.DB
	now func() time.Time
}

func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection keeps ":memory:" databases and pragmas consistent.
	db.SetMaxOpenConns(1)

	storage := &SQLiteStorage{db: db, now: time.Now}
	if err := storage.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return storage, nil
}

func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

func (s *SQLiteStorage) initSchema() error {
	schema := `
    PRAGMA foreign_keys = ON;

    CREATE TABLE IF NOT EXISTS ledgers (
        id TEXT PRIMARY KEY,
        title TEXT NOT NULL,
        notes TEXT NOT NULL,
        created_at TEXT NOT NULL
    );

    CREATE TABLE IF NOT EXISTS ledger_rows (
        ledger_id TEXT NOT NULL,
        position INTEGER NOT NULL,
        name TEXT NOT NULL,
        protein REAL NOT NULL,
        carbo REAL NOT NULL,
        fat REAL NOT NULL,
        calories REAL NOT NULL,
        weight REAL NOT NULL,
        PRIMARY KEY (ledger_id, position),
        FOREIGN KEY (ledger_id) REFERENCES ledgers(id) ON DELETE CASCADE
    );

    CREATE INDEX IF NOT EXISTS idx_ledgers_created_at ON ledgers(created_at);
    `

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	return nil
}

// SaveLedger stores a snapshot of doc and returns its id.
func (s *SQLiteStorage) SaveLedger(ctx context.Context, doc models.Document) (string, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	id := uuid.NewString()
	createdAt := s.now().UTC().Format(time.RFC3339Nano)

	ledgerQuery := `
        INSERT INTO ledgers (id, title, notes, created_at)
        VALUES (?, ?, ?, ?)
    `
	if _, err := tx.ExecContext(ctx, ledgerQuery, id, doc.Title, doc.Notes, createdAt); err != nil {
		return "", fmt.Errorf("failed to insert ledger: %w", err)
	}

	rowQuery := `
        INSERT INTO ledger_rows (ledger_id, position, name, protein, carbo, fat, calories, weight)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?)
    `
	for i, row := range doc.Rows {
		v := row.Values
		_, err := tx.ExecContext(ctx, rowQuery,
			id, i, row.Food,
			v[models.Protein], v[models.Carbo], v[models.Fat], v[models.Calories], v[models.Weight])
		if err != nil {
			return "", fmt.Errorf("failed to insert row: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit ledger: %w", err)
	}
	return id, nil
}

// GetLedgers returns archived ledgers, newest first.
func (s *SQLiteStorage) GetLedgers(ctx context.Context, limit int) ([]*models.ArchivedLedger, error) {
	query := `
        SELECT id, title, notes, created_at
        FROM ledgers
        ORDER BY created_at DESC, rowid DESC
        LIMIT ?
    `

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query ledgers: %w", err)
	}

	var ledgers []*models.ArchivedLedger
	for rows.Next() {
		ledger, err := scanLedger(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		ledgers = append(ledgers, ledger)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("failed to iterate ledgers: %w", err)
	}
	// The single connection must be released before the row queries below.
	rows.Close()

	for _, ledger := range ledgers {
		if err := s.loadRowsForLedger(ctx, ledger); err != nil {
			return nil, fmt.Errorf("failed to load rows for ledger %s: %w", ledger.ID, err)
		}
	}

	return ledgers, nil
}

// LoadLedger returns one archived ledger by id.
func (s *SQLiteStorage) LoadLedger(ctx context.Context, id string) (*models.ArchivedLedger, error) {
	query := `
        SELECT id, title, notes, created_at
        FROM ledgers
        WHERE id = ?
    `

	ledger, err := scanLedger(s.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}

	if err := s.loadRowsForLedger(ctx, ledger); err != nil {
		return nil, fmt.Errorf("failed to load rows for ledger %s: %w", id, err)
	}
	return ledger, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanLedger(row scanner) (*models.ArchivedLedger, error) {
	ledger := &models.ArchivedLedger{}
	var createdAtStr string

	err := row.Scan(&ledger.ID, &ledger.Document.Title, &ledger.Document.Notes, &createdAtStr)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan ledger: %w", err)
	}

	if ledger.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAtStr); err != nil {
		return nil, fmt.Errorf("failed to parse created_at: %w", err)
	}
	return ledger, nil
}

func (s *SQLiteStorage) loadRowsForLedger(ctx context.Context, ledger *models.ArchivedLedger) error {
	query := `
        SELECT name, protein, carbo, fat, calories, weight
        FROM ledger_rows
        WHERE ledger_id = ?
        ORDER BY position
    `

	rows, err := s.db.QueryContext(ctx, query, ledger.ID)
	if err != nil {
		return fmt.Errorf("failed to query rows: %w", err)
	}
	defer rows.Close()

	out := []models.Row{}
	for rows.Next() {
		var row models.Row
		v := &row.Values
		err := rows.Scan(&row.Food,
			&v[models.Protein], &v[models.Carbo], &v[models.Fat], &v[models.Calories], &v[models.Weight])
		if err != nil {
			return fmt.Errorf("failed to scan row: %w", err)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to iterate rows: %w", err)
	}

	ledger.Document.Rows = out
	return nil
}

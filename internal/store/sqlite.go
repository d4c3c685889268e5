package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/ashureev/emotext/internal/domain"
	"github.com/ashureev/emotext/internal/shared"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements Repository using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite creates a new SQLite-backed repository.
func NewSQLite(dbPath string) (Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	// Open database with WAL mode for better concurrency.
	dsn := dbPath + "?_journal=WAL&_sync=NORMAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return store, nil
}

// initSchema creates the tables if they do not exist. It is safe to run
// on every startup and never destroys existing rows.
func (s *SQLiteStore) initSchema() error {
	query := `
	PRAGMA busy_timeout = 5000;
	CREATE TABLE IF NOT EXISTS accounts (
		id TEXT PRIMARY KEY,
		username TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		first_name TEXT NOT NULL,
		last_name TEXT NOT NULL,
		age INTEGER NOT NULL,
		gender TEXT NOT NULL,
		email TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS page_visits (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		page_name TEXT NOT NULL,
		visited_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS predictions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		raw_text TEXT NOT NULL,
		predicted_label TEXT NOT NULL,
		confidence REAL NOT NULL,
		predicted_at INTEGER NOT NULL
	);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// CreateAccount inserts a new account row.
func (s *SQLiteStore) CreateAccount(ctx context.Context, account *domain.Account) error {
	query := `
	INSERT INTO accounts (id, username, password_hash, first_name, last_name, age, gender, email, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := s.db.ExecContext(ctx, query,
		account.ID, account.Username, account.PasswordHash,
		account.FirstName, account.LastName, account.Age,
		string(account.Gender), account.Email, account.CreatedAt.Unix(),
	)
	if err != nil {
		if shared.IsUniqueConstraintError(err) {
			return ErrDuplicateUsername
		}
		return fmt.Errorf("insert account: %w", err)
	}
	return nil
}

// GetAccountByUsername retrieves an account by username.
func (s *SQLiteStore) GetAccountByUsername(ctx context.Context, username string) (*domain.Account, error) {
	query := `
		SELECT id, username, password_hash, first_name, last_name, age, gender, email, created_at
		FROM accounts WHERE username = ?`

	row := s.db.QueryRowContext(ctx, query, username)

	account, err := scanAccount(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan account row: %w", err)
	}
	return account, nil
}

// ListAccounts retrieves all accounts in registration order.
func (s *SQLiteStore) ListAccounts(ctx context.Context) ([]*domain.Account, error) {
	query := `
		SELECT id, username, password_hash, first_name, last_name, age, gender, email, created_at
		FROM accounts ORDER BY created_at, username`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query accounts: %w", err)
	}
	defer closeRows(rows, "accounts")

	var accounts []*domain.Account
	for rows.Next() {
		account, err := scanAccount(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan account row: %w", err)
		}
		accounts = append(accounts, account)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate accounts: %w", err)
	}
	return accounts, nil
}

func scanAccount(scan func(dest ...any) error) (*domain.Account, error) {
	var account domain.Account
	var gender string
	var createdAt int64

	err := scan(
		&account.ID, &account.Username, &account.PasswordHash,
		&account.FirstName, &account.LastName, &account.Age,
		&gender, &account.Email, &createdAt,
	)
	if err != nil {
		return nil, err
	}

	account.Gender = domain.Gender(gender)
	account.CreatedAt = time.Unix(createdAt, 0)
	return &account, nil
}

// AddPageVisit appends one page-visit row.
func (s *SQLiteStore) AddPageVisit(ctx context.Context, page string, at time.Time) error {
	query := `INSERT INTO page_visits (page_name, visited_at) VALUES (?, ?)`
	if _, err := s.db.ExecContext(ctx, query, page, at.Unix()); err != nil {
		return fmt.Errorf("insert page visit: %w", err)
	}
	return nil
}

// AddPrediction appends one prediction row.
func (s *SQLiteStore) AddPrediction(ctx context.Context, rec *domain.PredictionRecord) error {
	query := `INSERT INTO predictions (raw_text, predicted_label, confidence, predicted_at) VALUES (?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, query,
		rec.RawText, rec.PredictedLabel, rec.Confidence, rec.PredictedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("insert prediction: %w", err)
	}
	return nil
}

// ListPageVisits retrieves the full visit log in insertion order.
func (s *SQLiteStore) ListPageVisits(ctx context.Context) ([]*domain.PageVisitRecord, error) {
	query := `SELECT page_name, visited_at FROM page_visits ORDER BY id`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query page visits: %w", err)
	}
	defer closeRows(rows, "page visits")

	var visits []*domain.PageVisitRecord
	for rows.Next() {
		var visit domain.PageVisitRecord
		var visitedAt int64
		if err := rows.Scan(&visit.PageName, &visitedAt); err != nil {
			return nil, fmt.Errorf("scan page visit row: %w", err)
		}
		visit.VisitedAt = time.Unix(visitedAt, 0)
		visits = append(visits, &visit)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate page visits: %w", err)
	}
	return visits, nil
}

// ListPredictions retrieves the full prediction log in insertion order.
func (s *SQLiteStore) ListPredictions(ctx context.Context) ([]*domain.PredictionRecord, error) {
	query := `SELECT raw_text, predicted_label, confidence, predicted_at FROM predictions ORDER BY id`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query predictions: %w", err)
	}
	defer closeRows(rows, "predictions")

	var predictions []*domain.PredictionRecord
	for rows.Next() {
		var rec domain.PredictionRecord
		var predictedAt int64
		if err := rows.Scan(&rec.RawText, &rec.PredictedLabel, &rec.Confidence, &predictedAt); err != nil {
			return nil, fmt.Errorf("scan prediction row: %w", err)
		}
		rec.PredictedAt = time.Unix(predictedAt, 0)
		predictions = append(predictions, &rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate predictions: %w", err)
	}
	return predictions, nil
}

// CountVisitsByPage groups the visit log by page name. Iteration order
// of the returned map is unspecified; the presentation layer sorts.
func (s *SQLiteStore) CountVisitsByPage(ctx context.Context) (map[string]int64, error) {
	query := `SELECT page_name, COUNT(*) FROM page_visits GROUP BY page_name`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query visit counts: %w", err)
	}
	defer closeRows(rows, "visit counts")

	counts := make(map[string]int64)
	for rows.Next() {
		var page string
		var count int64
		if err := rows.Scan(&page, &count); err != nil {
			return nil, fmt.Errorf("scan visit count row: %w", err)
		}
		counts[page] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate visit counts: %w", err)
	}
	return counts, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}

func closeRows(rows *sql.Rows, what string) {
	if err := rows.Close(); err != nil {
		slog.Warn("failed to close rows", "query", what, "error", err)
	}
}

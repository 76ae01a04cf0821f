package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-sql-driver/mysql"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/routecrawl/internal/model"
)

// DBFileName is the SQLite database file created inside the database directory.
const DBFileName = "routecrawl.db"

// Dialect identifies the SQL flavour spoken by a database handle.
type Dialect string

const (
	// DialectSQLite is the modernc.org/sqlite driver.
	DialectSQLite Dialect = "sqlite"

	// DialectMySQL is the go-sql-driver/mysql driver.
	DialectMySQL Dialect = "mysql"
)

// storedAtLayout is accepted by both SQLite (TEXT) and MySQL (DATETIME(6)).
const storedAtLayout = "2006-01-02 15:04:05.000000"

// SQL stores results in a relational database.
type SQL struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dialect selects schema and insert statements.
	dialect Dialect

	// path is the SQLite database file, empty for MySQL.
	path string
}

var _ Storage = (*SQL)(nil)

// Options configures how a SQLite database is opened.
type Options struct {
	// CreateIfNotExists creates the directory and database file if missing.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging.
	EnableWAL bool
}

// DefaultOptions returns the options used by the crawl command.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// OpenSQLite opens or creates the SQLite database inside dbDir.
func OpenSQLite(dbDir string, opts Options) (*SQL, error) {
	dbPath := filepath.Join(dbDir, DBFileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else if err := os.MkdirAll(dbDir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// mode=rw refuses to create a missing file, mode=rwc allows it.
	dsn := dbPath + "?mode=rw"
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite supports a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	s, err := NewSQL(db, DialectSQLite)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	s.path = dbPath
	return s, nil
}

// OpenMySQL connects to the MySQL database described by dsn,
// e.g. "user:pass@tcp(127.0.0.1:3306)/routecrawl".
func OpenMySQL(dsn string) (*SQL, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("invalid mysql dsn: %w", err)
	}
	cfg.AllowNativePasswords = true

	db, err := sql.Open("mysql", cfg.FormatDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetConnMaxLifetime(3 * time.Minute)
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)

	if err := db.PingContext(context.Background()); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to mysql: %w", err)
	}

	s, err := NewSQL(db, DialectMySQL)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// NewSQL wraps an open database handle and creates the schema if needed.
func NewSQL(db *sql.DB, dialect Dialect) (*SQL, error) {
	s := &SQL{db: db, dialect: dialect}
	if err := s.createTables(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return s, nil
}

// Path returns the SQLite database file path, or "" for MySQL.
func (s *SQL) Path() string {
	return s.path
}

// Close closes the database connection.
func (s *SQL) Close() error {
	return s.db.Close()
}

const sqliteSchema = `CREATE TABLE IF NOT EXISTS results (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	url_key TEXT NOT NULL UNIQUE,
	url TEXT NOT NULL,
	links TEXT NOT NULL,
	body BLOB,
	body_hash TEXT NOT NULL DEFAULT '',
	hits INTEGER NOT NULL DEFAULT 1,
	stored_at TEXT NOT NULL
)`

const mysqlSchema = `CREATE TABLE IF NOT EXISTS results (
	id BIGINT NOT NULL AUTO_INCREMENT PRIMARY KEY,
	url_key VARCHAR(768) NOT NULL,
	url TEXT NOT NULL,
	links MEDIUMTEXT NOT NULL,
	body LONGBLOB,
	body_hash CHAR(64) NOT NULL DEFAULT '',
	hits INT NOT NULL DEFAULT 1,
	stored_at DATETIME(6) NOT NULL,
	UNIQUE KEY uq_results_url_key (url_key)
) CHARACTER SET utf8mb4`

// createTables creates the results table if it doesn't exist.
func (s *SQL) createTables(ctx context.Context) error {
	schema := sqliteSchema
	if s.dialect == DialectMySQL {
		schema = mysqlSchema
	}
	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// insertQuery returns the dialect's insert that silently skips existing keys.
func (s *SQL) insertQuery() string {
	verb := "INSERT OR IGNORE"
	if s.dialect == DialectMySQL {
		verb = "INSERT IGNORE"
	}
	return verb + ` INTO results (url_key, url, links, body, body_hash, hits, stored_at)
	VALUES (?, ?, ?, ?, ?, 1, ?)`
}

// IsProcessed implements Storage.
func (s *SQL) IsProcessed(ctx context.Context, url string) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM results WHERE url_key = ?`, NormalizeURL(url),
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check result: %w", err)
	}
	return count > 0, nil
}

// StoreResult implements Storage.
func (s *SQL) StoreResult(ctx context.Context, url string, links []string, body []byte) error {
	res := model.NewResult(url, copyLinks(links), body)

	linksJSON, err := json.Marshal(res.Links)
	if err != nil {
		return fmt.Errorf("failed to serialize links: %w", err)
	}

	_, err = s.db.ExecContext(ctx, s.insertQuery(),
		NormalizeURL(url),
		res.URL,
		string(linksJSON),
		res.Body,
		res.BodyHash,
		res.StoredAt.UTC().Format(storedAtLayout),
	)
	if err != nil {
		return fmt.Errorf("failed to store result: %w", err)
	}
	return nil
}

const selectColumns = `SELECT url, links, body, body_hash, hits, stored_at FROM results`

// FetchResult implements Storage.
// The increment and the read run in one transaction so the returned hit
// count includes this call's increment.
func (s *SQL) FetchResult(ctx context.Context, url string) (res *model.Result, err error) {
	key := NormalizeURL(url)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	updated, err := tx.ExecContext(ctx, `UPDATE results SET hits = hits + 1 WHERE url_key = ?`, key)
	if err != nil {
		return nil, fmt.Errorf("failed to increment hits: %w", err)
	}
	n, err := updated.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to increment hits: %w", err)
	}
	if n == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, url)
	}

	res, err = scanResult(tx.QueryRowContext(ctx, selectColumns+` WHERE url_key = ?`, key))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, url)
	}
	if err != nil {
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return res, nil
}

// Data implements Storage.
func (s *SQL) Data(ctx context.Context) ([]*model.Result, error) {
	rows, err := s.db.QueryContext(ctx, selectColumns+` ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query results: %w", err)
	}
	defer rows.Close()

	results := make([]*model.Result, 0)
	for rows.Next() {
		res, err := scanResult(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, res)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate results: %w", err)
	}
	return results, nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanResult(row rowScanner) (*model.Result, error) {
	var (
		res       model.Result
		linksJSON string
		storedAt  string
	)
	err := row.Scan(&res.URL, &linksJSON, &res.Body, &res.BodyHash, &res.Hits, &storedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read result: %w", err)
	}

	if err := json.Unmarshal([]byte(linksJSON), &res.Links); err != nil {
		return nil, fmt.Errorf("failed to parse links: %w", err)
	}
	if res.Links == nil {
		res.Links = []string{}
	}
	res.StoredAt = parseTimestamp(storedAt)
	return &res, nil
}

// timestampFormats contains the layouts stored_at may come back in.
// MySQL returns DATETIME as text, or as time.Time rendered in RFC3339Nano
// when the DSN enables parseTime.
var timestampFormats = []string{
	storedAtLayout,
	"2006-01-02 15:04:05",
	time.RFC3339Nano,
	time.RFC3339,
}

// parseTimestamp tries each known layout and returns the zero time if none match.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

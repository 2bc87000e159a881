// Package engine provides sql database engines for storage, sqlite and postgres.
package engine

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"     // postgres driver and identifier quoting
	_ "modernc.org/sqlite" // sqlite driver loaded here
)

// Type is a type of database engine
type Type string

// enum of supported database engines
const (
	Unknown  Type = ""
	Sqlite   Type = "sqlite"
	Postgres Type = "postgres"
)

// SQL is a wrapper for sqlx.DB with type.
// Type allows distinguishing between different database engines.
type SQL struct {
	sqlx.DB
	gid    string // instance id, to allow per-instance storage in the same database
	dbType Type   // type of the database engine
}

// New makes a database engine from connection url. Postgres is selected by postgres:// (or postgresql://)
// scheme, sqlite by file:, sqlite:// prefixes, .db and .sqlite suffixes or :memory:
func New(ctx context.Context, connURL, gid string) (*SQL, error) {
	if connURL == "" {
		return nil, fmt.Errorf("connection URL is empty")
	}

	switch {
	case strings.HasPrefix(connURL, "postgres://"), strings.HasPrefix(connURL, "postgresql://"):
		return NewPostgres(ctx, connURL, gid)
	case strings.HasPrefix(connURL, "sqlite://"):
		return NewSqlite(strings.TrimPrefix(connURL, "sqlite://"), gid)
	case strings.HasPrefix(connURL, "file://"):
		return NewSqlite(strings.TrimPrefix(connURL, "file://"), gid)
	case strings.HasPrefix(connURL, "file:"):
		return NewSqlite(strings.TrimPrefix(connURL, "file:"), gid)
	case connURL == ":memory:", strings.HasSuffix(connURL, ".db"), strings.HasSuffix(connURL, ".sqlite"):
		return NewSqlite(connURL, gid)
	}
	return nil, fmt.Errorf("unsupported database type in connection string %q", connURL)
}

// NewSqlite creates a new sqlite database
func NewSqlite(file, gid string) (*SQL, error) {
	db, err := sqlx.Connect("sqlite", file)
	if err != nil {
		return &SQL{}, err
	}
	if err := setSqlitePragma(db, file); err != nil {
		return &SQL{}, err
	}
	return &SQL{DB: *db, gid: gid, dbType: Sqlite}, nil
}

// NewPostgres creates a new postgres database. The database is created if it doesn't exist yet.
func NewPostgres(ctx context.Context, connURL, gid string) (*SQL, error) {
	u, err := url.Parse(connURL)
	if err != nil {
		return &SQL{}, fmt.Errorf("invalid postgres connection url: %w", err)
	}
	dbName := strings.TrimPrefix(u.Path, "/")
	if dbName == "" {
		return &SQL{}, fmt.Errorf("database name not specified in %s", u.Redacted())
	}

	if err = ensurePostgresDB(ctx, *u, dbName); err != nil {
		return &SQL{}, err
	}

	db, err := sqlx.ConnectContext(ctx, "postgres", connURL)
	if err != nil {
		return &SQL{}, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	return &SQL{DB: *db, gid: gid, dbType: Postgres}, nil
}

// GID returns the instance id
func (e *SQL) GID() string {
	return e.gid
}

// Type returns the database engine type
func (e *SQL) Type() Type {
	return e.dbType
}

// MakeLock creates a new lock for the database engine
func (e *SQL) MakeLock() RWLocker {
	if e.dbType == Sqlite {
		return new(sync.RWMutex) // sqlite need locking
	}
	return &NoopLocker{} // other engines don't need locking
}

// Adopt converts "?" placeholders to the engine's format, $1, $2... for postgres.
// Question marks inside single-quoted literals are kept.
func (e *SQL) Adopt(query string) string {
	if e.dbType != Postgres {
		return query
	}

	var sb strings.Builder
	sb.Grow(len(query) + 8)
	n, inLiteral := 0, false
	for _, r := range query {
		switch {
		case r == '\'':
			inLiteral = !inLiteral
			sb.WriteRune(r)
		case r == '?' && !inLiteral:
			n++
			fmt.Fprintf(&sb, "$%d", n)
		default:
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

// TableConfig defines queries and migration for a table
type TableConfig struct {
	Name          string
	CreateTable   DBCmd
	CreateIndexes DBCmd
	MigrateFunc   func(ctx context.Context, tx *sqlx.Tx, gid string) error
	QueriesMap    *QueryMap
}

// InitTable creates table and indexes if missing and runs migration, all in one transaction
func InitTable(ctx context.Context, db *SQL, cfg TableConfig) error {
	if db == nil {
		return fmt.Errorf("db connection is nil")
	}

	createTable, err := cfg.QueriesMap.Pick(db.Type(), cfg.CreateTable)
	if err != nil {
		return fmt.Errorf("failed to get create table query: %w", err)
	}
	createIndexes, err := cfg.QueriesMap.Pick(db.Type(), cfg.CreateIndexes)
	if err != nil {
		return fmt.Errorf("failed to get create indexes query: %w", err)
	}

	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err = tx.ExecContext(ctx, createTable); err != nil {
		return fmt.Errorf("failed to create %s table: %w", cfg.Name, err)
	}

	if cfg.MigrateFunc != nil {
		if err = cfg.MigrateFunc(ctx, tx, db.GID()); err != nil {
			return fmt.Errorf("failed to migrate %s: %w", cfg.Name, err)
		}
	}

	if _, err = tx.ExecContext(ctx, createIndexes); err != nil {
		return fmt.Errorf("failed to create %s indexes: %w", cfg.Name, err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func setSqlitePragma(db *sqlx.DB, file string) error {
	pragmas := map[string]string{"busy_timeout": "5000"}
	if file != ":memory:" {
		// in-memory database can't use wal
		pragmas["journal_mode"] = "WAL"
	}
	for name, value := range pragmas {
		if _, err := db.Exec("PRAGMA " + name + " = " + value); err != nil {
			return fmt.Errorf("failed to set pragma %s: %w", name, err)
		}
	}
	return nil
}

// ensurePostgresDB connects to the maintenance database of the server and creates dbName if missing
func ensurePostgresDB(ctx context.Context, u url.URL, dbName string) error {
	u.Path = "/postgres"
	admin, err := sqlx.ConnectContext(ctx, "postgres", u.String())
	if err != nil {
		return fmt.Errorf("failed to connect to postgres: %w", err)
	}
	defer admin.Close()

	var exists bool
	if err = admin.GetContext(ctx, &exists, "SELECT EXISTS(SELECT 1 FROM pg_database WHERE datname = $1)", dbName); err != nil {
		return fmt.Errorf("failed to check database %s: %w", dbName, err)
	}
	if exists {
		return nil
	}
	if _, err = admin.ExecContext(ctx, "CREATE DATABASE "+pq.QuoteIdentifier(dbName)); err != nil {
		return fmt.Errorf("failed to create database %s: %w", dbName, err)
	}
	return nil
}

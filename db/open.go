// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package db

import (
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite"
)

// ParseDialect maps a DATABASE_TYPE value to a Dialect
func ParseDialect(s string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "postgres", "postgresql", "pg":
		return DialectPostgres, nil
	case "sqlite", "sqlite3":
		return DialectSQLite, nil
	}
	return "", fmt.Errorf("unsupported database type %q", s)
}

// Open connects to the database, verifies the connection and creates the schema.
func Open(dialect Dialect, url string) (*sql.DB, error) {
	if strings.TrimSpace(url) == "" {
		return nil, fmt.Errorf("database URL is required")
	}

	var driver string
	switch dialect {
	case DialectPostgres:
		driver = "postgres"
	case DialectSQLite:
		driver = "sqlite"
	default:
		return nil, fmt.Errorf("unsupported dialect %q", dialect)
	}

	dsn := url
	if dialect == DialectSQLite {
		dsn = SQLiteDSN(url)
	}

	conn, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s db: %w", dialect, err)
	}

	if dialect == DialectSQLite {
		// One connection: in-memory databases are per-connection and SQLite
		// allows a single writer anyway
		conn.SetMaxOpenConns(1)
	}

	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("ping %s db: %w", dialect, err)
	}

	if err := CreateSchema(conn, dialect); err != nil {
		_ = conn.Close()
		return nil, err
	}

	return conn, nil
}

// sqlitePragmas are applied by the driver to every new connection
const sqlitePragmas = "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"

// SQLiteDSN appends the connection pragmas to a SQLite path or file: URI
func SQLiteDSN(url string) string {
	sep := "?"
	if strings.Contains(url, "?") {
		sep = "&"
	}
	return url + sep + sqlitePragmas
}

// Rebind rewrites ? placeholders into the dialect's bind syntax
func Rebind(dialect Dialect, query string) string {
	if dialect != DialectPostgres {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			fmt.Fprintf(&b, "$%d", n)
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

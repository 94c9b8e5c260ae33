// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package db opens the SQL database and creates its schema.

# Opening

Open selects the driver from the dialect, pings, and creates the schema:

	conn, err := db.Open(db.DialectSQLite, "file:livepoll.db")
	conn, err := db.Open(db.DialectPostgres, "postgres://...")

PostgreSQL uses github.com/lib/pq; SQLite uses modernc.org/sqlite (pure Go,
no cgo) and is the local persisted mode.

# Schema Creation

CreateSchema initializes all required tables:

	if err := db.CreateSchema(conn, db.DialectPostgres); err != nil {
		log.Fatal(err)
	}

Safe to call multiple times - uses IF NOT EXISTS for all tables and indexes.

# Tables

  - profile: signed-in identities (unique username)
  - poll: question, options as a JSON array, owner, visibility
  - vote: one option index per row

# Relationships

	profile 1──* poll (owner, nullable)
	poll 1──* vote

# Placeholders

Queries are written with ? and rewritten for PostgreSQL:

	db.Rebind(db.DialectPostgres, "SELECT * FROM vote WHERE poll_id = ?")
	// SELECT * FROM vote WHERE poll_id = $1
*/
package db

// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package main provides the entry point for the livepoll API server.

livepoll is a live polling service: create a question with two to ten
options, collect votes, and watch the results pie update as votes arrive.

# Starting the Server

With no database settings the server uses a SQLite file:

	TOKEN_SECRET=dev DATABASE_URL=livepoll.db go run .

Or with flags:

	go run . -p 3318 -t postgres -d "postgres://..." -token-secret dev

Variables may also be placed in a .env file in the working directory.

# Configuration

Required settings:

  - TOKEN_SECRET (-token-secret): HMAC secret for bearer tokens
  - DATABASE_URL (-d): required for sqlite and postgres

Optional settings:

  - PORT (-p): Server port (default: 3318)
  - DATABASE_TYPE (-t): sqlite, postgres or memory (default: sqlite)
  - FEED_BACKEND (-feed): memory, redis or nats (default: memory)
  - REDIS_URL (-redis), NATS_URL (-nats): feed broker addresses
  - TOKEN_TTL: token lifetime (default: 24h)
  - REQUEST_TIMEOUT: per-request deadline (default: 10s)
  - REQUIRE_SIGN_IN_TO_VOTE: refuse anonymous votes
  - ALLOWED_ORIGINS: comma-separated CORS origins
  - LOG_LEVEL (-log-level), LOG_FORMAT: text or json
  - OTEL_ENDPOINT: OTLP/HTTP collector for traces

# Architecture

  - handlers: HTTP request handlers (polls, voting, identity, live)
  - router: Route definitions using Go 1.22+ routing
  - middleware: CORS, logging, identity, error mapping
  - service: poll operations over a store and a change feed
  - store: persistence (SQL or in-memory)
  - feed: vote change feed (in-process, Redis or NATS)
  - live: live tally views fed by the change feed
  - tally: vote aggregation and pie geometry
  - auth: username sign-in and bearer tokens
  - apperr: typed errors shared by every layer
  - metrics, telemetry: Prometheus metrics and OpenTelemetry tracing
  - db: schema creation
  - cliparse: Configuration parsing

See package documentation for each component.
*/
package main

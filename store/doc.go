// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package store is the record store for polls, votes and profiles.

SQLStore runs on PostgreSQL or SQLite through database/sql; MemoryStore keeps
everything in maps and is used for tests and throwaway deployments.

Errors are classified with apperr: missing rows are NotFound, unique
violations (a second vote by the same voter, a taken username) are Conflict,
and any other failure is Store.
*/
package store

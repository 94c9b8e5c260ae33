// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/danielhkuo/livepoll/apperr"
	"github.com/danielhkuo/livepoll/db"
	"github.com/danielhkuo/livepoll/models"
)

// SQLStore implements Store on PostgreSQL or SQLite
type SQLStore struct {
	db      *sql.DB
	dialect db.Dialect
}

func NewSQLStore(conn *sql.DB, dialect db.Dialect) *SQLStore {
	return &SQLStore{db: conn, dialect: dialect}
}

// OpenSQL opens the database, creates the schema and wraps it in a store
func OpenSQL(dialect db.Dialect, url string) (*SQLStore, error) {
	conn, err := db.Open(dialect, url)
	if err != nil {
		return nil, err
	}
	return NewSQLStore(conn, dialect), nil
}

// DB exposes the underlying connection (tests and health checks)
func (s *SQLStore) DB() *sql.DB {
	return s.db
}

func (s *SQLStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLStore) q(query string) string {
	return db.Rebind(s.dialect, query)
}

// CreatePoll inserts a poll with its options encoded as a JSON array
func (s *SQLStore) CreatePoll(ctx context.Context, poll models.Poll) error {
	options, err := json.Marshal(poll.Options)
	if err != nil {
		return apperr.Internal("encode options", err)
	}

	var owner sql.NullString
	if poll.OwnerID != nil {
		owner = sql.NullString{String: *poll.OwnerID, Valid: true}
	}

	_, err = s.db.ExecContext(ctx, s.q(`
		INSERT INTO poll (id, question, options, owner_id, is_public, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`), poll.ID, poll.Question, string(options), owner, poll.Public, poll.CreatedAt)
	if err != nil {
		return classify("insert poll", err)
	}
	return nil
}

const pollColumns = `id, question, options, owner_id, is_public, created_at`

func (s *SQLStore) ListPolls(ctx context.Context, filter ListFilter) ([]models.Poll, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if filter.OwnerID != "" {
		rows, err = s.db.QueryContext(ctx, s.q(`
			SELECT `+pollColumns+`
			FROM poll
			WHERE owner_id = ?
			ORDER BY created_at DESC, id DESC
			LIMIT ?
		`), filter.OwnerID, filter.EffectiveLimit())
	} else {
		rows, err = s.db.QueryContext(ctx, s.q(`
			SELECT `+pollColumns+`
			FROM poll
			WHERE is_public = ?
			ORDER BY created_at DESC, id DESC
			LIMIT ?
		`), true, filter.EffectiveLimit())
	}
	if err != nil {
		return nil, apperr.Store("list polls", err)
	}
	defer rows.Close()

	polls := []models.Poll{}
	for rows.Next() {
		poll, err := scanPoll(rows)
		if err != nil {
			return nil, apperr.Store("scan poll", err)
		}
		polls = append(polls, poll)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Store("list polls", err)
	}
	return polls, nil
}

func (s *SQLStore) GetPoll(ctx context.Context, id string) (models.Poll, error) {
	row := s.db.QueryRowContext(ctx, s.q(`
		SELECT `+pollColumns+`
		FROM poll
		WHERE id = ?
	`), id)

	poll, err := scanPoll(row)
	if err == sql.ErrNoRows {
		return models.Poll{}, apperr.NotFound("poll", id)
	}
	if err != nil {
		return models.Poll{}, apperr.Store("get poll", err)
	}
	return poll, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPoll(sc scanner) (models.Poll, error) {
	var (
		poll    models.Poll
		options string
		owner   sql.NullString
	)
	if err := sc.Scan(&poll.ID, &poll.Question, &options, &owner, &poll.Public, &poll.CreatedAt); err != nil {
		return models.Poll{}, err
	}
	if err := json.Unmarshal([]byte(options), &poll.Options); err != nil {
		return models.Poll{}, fmt.Errorf("decode options of poll %s: %w", poll.ID, err)
	}
	if owner.Valid {
		poll.OwnerID = &owner.String
	}
	return poll, nil
}

func (s *SQLStore) ListVotes(ctx context.Context, pollID string) ([]models.Vote, error) {
	rows, err := s.db.QueryContext(ctx, s.q(`
		SELECT id, poll_id, option_index, voter_id, created_at
		FROM vote
		WHERE poll_id = ?
	`), pollID)
	if err != nil {
		return nil, apperr.Store("list votes", err)
	}
	defer rows.Close()

	votes := []models.Vote{}
	for rows.Next() {
		var (
			v     models.Vote
			voter sql.NullString
		)
		if err := rows.Scan(&v.ID, &v.PollID, &v.OptionIndex, &voter, &v.CreatedAt); err != nil {
			return nil, apperr.Store("scan vote", err)
		}
		if voter.Valid {
			v.VoterID = &voter.String
		}
		votes = append(votes, v)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Store("list votes", err)
	}
	return votes, nil
}

func (s *SQLStore) InsertVote(ctx context.Context, vote models.Vote) error {
	var voter sql.NullString
	if vote.VoterID != nil {
		voter = sql.NullString{String: *vote.VoterID, Valid: true}
	}

	_, err := s.db.ExecContext(ctx, s.q(`
		INSERT INTO vote (id, poll_id, option_index, voter_id, created_at)
		VALUES (?, ?, ?, ?, ?)
	`), vote.ID, vote.PollID, vote.OptionIndex, voter, vote.CreatedAt)
	if err != nil {
		return classify("insert vote", err)
	}
	return nil
}

func (s *SQLStore) HasVoted(ctx context.Context, pollID, voterID string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, s.q(`
		SELECT EXISTS(
			SELECT 1 FROM vote
			WHERE poll_id = ? AND voter_id = ?
		)
	`), pollID, voterID).Scan(&exists)
	if err != nil {
		return false, apperr.Store("check vote", err)
	}
	return exists, nil
}

func (s *SQLStore) CreateProfile(ctx context.Context, profile models.Profile) error {
	_, err := s.db.ExecContext(ctx, s.q(`
		INSERT INTO profile (id, username, created_at)
		VALUES (?, ?, ?)
	`), profile.ID, profile.Username, profile.CreatedAt)
	if err != nil {
		return classify("insert profile", err)
	}
	return nil
}

func (s *SQLStore) GetProfile(ctx context.Context, id string) (models.Profile, error) {
	return s.getProfile(ctx, "id", id)
}

func (s *SQLStore) GetProfileByUsername(ctx context.Context, username string) (models.Profile, error) {
	return s.getProfile(ctx, "username", username)
}

func (s *SQLStore) getProfile(ctx context.Context, column, value string) (models.Profile, error) {
	var p models.Profile
	err := s.db.QueryRowContext(ctx, s.q(`
		SELECT id, username, created_at
		FROM profile
		WHERE `+column+` = ?
	`), value).Scan(&p.ID, &p.Username, &p.CreatedAt)
	if err == sql.ErrNoRows {
		return models.Profile{}, apperr.NotFound("profile", value)
	}
	if err != nil {
		return models.Profile{}, apperr.Store("get profile", err)
	}
	return p, nil
}

// classify maps driver constraint errors onto the apperr taxonomy
func classify(op string, err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "23505": // unique_violation
			return &apperr.Error{Kind: apperr.KindConflict, Op: op, Message: "record already exists", Err: err}
		case "23503": // foreign_key_violation
			return &apperr.Error{Kind: apperr.KindNotFound, Op: op, Message: "referenced record not found", Err: err}
		}
	}

	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		switch liteErr.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return &apperr.Error{Kind: apperr.KindConflict, Op: op, Message: "record already exists", Err: err}
		case sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY:
			return &apperr.Error{Kind: apperr.KindNotFound, Op: op, Message: "referenced record not found", Err: err}
		}
		// Primary result code only (extended codes disabled)
		if liteErr.Code()&0xff == sqlite3.SQLITE_CONSTRAINT {
			msg := liteErr.Error()
			switch {
			case strings.Contains(msg, "UNIQUE"):
				return &apperr.Error{Kind: apperr.KindConflict, Op: op, Message: "record already exists", Err: err}
			case strings.Contains(msg, "FOREIGN KEY"):
				return &apperr.Error{Kind: apperr.KindNotFound, Op: op, Message: "referenced record not found", Err: err}
			}
		}
	}

	return apperr.Store(op, err)
}

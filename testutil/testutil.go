// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/danielhkuo/livepoll/auth"
	"github.com/danielhkuo/livepoll/cliparse"
	"github.com/danielhkuo/livepoll/db"
	"github.com/danielhkuo/livepoll/models"
	"github.com/danielhkuo/livepoll/store"
)

// TestTokenSecret signs tokens issued in tests
const TestTokenSecret = "test-token-secret"

// SetupTestStore opens a fresh in-memory SQLite store with the full schema
func SetupTestStore(t *testing.T) *store.SQLStore {
	t.Helper()

	s, err := store.OpenSQL(db.DialectSQLite, ":memory:")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// GetTestConfig returns a standard test configuration
func GetTestConfig() cliparse.Config {
	return cliparse.Config{
		Port:           3318,
		DatabaseType:   "sqlite",
		DatabaseURL:    ":memory:",
		FeedBackend:    "memory",
		TokenSecret:    TestTokenSecret,
		TokenTTL:       time.Hour,
		RequestTimeout: 5 * time.Second,
		LogLevel:       "info",
	}
}

// NewTestProvider returns an identity provider backed by s
func NewTestProvider(s store.Store, cfg cliparse.Config) *auth.Provider {
	return auth.NewProvider(cfg.TokenSecret, cfg.TokenTTL, s)
}

// CreateTestPoll stores a public poll with the given options
func CreateTestPoll(t *testing.T, s store.Store, question string, options ...string) models.Poll {
	t.Helper()

	poll := models.Poll{
		ID:        uuid.NewString(),
		Question:  question,
		Options:   options,
		Public:    true,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.CreatePoll(context.Background(), poll); err != nil {
		t.Fatalf("Failed to create test poll: %v", err)
	}
	return poll
}

// AddTestVotes stores one anonymous vote per option index
func AddTestVotes(t *testing.T, s store.Store, pollID string, indexes ...int) {
	t.Helper()

	for _, idx := range indexes {
		vote := models.Vote{
			ID:          uuid.NewString(),
			PollID:      pollID,
			OptionIndex: idx,
			CreatedAt:   time.Now().UTC(),
		}
		if err := s.InsertVote(context.Background(), vote); err != nil {
			t.Fatalf("Failed to create test vote: %v", err)
		}
	}
}

// SignInTestUser signs a username in and returns the session
func SignInTestUser(t *testing.T, p *auth.Provider, username string) models.SignInResponse {
	t.Helper()

	session, err := p.SignIn(context.Background(), username)
	if err != nil {
		t.Fatalf("Failed to sign in test user: %v", err)
	}
	return session
}

// AuthHeader returns request headers carrying a bearer token
func AuthHeader(token string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + token}
}

// MakeRequest creates an HTTP test request
func MakeRequest(method, path string, body any, headers map[string]string) *http.Request {
	var req *http.Request
	if body != nil {
		jsonBody, _ := json.Marshal(body)
		req = httptest.NewRequest(method, path, bytes.NewReader(jsonBody))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}

	for k, v := range headers {
		req.Header.Set(k, v)
	}

	return req
}

// WithIdentity attaches a verified identity to the request context, the way
// the identity middleware does
func WithIdentity(t *testing.T, req *http.Request, p *auth.Provider, token string) *http.Request {
	t.Helper()

	id, err := p.Verify(token)
	if err != nil {
		t.Fatalf("Failed to verify test token: %v", err)
	}
	return req.WithContext(auth.WithIdentity(req.Context(), id))
}

// AssertStatus checks that the response has the expected status code
func AssertStatus(t *testing.T, w *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if w.Code != expected {
		t.Errorf("Expected status %d, got %d. Body: %s", expected, w.Code, w.Body.String())
	}
}

// AssertJSON decodes the response body into the provided struct
func AssertJSON(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.NewDecoder(w.Body).Decode(v); err != nil {
		t.Fatalf("Failed to decode JSON response: %v", err)
	}
}

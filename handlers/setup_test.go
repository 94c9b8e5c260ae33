// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"net/http"
	"testing"

	"github.com/danielhkuo/livepoll/auth"
	"github.com/danielhkuo/livepoll/cliparse"
	"github.com/danielhkuo/livepoll/feed"
	"github.com/danielhkuo/livepoll/service"
	"github.com/danielhkuo/livepoll/store"
	"github.com/danielhkuo/livepoll/testutil"
)

type testEnv struct {
	store    *store.SQLStore
	hub      *feed.Hub
	svc      *service.Service
	provider *auth.Provider
	cfg      cliparse.Config
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return setupTestEnvWith(t, testutil.GetTestConfig())
}

func setupTestEnvWith(t *testing.T, cfg cliparse.Config) *testEnv {
	t.Helper()

	s := testutil.SetupTestStore(t)
	hub := feed.NewHub()
	t.Cleanup(func() { hub.Close() })

	return &testEnv{
		store:    s,
		hub:      hub,
		svc:      service.New(s, hub, service.Options{RequireSignInToVote: cfg.RequireSignInToVote}),
		provider: testutil.NewTestProvider(s, cfg),
		cfg:      cfg,
	}
}

// signIn returns a token for username
func (e *testEnv) signIn(t *testing.T, username string) string {
	t.Helper()
	return testutil.SignInTestUser(t, e.provider, username).Token
}

// asUser attaches the identity behind token to req
func (e *testEnv) asUser(t *testing.T, req *http.Request, token string) *http.Request {
	t.Helper()
	return testutil.WithIdentity(t, req, e.provider, token)
}

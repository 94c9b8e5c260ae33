// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package router

import (
	"net/http"

	"github.com/danielhkuo/livepoll/auth"
	"github.com/danielhkuo/livepoll/cliparse"
	"github.com/danielhkuo/livepoll/handlers"
	"github.com/danielhkuo/livepoll/metrics"
	"github.com/danielhkuo/livepoll/middleware"
	"github.com/danielhkuo/livepoll/service"
)

// Router is the API's root handler
type Router struct {
	mux     *http.ServeMux
	handler http.Handler
	live    *handlers.LiveHandler
}

func NewRouter(svc *service.Service, provider *auth.Provider, cfg cliparse.Config) *Router {
	mux := http.NewServeMux()

	// Initialize handlers
	pollHandler := handlers.NewPollHandler(svc, cfg)
	votingHandler := handlers.NewVotingHandler(svc, cfg)
	identityHandler := handlers.NewIdentityHandler(svc, provider, cfg)
	liveHandler := handlers.NewLiveHandler(svc, cfg)

	// Request-scoped routes are bounded by REQUEST_TIMEOUT
	timeout := middleware.Timeout(cfg.RequestTimeout)
	route := func(h http.HandlerFunc) http.Handler {
		return timeout(middleware.WithLogging(h))
	}

	// Health check
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	mux.Handle("GET /metrics", metrics.Handler())

	// Identity
	mux.Handle("POST /auth/sign-in", route(identityHandler.SignIn))
	mux.Handle("POST /auth/sign-out", route(identityHandler.SignOut))
	mux.Handle("GET /auth/me", route(identityHandler.Me))

	// Polls
	mux.Handle("POST /polls", route(pollHandler.CreatePoll))
	mux.Handle("GET /polls", route(pollHandler.ListPolls))
	mux.Handle("GET /polls/{id}", route(pollHandler.GetPoll))
	mux.Handle("GET /polls/{id}/results", route(pollHandler.GetResults))

	// Voting
	mux.Handle("POST /polls/{id}/votes", route(votingHandler.SubmitVote))
	mux.Handle("GET /polls/{id}/my-vote", route(votingHandler.GetMyVote))

	// Live results outlive any request timeout
	mux.HandleFunc("GET /polls/{id}/live", middleware.WithLogging(liveHandler.Stream))

	// Root endpoint
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("livepoll API v1"))
	})

	var handler http.Handler = mux
	handler = middleware.WithIdentity(provider)(handler)
	handler = middleware.CORS(cfg.AllowedOrigins)(handler)
	handler = middleware.Recover(handler)

	return &Router{mux: mux, handler: handler, live: liveHandler}
}

func (rt *Router) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rt.handler.ServeHTTP(w, r)
}

// Shutdown closes open live streams. Register it with
// http.Server.RegisterOnShutdown.
func (rt *Router) Shutdown() {
	rt.live.Shutdown()
}

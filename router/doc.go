// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package router defines HTTP routes for the livepoll API.

# Route Registration

NewRouter builds the handlers and wraps the mux in the shared middleware:

	rt := router.NewRouter(svc, provider, cfg)
	server.RegisterOnShutdown(rt.Shutdown)

Every request passes through Recover, CORS and WithIdentity. Each route
is wrapped in WithLogging; all but the live stream are also bounded by
REQUEST_TIMEOUT.

# Endpoints

Health and metrics:

	GET /health
	GET /metrics  - Prometheus exposition

Identity:

	POST /auth/sign-in   - Sign in by username, returns a bearer token
	POST /auth/sign-out  - Revoke the current token
	GET  /auth/me        - Current profile

Polls:

	POST /polls              - Create poll
	GET  /polls              - List public polls (?mine=true for your own)
	GET  /polls/{id}         - Poll, results and has_voted
	GET  /polls/{id}/results - Results only

Voting:

	POST /polls/{id}/votes   - Submit a vote
	GET  /polls/{id}/my-vote - Whether the caller has voted

Live:

	GET /polls/{id}/live - WebSocket stream of results

Browsers cannot set headers on a WebSocket handshake, so the token may be
passed as ?token= instead.
*/
package router

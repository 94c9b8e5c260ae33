// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package middleware provides HTTP middleware and helper functions.

# Request Logging

Wrap handlers with request logging:

	mux.HandleFunc("GET /health", middleware.WithLogging(handler))

Logs request start (method, path, client IP) and completion (status,
duration_ms), and records the request in the Prometheus request metrics.

# Identity

WithIdentity verifies "Authorization: Bearer <token>" (or ?token= for
WebSockets) and stores the caller on the request context. Requests without a
token pass through anonymously.

# Errors

WriteError is the one place error kinds become status codes:

	validation      400
	unauthenticated 401
	not_found       404
	conflict        409
	store           503
	internal        500

Recover catches panics from any handler and answers a generic 500 whose
recover_to field sends the client back to "/".

# JSON Helpers

	middleware.JSONResponse(w, http.StatusOK, data)
	middleware.ErrorResponse(w, http.StatusBadRequest, "message")

	var req models.CreatePollRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

# CORS and Timeouts

CORS(origins) echoes listed origins (any origin when the list is empty).
Timeout(d) bounds each request's context, and with it every store call the
request makes.
*/
package middleware

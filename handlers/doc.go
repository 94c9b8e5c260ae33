// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package handlers contains HTTP request handlers for the livepoll API.

# Handler Types

Each handler is a struct over the poll service and config:

  - PollHandler: create, list and read polls and their results
  - VotingHandler: vote submission and "have I voted" checks
  - IdentityHandler: username sign-in, sign-out and the current profile
  - LiveHandler: WebSocket stream of a poll's running tally

Handlers are created via constructor functions:

	pollHandler := handlers.NewPollHandler(svc, cfg)
	identityHandler := handlers.NewIdentityHandler(svc, provider, cfg)

# Polls

	POST /polls               → CreatePoll (owner set when signed in)
	GET  /polls               → ListPolls (?mine=true, ?limit=N)
	GET  /polls/{id}          → GetPoll (poll, results, has_voted)
	GET  /polls/{id}/results  → GetResults

# Voting

	POST /polls/{id}/votes    → SubmitVote
	GET  /polls/{id}/my-vote  → GetMyVote

A signed-in voter gets one vote per poll; a second attempt is 409.
Anonymous votes are accepted unless REQUIRE_SIGN_IN_TO_VOTE is set.

# Identity

	POST /auth/sign-in   → SignIn (201 on first use of a username)
	POST /auth/sign-out  → SignOut
	GET  /auth/me        → Me

The identity middleware resolves the bearer token before these run;
handlers read it with auth.FromContext.

# Live Results

	GET /polls/{id}/live → Stream

The stream sends a "snapshot" message on connect and an "update" message
each time the view folds new votes. Updates coalesce: a slow reader sees
the latest tally, not every intermediate one. LiveHandler.Shutdown closes
every open stream with a going-away frame.

# Errors

Service errors are written by middleware.WriteError, which maps the
error kind to a status code and a {"error","kind","message"} body.
*/
package handlers

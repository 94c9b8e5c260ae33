// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package models defines request, response, and domain types for the API.

# Request Types

Types for parsing incoming JSON:

  - CreatePollRequest: question, options, public
  - SubmitVoteRequest: option_index (nullable)
  - SignInRequest: username

# Response Types

Types for JSON responses:

  - CreatePollResponse: poll_id, poll
  - SubmitVoteResponse: vote_id, message, results
  - MyVoteResponse: poll_id, has_voted
  - SignInResponse: token, expires_at, profile, is_new
  - ListPollsResponse: polls
  - ErrorResponse: error, kind, message, recover_to

# Domain Types

  - Poll: question with ordered option labels
  - Vote: one option index chosen on one poll
  - Profile: signed-in identity
  - VoteEvent: change-feed payload for an inserted vote

# Result Types

Derived from vote rows, never stored:

  - OptionResult: votes and rounded percentage per option
  - Segment: pie chart slice geometry
  - PollResults, PollDetail, PollSummary

# Constants

Poll limits:

	MinOptions = 2
	MaxOptions = 10

Live message types:

	LiveSnapshot = "snapshot"
	LiveUpdate   = "update"
*/
package models

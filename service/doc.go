// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package service holds the poll operations shared by every transport.

	svc := service.New(store, feed, service.Options{})

	poll, err := svc.CreatePoll(ctx, req, ownerID)
	resp, err := svc.SubmitVote(ctx, pollID, &optionIndex, voterID)
	view, err := svc.OpenLive(ctx, pollID)

# Creating polls

The question and every option are trimmed and blank options are dropped.
A poll needs a question and 2 to 10 options; polls are public unless the
request says otherwise.

# Voting

A vote with no option selected is rejected before the store is called.
Signed-in voters get one vote per poll, checked before the insert and backed by
a unique index in the SQL schema. After the insert the vote is published to
the change feed. A failed publish is logged and counted but the vote stands.

# Errors

Every error returned is an *apperr.Error, so callers can switch on
apperr.KindOf instead of on messages.
*/
package service

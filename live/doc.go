// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package live keeps a running tally for one viewer of a poll.

A View subscribes to the poll's change feed first and only then loads the poll
and its votes, so no insert can fall between the load and the subscription.
Events that arrive during the load are queued and replayed on top of the
loaded tally, skipping any whose vote the load already returned.

# Folding

Feed handlers only append to a queue. A single goroutine per view drains the
queue and applies tally.Fold to each event in turn, so the tally is never
refetched after the initial load.

# Lifetime

	v, err := live.Open(ctx, store, feed, pollID)
	if err != nil {
		return err
	}
	defer v.Close()

	for results := range v.Updates() {
		// push results to the viewer
	}

Close releases the subscription and waits for the folding goroutine to exit.
Once it returns the tally no longer changes, even if the feed delivers more
events.
*/
package live

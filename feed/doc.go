// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package feed is the change feed for vote inserts.

Every inserted vote is published as a models.VoteEvent keyed by its poll ID.
Subscribers register a Handler for one poll and receive each later event for
that poll. Three backends implement Feed:

  - Hub: in-process fan-out, handlers run in the publisher's goroutine
  - RedisFeed: Redis Pub/Sub, one channel per poll ("poll:{id}:votes")
  - NATSFeed: core NATS, one subject per poll ("polls.{id}.votes")

Delivery is at-most-once on every backend. A subscriber that is not connected
when an event is published never sees it.
*/
package feed

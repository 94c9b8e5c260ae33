// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package tally turns vote rows into per-option counts and percentages.

# Aggregation

Aggregate counts rows grouped by option index:

	t := tally.Aggregate(len(poll.Options), votes)

Every option index gets an entry, zero when no vote references it. Total
is the row count: rows with an index outside the option range add to Total
but to no option.

# Folding Live Events

Fold is the reducer used by live views. It applies a single insert event
without touching the input tally:

	t = tally.Fold(t, event)

# Percentages

Percent rounds half up per option. Percentages are not normalized, so a
three-way split of 1/1/1 reports 33/33/33.

# Chart Segments

Segments converts percentages into pie slice angles (radians) with a
cycling colour palette.
*/
package tally

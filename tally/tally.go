// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package tally

import (
	"math"

	"github.com/danielhkuo/livepoll/models"
)

// Tally holds per-option vote counts for one poll.
// Counts has exactly one entry per option. Total is the number of vote rows,
// including rows whose option index no longer matches an option.
type Tally struct {
	Counts []int
	Total  int
}

// New returns an all-zero tally for a poll with optionCount options
func New(optionCount int) Tally {
	if optionCount < 0 {
		optionCount = 0
	}
	return Tally{Counts: make([]int, optionCount)}
}

// Aggregate counts vote rows per option index. Total is always len(votes);
// rows whose index is outside the option range add to Total only.
func Aggregate(optionCount int, votes []models.Vote) Tally {
	t := New(optionCount)
	t.Total = len(votes)
	for _, v := range votes {
		if v.OptionIndex < 0 || v.OptionIndex >= len(t.Counts) {
			continue
		}
		t.Counts[v.OptionIndex]++
	}
	return t
}

// Fold applies one insert event to a tally and returns the new tally.
// Every event adds one to Total; only in-range events add to Counts.
// The input is never mutated. Fold is commutative, so events may be applied
// in any delivery order.
func Fold(t Tally, ev models.VoteEvent) Tally {
	next := t.Clone()
	next.Total++
	if ev.OptionIndex >= 0 && ev.OptionIndex < len(next.Counts) {
		next.Counts[ev.OptionIndex]++
	}
	return next
}

// Clone returns a deep copy
func (t Tally) Clone() Tally {
	counts := make([]int, len(t.Counts))
	copy(counts, t.Counts)
	return Tally{Counts: counts, Total: t.Total}
}

// Count returns the votes for option i, 0 when out of range
func (t Tally) Count(i int) int {
	if i < 0 || i >= len(t.Counts) {
		return 0
	}
	return t.Counts[i]
}

// Percent returns round-half-up of Counts[i]*100/Total, or 0 when there are no votes.
// Percentages are independent per option and are not normalized to sum to 100.
func (t Tally) Percent(i int) int {
	if t.Total <= 0 {
		return 0
	}
	// (2*c*100 + total) / (2*total) == floor(c*100/total + 0.5)
	return (t.Count(i)*200 + t.Total) / (2 * t.Total)
}

// Results builds the per-option result list for a poll
func Results(poll models.Poll, t Tally) models.PollResults {
	options := make([]models.OptionResult, len(poll.Options))
	for i, label := range poll.Options {
		options[i] = models.OptionResult{
			Index:   i,
			Label:   label,
			Votes:   t.Count(i),
			Percent: t.Percent(i),
		}
	}

	return models.PollResults{
		PollID:     poll.ID,
		TotalVotes: t.Total,
		Options:    options,
		Segments:   Segments(t),
	}
}

// Palette is the fixed pie chart colour cycle
var Palette = []string{
	"#8B5CF6", // purple
	"#3B82F6", // blue
	"#2DD4BF", // teal
	"#F59E0B", // amber
	"#EC4899", // pink
	"#10B981", // emerald
	"#6366F1", // indigo
	"#F97316", // orange
	"#14B8A6", // teal
	"#8B5CF6", // purple
}

// Segments lays out one pie slice per option, consecutively from angle 0.
// Each slice spans Percent(i)/100 of a full turn, so the slices inherit the
// rounding drift of the percentages.
func Segments(t Tally) []models.Segment {
	segments := make([]models.Segment, len(t.Counts))
	current := 0.0
	for i := range t.Counts {
		size := float64(t.Percent(i)) / 100 * 2 * math.Pi
		segments[i] = models.Segment{
			Index:      i,
			StartAngle: current,
			EndAngle:   current + size,
			Color:      Palette[i%len(Palette)],
		}
		current += size
	}
	return segments
}

/*
 * Copyright (c) 2024, Dana Burkart <dana.burkart@gmail.com>
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

// Package counter counts the persisted messages of a channel that fall inside
// a time range by paging through history, one bounded batch at a time.
//
// The hosted store silently ignores a start marker that lies too far in the
// past, so the counter watches the first batch for that and switches to a
// full scan or a backward search from the end marker.
package counter

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	pubkit "github.com/dburkart/pubkit/api"
	"github.com/dburkart/pubkit/pkg/timetoken"
)

const (
	// PageSize is the largest batch the store returns for one fetch.
	PageSize = 100

	// A first batch whose oldest record is further than this past the
	// requested start means the start was ignored (about 4 months).
	IgnoredStartSlack timetoken.Token = 100_000_000_000_000

	// An end marker further than this past the newest record is treated as
	// unbounded (about 3 years).
	DistantEndSlack timetoken.Token = 1_000_000_000_000_000
)

// BisectionWidths are the windows, ending at the requested end, that a
// backfill tries in order until one of them holds a record.
var BisectionWidths = []timetoken.Token{
	2 * timetoken.TicksPerSecond,
	5 * timetoken.TicksPerSecond,
	10 * timetoken.TicksPerSecond,
	100 * timetoken.TicksPerSecond,
	1000 * timetoken.TicksPerSecond,
}

var ErrInvalidRange = errors.New("start must be before end")

type Strategy int

const (
	Direct Strategy = iota
	FullScan
	Backfill
)

func (s Strategy) String() string {
	switch s {
	case Direct:
		return "direct"
	case FullScan:
		return "full-scan"
	case Backfill:
		return "backfill"
	}
	return fmt.Sprintf("strategy(%d)", int(s))
}

func (s Strategy) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Range bounds a count. Start is exclusive and End inclusive; nil leaves that
// side open.
type Range struct {
	Start *timetoken.Token
	End   *timetoken.Token
}

func (r Range) Validate() error {
	if r.Start != nil && r.End != nil && *r.Start >= *r.End {
		return errors.Wrapf(ErrInvalidRange, "start %d, end %d", *r.Start, *r.End)
	}
	return nil
}

func (r Range) Contains(t timetoken.Token) bool {
	if r.Start != nil && t <= *r.Start {
		return false
	}
	if r.End != nil && t > *r.End {
		return false
	}
	return true
}

// Tally is the outcome of a count. When Err is set the count stopped early
// and Count holds what was tallied up to that point.
type Tally struct {
	Count     int
	Batches   int
	Strategy  Strategy
	Truncated bool
	Err       error
}

type Counter struct {
	Store pubkit.History
	Log   zerolog.Logger

	// DisableFallbacks keeps paging when the start is ignored instead of
	// switching to a full scan or backfill.
	DisableFallbacks bool
}

func New(store pubkit.History, log zerolog.Logger) *Counter {
	return &Counter{Store: store, Log: log}
}

// Count never fails outright; a store error ends the count and is reported in
// the returned Tally alongside the partial total.
func (c *Counter) Count(ctx context.Context, channel string, r Range) Tally {
	tally := Tally{Strategy: Direct}
	c.page(ctx, channel, r, &tally)

	log := c.Log.With().Str("channel", channel).Str("strategy", tally.Strategy.String()).Logger()
	if tally.Err != nil {
		log.Error().Err(tally.Err).Int("count", tally.Count).Msg("count stopped early")
	} else {
		log.Info().Int("count", tally.Count).Int("batches", tally.Batches).Msg("count complete")
	}

	return tally
}

func (c *Counter) fetch(ctx context.Context, channel string, start, end *timetoken.Token, tally *Tally) ([]pubkit.Record, error) {
	c.Log.Debug().
		Str("channel", channel).
		Stringer("start", optional(start)).
		Stringer("end", optional(end)).
		Msg("fetching batch")

	tally.Batches++
	res, err := c.Store.Fetch(ctx, pubkit.FetchRequest{
		Channel: channel,
		Start:   start,
		End:     end,
		Limit:   PageSize,
	})
	if err != nil {
		return nil, err
	}
	return res[channel], nil
}

// page walks the range backward. Every request keeps the range's start as
// its lower bound and lowers the cursor, an inclusive upper bound, to just
// below the oldest record counted so far.
func (c *Counter) page(ctx context.Context, channel string, r Range, tally *Tally) {
	log := c.Log.With().Str("channel", channel).Logger()

	start, cursor := r.Start, r.End
	seen := make(map[timetoken.Token]struct{})
	var previousOldest *timetoken.Token
	ignoringStart := false
	first := true

	for {
		records, err := c.fetch(ctx, channel, start, cursor, tally)
		if err != nil {
			tally.Err = err
			return
		}
		if len(records) == 0 {
			log.Info().Msg("no more messages")
			return
		}

		oldest, newest := bounds(records)

		if first && r.Start != nil && oldest-*r.Start > IgnoredStartSlack {
			ignoringStart = true
			log.Warn().
				Stringer("start", *r.Start).
				Stringer("oldest", oldest).
				Msg("store appears to be ignoring the start timetoken")

			if !c.DisableFallbacks {
				if r.End == nil || *r.End > newest+DistantEndSlack {
					c.fullScan(ctx, channel, tally)
				} else {
					c.backfill(ctx, channel, r, tally)
				}
				return
			}
			start = nil
		}
		first = false

		matched := 0
		var matchedOldest *timetoken.Token
		for i := range records {
			t := records[i].Token
			if !r.Contains(t) {
				continue
			}
			if matchedOldest == nil || t < *matchedOldest {
				matchedOldest = &records[i].Token
			}
			if _, ok := seen[t]; ok {
				continue
			}
			seen[t] = struct{}{}
			matched++
		}
		tally.Count += matched

		log.Info().
			Int("raw", len(records)).
			Int("matched", matched).
			Int("total", tally.Count).
			Stringer("newest", newest).
			Stringer("oldest", oldest).
			Msg("batch")

		if r.End != nil && newest > *r.End {
			log.Info().Stringer("newest", newest).Msg("newest message is beyond the end timetoken")
			return
		}
		if len(records) < PageSize {
			log.Debug().Int("raw", len(records)).Msg("short batch, reached end of data")
			return
		}
		if r.End != nil && oldest > *r.End {
			log.Info().Msg("every message in the batch is beyond the end timetoken")
			return
		}

		next := oldest
		if matchedOldest != nil {
			next = *matchedOldest
		}

		if previousOldest != nil && next >= *previousOldest {
			if ignoringStart && r.End != nil && *r.End > next+DistantEndSlack {
				log.Info().Msg("reached end of history")
			} else {
				log.Warn().
					Stringer("next", next).
					Stringer("previous", *previousOldest).
					Msg("cursor did not move backward, stopping")
			}
			return
		}
		if r.End != nil && next > *r.End {
			log.Info().Stringer("next", next).Msg("next cursor is beyond the end timetoken")
			return
		}
		if r.Start != nil && next <= *r.Start+1 {
			log.Debug().Msg("reached the start timetoken")
			return
		}

		previousOldest = &next
		below := next - 1
		cursor = &below
	}
}

func (c *Counter) fullScan(ctx context.Context, channel string, tally *Tally) {
	c.Log.Info().Str("channel", channel).Msg("counting every message in the channel")
	tally.Strategy = FullScan
	c.page(ctx, channel, Range{}, tally)
}

// backfill searches backward from the end marker in widening windows and
// counts the first non-empty one.
func (c *Counter) backfill(ctx context.Context, channel string, r Range, tally *Tally) {
	log := c.Log.With().Str("channel", channel).Logger()
	log.Info().Msg("searching backward from the end timetoken")
	tally.Strategy = Backfill

	end := *r.End
	for _, width := range BisectionWidths {
		start := end - width
		if r.Start != nil && start < *r.Start {
			start = *r.Start
		}

		records, err := c.fetch(ctx, channel, &start, &end, tally)
		if err != nil {
			tally.Err = err
			return
		}
		if len(records) == 0 {
			log.Debug().Stringer("width", width).Msg("window is empty")
			continue
		}

		for _, rec := range records {
			if r.Contains(rec.Token) {
				tally.Count++
			}
		}

		oldest, newest := bounds(records)
		log.Info().
			Int("raw", len(records)).
			Int("matched", tally.Count).
			Stringer("newest", newest).
			Stringer("oldest", oldest).
			Msg("found messages near the end timetoken")

		if len(records) >= PageSize {
			tally.Truncated = true
			log.Warn().Msg("window filled a whole batch, the count may be low")
		}
		return
	}
}

func bounds(records []pubkit.Record) (oldest, newest timetoken.Token) {
	oldest, newest = records[0].Token, records[0].Token
	for _, rec := range records[1:] {
		oldest = timetoken.Min(oldest, rec.Token)
		newest = timetoken.Max(newest, rec.Token)
	}
	return
}

type optionalToken struct{ t *timetoken.Token }

func (o optionalToken) String() string {
	if o.t == nil {
		return "none"
	}
	return o.t.String()
}

func optional(t *timetoken.Token) fmt.Stringer {
	return optionalToken{t}
}

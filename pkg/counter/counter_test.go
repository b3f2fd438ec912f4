/*
 * Copyright (c) 2024, Dana Burkart <dana.burkart@gmail.com>
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package counter

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pubkit "github.com/dburkart/pubkit/api"
	"github.com/dburkart/pubkit/pkg/timetoken"
)

type batch struct {
	tokens []timetoken.Token
	absent bool
	err    error
}

// scriptedStore answers fetches with a fixed sequence of batches, then
// reports the channel as absent.
type scriptedStore struct {
	batches  []batch
	requests []pubkit.FetchRequest
}

func (s *scriptedStore) Fetch(ctx context.Context, req pubkit.FetchRequest) (pubkit.FetchResult, error) {
	s.requests = append(s.requests, req)
	res := pubkit.FetchResult{}

	i := len(s.requests) - 1
	if i >= len(s.batches) || s.batches[i].absent {
		return res, nil
	}
	if s.batches[i].err != nil {
		return nil, s.batches[i].err
	}

	records := make([]pubkit.Record, len(s.batches[i].tokens))
	for j, t := range s.batches[i].tokens {
		records[j] = pubkit.Record{Token: t}
	}
	res[req.Channel] = records
	return res, nil
}

func span(from, to timetoken.Token) []timetoken.Token {
	ret := []timetoken.Token{}
	for t := from; t <= to; t++ {
		ret = append(ret, t)
	}
	return ret
}

func tok(v int64) *timetoken.Token {
	t := timetoken.Token(v)
	return &t
}

func count(store pubkit.History, r Range) Tally {
	return New(store, zerolog.Nop()).Count(context.Background(), "c", r)
}

func TestShortBatchInRange(t *testing.T) {
	store := &scriptedStore{batches: []batch{{tokens: []timetoken.Token{150, 160, 201}}}}

	tally := count(store, Range{Start: tok(100), End: tok(200)})

	assert.Equal(t, 2, tally.Count)
	assert.Equal(t, 1, tally.Batches)
	assert.Equal(t, Direct, tally.Strategy)
	assert.NoError(t, tally.Err)
}

func TestEmptyFirstBatch(t *testing.T) {
	store := &scriptedStore{batches: []batch{{absent: true}}}

	tally := count(store, Range{})
	assert.Equal(t, 0, tally.Count)
	assert.Equal(t, 1, tally.Batches)
}

func TestSumsNonOverlappingBatches(t *testing.T) {
	store := &scriptedStore{batches: []batch{
		{tokens: span(901, 1000)},
		{tokens: span(801, 900)},
		{tokens: span(751, 800)},
	}}

	tally := count(store, Range{})

	assert.Equal(t, 250, tally.Count)
	assert.Equal(t, 3, tally.Batches)
	require.Len(t, store.requests, 3)
	assert.Nil(t, store.requests[0].End)
	assert.Equal(t, timetoken.Token(900), *store.requests[1].End)
	assert.Equal(t, timetoken.Token(800), *store.requests[2].End)
	for _, req := range store.requests {
		assert.Nil(t, req.Start)
		assert.Equal(t, PageSize, req.Limit)
		assert.Equal(t, "c", req.Channel)
	}
}

func TestStartIsExclusive(t *testing.T) {
	store := &scriptedStore{batches: []batch{
		{tokens: span(901, 1000)},
		{tokens: span(801, 900)},
		{tokens: span(751, 800)},
	}}

	tally := count(store, Range{Start: tok(850)})

	// 851..1000
	assert.Equal(t, 150, tally.Count)
	require.Len(t, store.requests, 2, "nothing lies between the start and the oldest matching record")
	assert.Equal(t, timetoken.Token(850), *store.requests[1].Start)
	assert.Equal(t, timetoken.Token(900), *store.requests[1].End, "the cursor sits just below the oldest matching record")
}

func TestEndIsInclusive(t *testing.T) {
	store := &scriptedStore{batches: []batch{{tokens: span(901, 1000)}}}

	tally := count(store, Range{End: tok(950)})

	assert.Equal(t, 50, tally.Count)
	assert.Equal(t, 1, tally.Batches, "a batch reaching past the end stops the count")
	assert.Equal(t, timetoken.Token(950), *store.requests[0].End)
}

func TestStalledCursorTerminates(t *testing.T) {
	full := span(1, 100)
	store := &scriptedStore{batches: []batch{
		{tokens: full}, {tokens: full}, {tokens: full}, {tokens: full},
	}}

	tally := count(store, Range{})

	assert.Equal(t, 2, tally.Batches)
	assert.Equal(t, 100, tally.Count, "repeated records are only counted once")
}

func TestStoreErrorReturnsPartialCount(t *testing.T) {
	failure := &pubkit.Error{Kind: pubkit.KindTransport, Op: "fetch", Err: errors.New("connection reset")}
	store := &scriptedStore{batches: []batch{
		{tokens: span(901, 1000)},
		{err: failure},
	}}

	tally := count(store, Range{})

	assert.Equal(t, 100, tally.Count)
	assert.Equal(t, pubkit.KindTransport, pubkit.KindOf(tally.Err))
}

func TestIgnoredStartWithoutEndScansEverything(t *testing.T) {
	recent := timetoken.Token(17_000_000_000_000_000)
	store := &scriptedStore{batches: []batch{
		{tokens: span(recent, recent+99)},
		{tokens: span(recent+70, recent+99)},
	}}

	tally := count(store, Range{Start: tok(1)})

	assert.Equal(t, FullScan, tally.Strategy)
	assert.Equal(t, 30, tally.Count)
	assert.Equal(t, 2, tally.Batches)
	assert.Nil(t, store.requests[1].Start)
	assert.Nil(t, store.requests[1].End)
}

func TestIgnoredStartWithDistantEndScansEverything(t *testing.T) {
	recent := timetoken.Token(16_000_000_000_000_000)
	end := recent + 2*DistantEndSlack
	store := &scriptedStore{batches: []batch{
		{tokens: span(recent, recent+9)},
		{tokens: span(recent, recent+9)},
	}}

	tally := count(store, Range{Start: tok(1), End: &end})

	assert.Equal(t, FullScan, tally.Strategy)
	assert.Equal(t, 10, tally.Count)
}

func TestIgnoredStartBackfillsFromEnd(t *testing.T) {
	end := timetoken.Token(17_000_000_000_000_000)
	store := &scriptedStore{batches: []batch{
		{tokens: span(end-5, end+94)},
		{absent: true},
		{tokens: []timetoken.Token{end - 40_000_000, end - 3, end}},
	}}

	tally := count(store, Range{Start: tok(1), End: &end})

	assert.Equal(t, Backfill, tally.Strategy)
	assert.Equal(t, 3, tally.Count)
	assert.False(t, tally.Truncated)
	require.Len(t, store.requests, 3)
	assert.Equal(t, end-BisectionWidths[0], *store.requests[1].Start)
	assert.Equal(t, end-BisectionWidths[1], *store.requests[2].Start)
	assert.Equal(t, end, *store.requests[2].End)
}

func TestBackfillFlagsFullWindow(t *testing.T) {
	end := timetoken.Token(17_000_000_000_000_000)
	store := &scriptedStore{batches: []batch{
		{tokens: span(end-5, end+94)},
		{tokens: span(end-99, end)},
	}}

	tally := count(store, Range{Start: tok(1), End: &end})

	assert.Equal(t, Backfill, tally.Strategy)
	assert.Equal(t, 100, tally.Count)
	assert.True(t, tally.Truncated)
}

func TestBackfillGivesUpAfterWidestWindow(t *testing.T) {
	end := timetoken.Token(17_000_000_000_000_000)
	batches := []batch{{tokens: span(end-5, end+94)}}
	for range BisectionWidths {
		batches = append(batches, batch{absent: true})
	}
	store := &scriptedStore{batches: batches}

	tally := count(store, Range{Start: tok(1), End: &end})

	assert.Equal(t, 0, tally.Count)
	assert.Equal(t, 1+len(BisectionWidths), tally.Batches)
}

func TestIgnoredStartWithoutFallbacks(t *testing.T) {
	recent := timetoken.Token(17_000_000_000_000_000)
	end := timetoken.Token(19_000_000_000_000_000)
	store := &scriptedStore{batches: []batch{
		{tokens: span(recent+100, recent+199)},
		{tokens: span(recent+80, recent+99)},
	}}

	c := New(store, zerolog.Nop())
	c.DisableFallbacks = true
	tally := c.Count(context.Background(), "c", Range{Start: tok(1), End: &end})

	assert.Equal(t, Direct, tally.Strategy)
	assert.Equal(t, 120, tally.Count)
	require.Len(t, store.requests, 2)
	assert.Equal(t, end, *store.requests[0].End)
	assert.Nil(t, store.requests[1].Start, "an ignored start is not sent again")
	assert.Equal(t, recent+99, *store.requests[1].End)
}

func TestIgnoredStartWithoutFallbacksStopsPastEnd(t *testing.T) {
	end := timetoken.Token(17_000_000_000_000_000)
	store := &scriptedStore{batches: []batch{
		{tokens: span(end-49, end+50)},
	}}

	c := New(store, zerolog.Nop())
	c.DisableFallbacks = true
	tally := c.Count(context.Background(), "c", Range{Start: tok(1), End: &end})

	assert.Equal(t, Direct, tally.Strategy)
	assert.Equal(t, 50, tally.Count, "records past the end are never counted")
	assert.Equal(t, 1, tally.Batches)
}

func TestIgnoredStartWithoutFallbacksFiltersLaterBatches(t *testing.T) {
	end := timetoken.Token(17_000_000_000_000_000)
	late := append(span(end-120, end-100), end+5, end+6)
	store := &scriptedStore{batches: []batch{
		{tokens: span(end-99, end)},
		{tokens: late},
	}}

	c := New(store, zerolog.Nop())
	c.DisableFallbacks = true
	tally := c.Count(context.Background(), "c", Range{Start: tok(1), End: &end})

	assert.Equal(t, 121, tally.Count)
	assert.Equal(t, 2, tally.Batches)
}

func TestBackfillClampsWindowToStart(t *testing.T) {
	end := timetoken.Token(17_000_000_000_000_000)
	start := end - BisectionWidths[0]/4
	recent := end + 2*IgnoredStartSlack
	store := &scriptedStore{batches: []batch{
		{tokens: span(recent, recent+99)},
		{tokens: []timetoken.Token{start - 10, start, start + 1, end}},
	}}

	tally := count(store, Range{Start: &start, End: &end})

	assert.Equal(t, Backfill, tally.Strategy)
	require.Len(t, store.requests, 2)
	assert.Equal(t, start, *store.requests[1].Start, "the window never reaches below the start")
	assert.Equal(t, end, *store.requests[1].End)
	assert.Equal(t, 2, tally.Count, "records at or before the start are not counted")
}

func TestRangeValidate(t *testing.T) {
	tt := []struct {
		test  string
		r     Range
		valid bool
	}{
		{"open", Range{}, true},
		{"start only", Range{Start: tok(5)}, true},
		{"ordered", Range{Start: tok(5), End: tok(6)}, true},
		{"equal", Range{Start: tok(5), End: tok(5)}, false},
		{"reversed", Range{Start: tok(6), End: tok(5)}, false},
	}

	for _, tc := range tt {
		t.Run(tc.test, func(t *testing.T) {
			err := tc.r.Validate()
			if tc.valid {
				assert.NoError(t, err)
			} else {
				assert.True(t, errors.Is(err, ErrInvalidRange))
			}
		})
	}
}

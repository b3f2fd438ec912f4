/*
 * Copyright (c) 2022-2024, Dana Burkart <dana.burkart@gmail.com>
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package database

import (
	"testing"

	"github.com/dburkart/pubkit/pkg/timetoken"
)

const headToken timetoken.Token = 17000000000000000

func createFullSegment() Segment {
	segment := Segment{HeadToken: headToken}

	event := Datum{
		Payload: []byte("{\"foo\": 12}"),
		Token:   headToken,
	}

	for i := 0; i < SegmentSize; i++ {
		segment.Append(&event)
		event.Token += 60 * timetoken.TicksPerSecond
	}

	return segment
}

func TestAddingToSegment(t *testing.T) {
	segment := createFullSegment()

	if segment.Size() != SegmentSize {
		t.Errorf("expected 10,000 events, but only found %d", segment.Size())
	}

	ok, err := segment.Append(&Datum{Token: segment.Tail() + 1})
	if ok || err == nil {
		t.Error("a full segment should refuse further appends")
	}
}

func TestAppendRejectsOutOfOrder(t *testing.T) {
	segment := Segment{HeadToken: headToken}
	segment.Append(&Datum{Token: headToken + 10})

	ok, err := segment.Append(&Datum{Token: headToken + 10})
	if ok || err == nil {
		t.Error("duplicate tokens should be rejected")
	}
}

func TestBinarySearch(t *testing.T) {
	segment := createFullSegment()
	minute := timetoken.Token(60 * timetoken.TicksPerSecond)

	tt := []struct {
		test    string
		desired timetoken.Token
		after   int
		atOr    int
	}{
		{"exact match", headToken + 2*minute, 3, 2},
		{"between records", headToken + 2*minute + 5, 3, 3},
		{"before head", headToken - 1, 0, 0},
		{"past tail", segment.Tail() + 1, SegmentSize, SegmentSize},
	}

	for _, tc := range tt {
		t.Run(tc.test, func(t *testing.T) {
			if got := segment.FindFirstAfter(tc.desired); got != tc.after {
				t.Errorf("FindFirstAfter: expected %d, got %d", tc.after, got)
			}
			if got := segment.FindFirstAtOrAfter(tc.desired); got != tc.atOr {
				t.Errorf("FindFirstAtOrAfter: expected %d, got %d", tc.atOr, got)
			}
		})
	}
}

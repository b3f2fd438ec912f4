/*
 * Copyright (c) 2022-2024, Dana Burkart <dana.burkart@gmail.com>
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package database

import (
	"errors"
	"sort"

	"github.com/dburkart/pubkit/pkg/timetoken"
)

const SegmentSize int = 10000

// A Segment is a run of consecutive records across all channels. Every token
// in a segment is >= HeadToken and smaller than the next segment's HeadToken.
type Segment struct {
	HeadToken timetoken.Token
	Series    []Datum
}

func (s *Segment) Size() int {
	return len(s.Series)
}

func (s *Segment) Append(d *Datum) (bool, error) {
	if len(s.Series) >= SegmentSize {
		return false, errors.New("cannot add additional elements, segment at maximum size")
	}

	if len(s.Series) > 0 && d.Token <= s.Series[len(s.Series)-1].Token {
		return false, errors.New("tokens must be strictly increasing within a segment")
	}

	if s.Series == nil {
		s.Series = make([]Datum, 0, SegmentSize)
	}
	s.Series = append(s.Series, *d)

	return true, nil
}

// Tail returns the last token in the segment, or the head token when the
// segment is empty.
func (s *Segment) Tail() timetoken.Token {
	if len(s.Series) == 0 {
		return s.HeadToken
	}
	return s.Series[len(s.Series)-1].Token
}

// FindFirstAfter returns the index of the first datum whose token is strictly
// greater than desired. It returns Size() if there is none.
func (s *Segment) FindFirstAfter(desired timetoken.Token) int {
	return sort.Search(len(s.Series), func(i int) bool {
		return s.Series[i].Token > desired
	})
}

// FindFirstAtOrAfter returns the index of the first datum whose token is >=
// desired. It returns Size() if there is none.
func (s *Segment) FindFirstAtOrAfter(desired timetoken.Token) int {
	return sort.Search(len(s.Series), func(i int) bool {
		return s.Series[i].Token >= desired
	})
}

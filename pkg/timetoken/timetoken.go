/*
 * Copyright (c) 2024, Dana Burkart <dana.burkart@gmail.com>
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package timetoken

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

// TicksPerSecond is the resolution of a Token. A token is a unix timestamp
// expressed in 100ns units.
const TicksPerSecond = 10_000_000

const nanosPerTick = int64(time.Second) / TicksPerSecond

// A Token marks the position of a record in a channel's append-only log.
// Larger tokens are later records.
type Token int64

func FromTime(t time.Time) Token {
	return Token(t.UnixNano() / nanosPerTick)
}

func Now() Token {
	return FromTime(time.Now())
}

func (t Token) Time() time.Time {
	return time.Unix(0, int64(t)*nanosPerTick)
}

func (t Token) String() string {
	return strconv.FormatInt(int64(t), 10)
}

// Add offsets the token by d, truncated to token resolution.
func (t Token) Add(d time.Duration) Token {
	return t + Token(int64(d)/nanosPerTick)
}

// Humanize renders the token relative to now, e.g. "3 hours ago".
func (t Token) Humanize() string {
	return humanize.Time(t.Time())
}

// Ptr is a convenience for building optional bounds.
func (t Token) Ptr() *Token {
	return &t
}

// Parse accepts either a decimal token or an RFC3339 timestamp.
func Parse(s string) (Token, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty timetoken")
	}

	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		if v < 0 {
			return 0, fmt.Errorf("timetoken must not be negative: %d", v)
		}
		return Token(v), nil
	}

	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return 0, fmt.Errorf("invalid timetoken %q: expected an integer or RFC3339 time", s)
	}
	return FromTime(t), nil
}

// Min returns the smaller token.
func Min(a, b Token) Token {
	if a < b {
		return a
	}
	return b
}

// Max returns the larger token.
func Max(a, b Token) Token {
	if a > b {
		return a
	}
	return b
}

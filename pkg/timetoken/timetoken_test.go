/*
 * Copyright (c) 2024, Dana Burkart <dana.burkart@gmail.com>
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package timetoken

import (
	"testing"
	"time"
)

func TestParse(t *testing.T) {
	tt := []struct {
		test  string
		input string
		want  Token
		err   bool
	}{
		{"decimal", "17000000000000000", 17000000000000000, false},
		{"decimal with spaces", " 42 ", 42, false},
		{"rfc3339", "2024-01-01T00:00:00Z", Token(1704067200 * TicksPerSecond), false},
		{"negative", "-5", 0, true},
		{"garbage", "yesterday", 0, true},
		{"empty", "", 0, true},
	}

	for _, tc := range tt {
		t.Run(tc.test, func(t *testing.T) {
			got, err := Parse(tc.input)
			if tc.err {
				if err == nil {
					t.Errorf("expected an error parsing %q", tc.input)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if got != tc.want {
				t.Errorf("Parse(%q) = %d; want %d", tc.input, got, tc.want)
			}
		})
	}
}

func TestRoundTripTime(t *testing.T) {
	now := time.Date(2024, 3, 9, 13, 0, 0, 123456700, time.UTC)
	tok := FromTime(now)
	if !tok.Time().Equal(now) {
		t.Errorf("expected %s, got %s", now, tok.Time())
	}
	if tok.Add(time.Second)-tok != TicksPerSecond {
		t.Errorf("one second should be %d ticks", TicksPerSecond)
	}
}

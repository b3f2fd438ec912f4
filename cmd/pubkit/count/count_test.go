/*
 * Copyright (c) 2024, Dana Burkart <dana.burkart@gmail.com>
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package count

import (
	"testing"

	"github.com/pkg/errors"

	"github.com/dburkart/pubkit/pkg/counter"
)

func TestParseRange(t *testing.T) {
	tt := []struct {
		test    string
		start   string
		end     string
		invalid bool
		err     error
	}{
		{"open", "", "", false, nil},
		{"start only", "100", "", false, nil},
		{"ordered", "100", "200", false, nil},
		{"rfc3339", "2024-01-01T00:00:00Z", "2024-01-02T00:00:00Z", false, nil},
		{"equal", "100", "100", true, counter.ErrInvalidRange},
		{"inverted", "200", "100", true, counter.ErrInvalidRange},
		{"garbage", "soon", "", true, nil},
	}

	for _, tc := range tt {
		t.Run(tc.test, func(t *testing.T) {
			_, err := parseRange(tc.start, tc.end)
			if (err != nil) != tc.invalid {
				t.Fatalf("expected invalid=%v, got %v", tc.invalid, err)
			}
			if tc.err != nil && !errors.Is(err, tc.err) {
				t.Errorf("expected %v, got %v", tc.err, err)
			}
		})
	}
}

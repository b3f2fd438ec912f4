/*
 * Copyright (c) 2024, Dana Burkart <dana.burkart@gmail.com>
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package counter

import (
	"strconv"

	"github.com/dustin/go-humanize"
)

// Report pairs a tally with what was counted so it can be printed.
type Report struct {
	Channel string
	Range   Range
	Tally
}

func (r Report) Headers() []string {
	return []string{"Field", "Value"}
}

func (r Report) Values() [][]string {
	rows := [][]string{
		{"Channel", r.Channel},
		{"Start", optional(r.Range.Start).String()},
		{"End", optional(r.Range.End).String()},
		{"Count", humanize.Comma(int64(r.Count))},
		{"Batches", strconv.Itoa(r.Batches)},
		{"Strategy", r.Strategy.String()},
	}
	if r.Range.Start != nil {
		rows[1][1] += " (" + r.Range.Start.Humanize() + ")"
	}
	if r.Range.End != nil {
		rows[2][1] += " (" + r.Range.End.Humanize() + ")"
	}
	if r.Truncated {
		rows = append(rows, []string{"Note", "backfill window was full, count is a lower bound"})
	}
	if r.Err != nil {
		rows = append(rows, []string{"Error", r.Err.Error()})
	}
	return rows
}

/*
 * Copyright (c) 2024, Dana Burkart <dana.burkart@gmail.com>
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package count

import (
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/dburkart/pubkit/cmd/pubkit/session"
	"github.com/dburkart/pubkit/pkg/counter"
	"github.com/dburkart/pubkit/pkg/timetoken"
)

var Command = &cobra.Command{
	Use:   "count",
	Short: "Count the messages persisted on a channel between two timetokens",
	Long: `Count pages backward through a channel's history and reports how many
messages fall after --start and at or before --end. Timetokens may be given
as integers or RFC3339 timestamps.

Every request keeps --start as its lower bound and lowers its upper bound
below the oldest message counted so far. When the store ignores a --start
that lies beyond its retention, count falls back to a full scan or to a
search backward from --end; that search counts one page at most and flags a
full page as possibly low.`,

	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := parseRange(viper.GetString("count.start"), viper.GetString("count.end"))
		if err != nil {
			return err
		}
		channel := viper.GetString("count.channel")
		if channel == "" {
			return errors.New("--channel is required")
		}

		s, err := session.Open(session.Options())
		if err != nil {
			return err
		}
		defer s.Close()

		ctx, stop := session.Context(cmd.Context())
		defer stop()

		c := counter.New(s.Client, s.Log)
		c.DisableFallbacks = viper.GetBool("count.no-fallback")

		tally := c.Count(ctx, channel, r)
		if ctx.Err() != nil {
			return errors.Wrap(ctx.Err(), "count interrupted")
		}

		return s.Out.Write(counter.Report{Channel: channel, Range: r, Tally: tally})
	},
}

// parseRange reads optional bounds and rejects start >= end before any
// request is made.
func parseRange(start, end string) (counter.Range, error) {
	var r counter.Range
	if start != "" {
		t, err := timetoken.Parse(start)
		if err != nil {
			return r, errors.Wrap(err, "--start")
		}
		r.Start = &t
	}
	if end != "" {
		t, err := timetoken.Parse(end)
		if err != nil {
			return r, errors.Wrap(err, "--end")
		}
		r.End = &t
	}
	return r, r.Validate()
}

func init() {
	// Flags for this command
	Command.Flags().StringP("channel", "C", "", "Channel to count (required)")
	Command.Flags().String("start", "", "Exclusive lower timetoken")
	Command.Flags().String("end", "", "Inclusive upper timetoken")
	Command.Flags().Bool("no-fallback", false, "Keep paging when the service ignores --start instead of switching strategy")
	Command.MarkFlagRequired("channel")

	// Bind flags to viper
	viper.BindPFlag("count.channel", Command.Flags().Lookup("channel"))
	viper.BindPFlag("count.start", Command.Flags().Lookup("start"))
	viper.BindPFlag("count.end", Command.Flags().Lookup("end"))
	viper.BindPFlag("count.no-fallback", Command.Flags().Lookup("no-fallback"))
}

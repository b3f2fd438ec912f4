/*
 * Copyright (c) 2024, Dana Burkart <dana.burkart@gmail.com>
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package repl

import (
	"context"
	"fmt"
	"strconv"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	pubkit "github.com/dburkart/pubkit/api"
	"github.com/dburkart/pubkit/pkg/counter"
	"github.com/dburkart/pubkit/pkg/database"
	"github.com/dburkart/pubkit/pkg/report"
)

// A Shell executes parsed commands against a client and writes the results.
type Shell struct {
	Client  pubkit.Client
	Counter *counter.Counter
	Out     report.OutputWriter
	Log     zerolog.Logger
}

func NewShell(client pubkit.Client, out report.OutputWriter, log zerolog.Logger) *Shell {
	return &Shell{
		Client:  client,
		Counter: counter.New(client, log),
		Out:     out,
		Log:     log,
	}
}

// Channels lists the channels known to a local store. Remote targets have no
// listing API and return nothing.
func (s *Shell) Channels() []string {
	local, ok := s.Client.(interface{ Database() *database.Database })
	if !ok || local.Database() == nil {
		return []string{}
	}
	return local.Database().Channels()
}

// Execute runs one command. Help and exit are left to the caller.
func (s *Shell) Execute(ctx context.Context, cmd Command) error {
	switch cmd.Name {
	case CommandCount:
		r := counter.Range{Start: cmd.Start, End: cmd.End}
		if err := r.Validate(); err != nil {
			return err
		}
		tally := s.Counter.Count(ctx, cmd.Channel, r)
		return s.Out.Write(counter.Report{Channel: cmd.Channel, Range: r, Tally: tally})

	case CommandFetch:
		res, err := s.Client.Fetch(ctx, pubkit.FetchRequest{
			Channel:     cmd.Channel,
			Limit:       cmd.Limit,
			IncludeUUID: true,
		})
		if err != nil {
			return err
		}
		t := report.Table{Columns: []string{"Timetoken", "When", "Publisher", "Message"}}
		for _, rec := range res[cmd.Channel] {
			t.Rows = append(t.Rows, []string{rec.Token.String(), rec.Token.Humanize(), rec.Publisher, string(rec.Payload)})
		}
		return s.Out.Write(t)

	case CommandPublish:
		res, err := s.Client.Publish(ctx, pubkit.PublishRequest{Channel: cmd.Channel, Message: cmd.Message})
		if err != nil {
			return err
		}
		return s.Out.Write(report.KeyValue("Channel", cmd.Channel, "Timetoken", res.Token.String()))

	case CommandTime:
		return s.Out.Write(report.KeyValue(
			"Timetoken", cmd.Token.String(),
			"UTC", cmd.Token.Time().UTC().Format("2006-01-02T15:04:05.0000000Z07:00"),
			"Relative", cmd.Token.Humanize(),
		))

	case CommandChannels:
		channels := s.Channels()
		t := report.Table{Columns: []string{"Channel", "Count"}}
		for _, c := range channels {
			tally := s.Counter.Count(ctx, c, counter.Range{})
			t.Rows = append(t.Rows, []string{c, strconv.Itoa(tally.Count)})
		}
		return s.Out.Write(t)
	}

	return errors.Wrap(ErrUnknownCommand, fmt.Sprintf("cannot execute %q", cmd.Name))
}

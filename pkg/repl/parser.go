/*
 * Copyright (c) 2022, Gideon Williams gideon@gideonw.com
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package repl

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/dburkart/pubkit/pkg/timetoken"
)

const (
	CommandCount    = "COUNT"
	CommandFetch    = "FETCH"
	CommandPublish  = "PUBLISH"
	CommandTime     = "TIME"
	CommandChannels = "CHANNELS"
	CommandHelp     = "HELP"
	CommandExit     = "EXIT"
)

const DefaultFetchLimit = 25

var ErrUnknownCommand = errors.New("unknown command")

// A Command is one parsed line of shell input.
type Command struct {
	Name    string
	Channel string
	Start   *timetoken.Token
	End     *timetoken.Token
	Limit   int
	Message any
	Token   timetoken.Token
}

// parseBound treats "-" as an absent bound.
func parseBound(s string) (*timetoken.Token, error) {
	if s == "-" {
		return nil, nil
	}
	t, err := timetoken.Parse(s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// ParseCommand parses a single line of shell input
//
// This function assumes there is no '\n'
func ParseCommand(b []byte) (Command, error) {
	b = bytes.TrimSpace(b)
	cmd := b
	var data []byte

	// all commands have a space after them, if not then they are command only
	// like EXIT
	if ind := bytes.IndexByte(b, ' '); ind != -1 {
		cmd = b[:ind]
		data = bytes.TrimSpace(b[ind+1:])
	}

	ret := Command{Name: strings.ToUpper(string(cmd))}
	args := strings.Fields(string(data))

	switch ret.Name {
	case CommandCount:
		if len(args) < 1 || len(args) > 3 {
			return ret, errors.New("usage: count <channel> [start|-] [end|-]")
		}
		ret.Channel = args[0]

		var err error
		if len(args) > 1 {
			if ret.Start, err = parseBound(args[1]); err != nil {
				return ret, errors.Wrap(err, "start")
			}
		}
		if len(args) > 2 {
			if ret.End, err = parseBound(args[2]); err != nil {
				return ret, errors.Wrap(err, "end")
			}
		}
	case CommandFetch:
		if len(args) < 1 || len(args) > 2 {
			return ret, errors.New("usage: fetch <channel> [limit]")
		}
		ret.Channel = args[0]
		ret.Limit = DefaultFetchLimit
		if len(args) == 2 {
			n, err := strconv.Atoi(args[1])
			if err != nil || n <= 0 || n > 100 {
				return ret, errors.Errorf("limit must be between 1 and 100, got %q", args[1])
			}
			ret.Limit = n
		}
	case CommandPublish:
		// check for a space after the channel, no space means no message
		spaceInd := bytes.IndexByte(data, ' ')
		if len(data) == 0 || spaceInd == -1 {
			return ret, errors.New("usage: publish <channel> <message>")
		}
		ret.Channel = string(data[:spaceInd])
		body := bytes.TrimSpace(data[spaceInd+1:])

		// JSON bodies are sent as-is, anything else as a text message
		var v any
		if err := json.Unmarshal(body, &v); err == nil {
			ret.Message = v
		} else {
			ret.Message = map[string]any{"text": string(body)}
		}
	case CommandTime:
		if len(args) > 1 {
			return ret, errors.New("usage: time [timetoken|RFC3339]")
		}
		if len(args) == 0 {
			ret.Token = timetoken.Now()
			break
		}
		t, err := timetoken.Parse(args[0])
		if err != nil {
			return ret, err
		}
		ret.Token = t
	case CommandChannels, CommandHelp, CommandExit:
	default:
		return ret, errors.Wrap(ErrUnknownCommand, string(cmd))
	}

	return ret, nil
}

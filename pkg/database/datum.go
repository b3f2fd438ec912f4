/*
 * Copyright (c) 2022-2024, Dana Burkart <dana.burkart@gmail.com>
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package database

import (
	"fmt"

	"github.com/dburkart/pubkit/pkg/timetoken"
)

// A Datum is a single published message as it is stored in a segment.
type Datum struct {
	Token     timetoken.Token
	ChannelID int
	Payload   []byte
	Meta      []byte
	Publisher string
}

// An Entry is a hydrated Datum, where the channel has been expanded.
type Entry struct {
	Token     timetoken.Token
	Channel   string
	Payload   []byte
	Meta      []byte
	Publisher string
}

func (e *Entry) ToString() string {
	return fmt.Sprintf("%d\t%s\t%s", e.Token, e.Channel, string(e.Payload))
}

type Entries []Entry

/*
 * Copyright (c) 2022, Gideon Williams <gideon@gideonw.com>
 * Copyright (c) 2023-2024, Dana Burkart <dana.burkart@gmail.com>
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package pubkit

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

var (
	Protocol      = "pubnub"
	DefaultOrigin = "ps.pndsn.com"
)

type ConnectionString struct {
	Local    bool
	Address  string
	Database string
}

// Name returns a short name for the target, suitable for logs and metric
// labels.
func (c ConnectionString) Name() string {
	if c.Local {
		return filepath.Base(filepath.Clean(c.Database))
	}
	return c.Address
}

// ParseConnectionString takes a connection string and parses it into the parts
// the application needs to make a connection. It will only return an error if
// the protocol is not "pubnub" or "file", or a pubnub URL carries a path.
//
// Formats:
//
//	./path/to/local/store
//	file://./path/to/local/store
//	pubnub://[<origin>]
func ParseConnectionString(connStr string) (ConnectionString, error) {
	ret := ConnectionString{
		Local:    true,
		Address:  "local",
		Database: "./",
	}

	if connStr == "" {
		return ret, nil
	}

	u, err := url.Parse(connStr)
	if err != nil {
		return ConnectionString{}, err
	}

	// Handle the local case
	if u.Scheme == "" || u.Scheme == "file" {
		ret.Database = u.Host + u.Path
		if ret.Database == "" {
			ret.Database = "./"
		}
		return ret, nil
	}

	if u.Scheme == Protocol {
		ret.Local = false
		ret.Database = ""
		ret.Address = u.Host
		if ret.Address == "" {
			ret.Address = DefaultOrigin
		}
		if p := strings.Trim(u.Path, "/"); p != "" {
			return ConnectionString{}, fmt.Errorf("unexpected path %q in %s url", u.Path, Protocol)
		}
		return ret, nil
	}

	return ConnectionString{}, errors.Wrap(ErrUnknownScheme, u.Scheme)
}

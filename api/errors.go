/*
 * Copyright (c) 2024, Dana Burkart <dana.burkart@gmail.com>
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package pubkit

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	ErrNotSupported  = errors.New("operation not supported by this backend")
	ErrUnknownScheme = errors.New("unrecognized scheme")
)

type ErrorKind int

const (
	// KindStore means the service answered with an error status.
	KindStore ErrorKind = iota + 1
	// KindTransport covers everything else that went wrong while talking to
	// the service.
	KindTransport
)

func (k ErrorKind) String() string {
	switch k {
	case KindStore:
		return "store"
	case KindTransport:
		return "transport"
	}
	return "unknown"
}

// Error is returned by every Client operation that reached (or tried to
// reach) the backing store.
type Error struct {
	Kind   ErrorKind
	Op     string
	Status int
	Err    error
}

func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s %s error (status %d): %v", e.Op, e.Kind, e.Status, e.Err)
	}
	return fmt.Sprintf("%s %s error: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func storeError(op string, status int, err error) error {
	if err == nil {
		err = errors.New("request failed")
	}
	return &Error{Kind: KindStore, Op: op, Status: status, Err: err}
}

func transportError(op string, err error) error {
	return &Error{Kind: KindTransport, Op: op, Err: err}
}

// KindOf reports the kind of a client error, or 0 when err did not come from
// a client operation.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

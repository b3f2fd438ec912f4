/*
 * Copyright (c) 2024, Dana Burkart <dana.burkart@gmail.com>
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package ledger

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRemover struct {
	calls []string
	fail  map[string]bool
}

func (f *fakeRemover) call(kind, name string) error {
	f.calls = append(f.calls, kind+":"+name)
	if f.fail[name] {
		return errors.New("boom")
	}
	return nil
}

func (f *fakeRemover) RemoveUser(_ context.Context, id string) error {
	return f.call("user", id)
}

func (f *fakeRemover) RemoveChannel(_ context.Context, id string) error {
	return f.call("channel", id)
}

func (f *fakeRemover) DeleteGroup(_ context.Context, group string) error {
	return f.call("group", group)
}

func openTestLedger(t *testing.T) *Ledger {
	t.Helper()
	l, err := Open(filepath.Join(t.TempDir(), "ledger.db"), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })
	return l
}

func TestCleanupRemovesInOrder(t *testing.T) {
	l := openTestLedger(t)
	run := NewRunID()

	require.NoError(t, l.Record(run, KindGroup, "g1"))
	require.NoError(t, l.Record(run, KindChannel, "general"))
	require.NoError(t, l.Record(run, KindUser, "u1"))
	require.NoError(t, l.Record(run, KindUser, "u2"))
	require.NoError(t, l.Record(NewRunID(), KindUser, "other"))

	remover := &fakeRemover{fail: map[string]bool{"u2": true}}
	report, err := l.Cleanup(context.Background(), remover, run)
	require.NoError(t, err)

	assert.Equal(t, []string{"user:u1", "user:u2", "channel:general", "group:g1"}, remover.calls)
	assert.Equal(t, 3, report.Removed)
	assert.Equal(t, 1, report.Failed)

	pending, err := l.Pending(run)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "u2", pending[0].Name)

	all, err := l.Pending("")
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestRuns(t *testing.T) {
	l := openTestLedger(t)
	first, second := NewRunID(), NewRunID()

	require.NoError(t, l.Record(first, KindUser, "a"))
	require.NoError(t, l.Record(first, KindUser, "b"))
	require.NoError(t, l.Record(second, KindChannel, "c"))

	pending, err := l.Pending(first)
	require.NoError(t, err)
	require.NoError(t, l.MarkRemoved(pending[0].ID))

	runs, err := l.Runs()
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, first, runs[0].RunID)
	assert.Equal(t, 2, runs[0].Total)
	assert.Equal(t, 1, runs[0].Pending)
	assert.Equal(t, 1, runs[1].Pending)
	assert.Len(t, runs.Values(), 2)
}

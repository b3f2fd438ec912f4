/*
 * Copyright (c) 2024, Dana Burkart <dana.burkart@gmail.com>
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package seed

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pubkit "github.com/dburkart/pubkit/api"
	"github.com/dburkart/pubkit/pkg/generator"
	"github.com/dburkart/pubkit/pkg/ledger"
)

type fakeDirectory struct {
	users       map[string]pubkit.User
	channels    map[string]pubkit.Channel
	memberships map[string][]pubkit.Membership

	failChannels bool
}

func newFakeDirectory() *fakeDirectory {
	return &fakeDirectory{
		users:       map[string]pubkit.User{},
		channels:    map[string]pubkit.Channel{},
		memberships: map[string][]pubkit.Membership{},
	}
}

func (f *fakeDirectory) SetUser(_ context.Context, u pubkit.User) error {
	f.users[u.ID] = u
	return nil
}

func (f *fakeDirectory) RemoveUser(_ context.Context, id string) error {
	delete(f.users, id)
	return nil
}

func (f *fakeDirectory) SetChannel(_ context.Context, c pubkit.Channel) error {
	if f.failChannels {
		return &pubkit.Error{Kind: pubkit.KindStore, Op: "set channel", Status: 503, Err: errors.New("unavailable")}
	}
	f.channels[c.ID] = c
	return nil
}

func (f *fakeDirectory) RemoveChannel(_ context.Context, id string) error {
	delete(f.channels, id)
	return nil
}

func (f *fakeDirectory) SetMemberships(_ context.Context, userID string, m []pubkit.Membership) error {
	f.memberships[userID] = append(f.memberships[userID], m...)
	return nil
}

func (f *fakeDirectory) DeleteGroup(context.Context, string) error {
	return nil
}

func newTestSeeder(t *testing.T, client Client) (*Seeder, *[]time.Duration) {
	t.Helper()
	l, err := ledger.Open(filepath.Join(t.TempDir(), "ledger.db"), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })

	s := New(client, l, generator.New(21), zerolog.Nop())
	pauses := []time.Duration{}
	s.sleep = func(_ context.Context, d time.Duration) error {
		pauses = append(pauses, d)
		return nil
	}
	return s, &pauses
}

func TestMembershipsPerUser(t *testing.T) {
	assert.Equal(t, 6, MembershipsPerUser(20, 0.3))
	assert.Equal(t, 1, MembershipsPerUser(20, 0))
	assert.Equal(t, 3, MembershipsPerUser(3, 1))
}

func TestSeedCreatesDirectory(t *testing.T) {
	dir := newFakeDirectory()
	s, pauses := newTestSeeder(t, dir)

	report, err := s.Run(context.Background(), Options{Users: 25, Channels: 5, MembershipRatio: 0.4, BatchSize: 10})
	require.NoError(t, err)

	assert.Len(t, dir.users, 25)
	assert.Len(t, dir.channels, 5)
	assert.Equal(t, 25, report.UsersCreated)
	assert.Equal(t, 5, report.ChannelsCreated)
	assert.Equal(t, 50, report.MembershipsCreated)
	assert.NotEmpty(t, report.RunID)

	for id, ms := range dir.memberships {
		require.Len(t, ms, 2, "user %s", id)
		assert.Equal(t, generator.GeneralChannel, ms[0].Channel)
		assert.NotEqual(t, ms[0].Channel, ms[1].Channel)
	}

	// users: after 10 and 20; memberships: after 10 and 20
	assert.Equal(t, []time.Duration{
		DefaultBatchPause, DefaultBatchPause,
		DefaultMembershipPause, DefaultMembershipPause,
	}, *pauses)
}

func TestSeedDryRunCreatesNothing(t *testing.T) {
	dir := newFakeDirectory()
	s, _ := newTestSeeder(t, dir)

	report, err := s.Run(context.Background(), Options{Users: 10, Channels: 4, MembershipRatio: 0.5, BatchSize: 5, DryRun: true})
	require.NoError(t, err)

	assert.Empty(t, dir.users)
	assert.Len(t, report.SampleUsers, sampleSize)
	assert.Equal(t, 20, report.MembershipsPlanned)
	assert.Empty(t, report.RunID)
}

func TestSeedCleansUpOnFatalError(t *testing.T) {
	dir := newFakeDirectory()
	dir.failChannels = true
	s, _ := newTestSeeder(t, dir)

	report, err := s.Run(context.Background(), Options{Users: 3, Channels: MaxConsecutiveFailures, MembershipRatio: 0.1, BatchSize: 100})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTooManyFailures)

	assert.Equal(t, 3, report.UsersCreated)
	assert.Empty(t, dir.users, "users created before the failure are removed")
}

func TestSeedValidatesOptions(t *testing.T) {
	s, _ := newTestSeeder(t, newFakeDirectory())

	_, err := s.Run(context.Background(), Options{Users: 1, Channels: 1, MembershipRatio: 1.5, BatchSize: 1})
	assert.Error(t, err)

	_, err = s.Run(context.Background(), Options{Users: 1, Channels: 0, MembershipRatio: 0.5, BatchSize: 1})
	assert.Error(t, err)
}

/*
 * Copyright (c) 2024, Dana Burkart <dana.burkart@gmail.com>
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package pubkit

import (
	"context"
	"time"

	"github.com/dburkart/pubkit/pkg/database"
	"github.com/dburkart/pubkit/pkg/metrics"
)

type instrumented struct {
	Client
	store metrics.Store
}

// Instrument wraps client so that every operation is counted and timed in
// store.
func Instrument(client Client, store metrics.Store) Client {
	if store == nil {
		return client
	}
	return &instrumented{Client: client, store: store}
}

func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	if k := KindOf(err); k != 0 {
		return k.String()
	}
	return "error"
}

func (i *instrumented) observe(op string, start time.Time, err error) {
	i.store.ObserveLatency(op, time.Since(start))
	i.store.IncRequests(op, outcome(err))
}

// Database returns the wrapped client's local store, or nil for remote clients.
func (i *instrumented) Database() *database.Database {
	if local, ok := i.Client.(*LocalClient); ok {
		return local.Database()
	}
	return nil
}

func (i *instrumented) Fetch(ctx context.Context, req FetchRequest) (FetchResult, error) {
	start := time.Now()
	res, err := i.Client.Fetch(ctx, req)
	i.observe("fetch", start, err)
	return res, err
}

func (i *instrumented) Publish(ctx context.Context, req PublishRequest) (PublishResult, error) {
	start := time.Now()
	res, err := i.Client.Publish(ctx, req)
	i.observe("publish", start, err)
	return res, err
}

func (i *instrumented) SetUser(ctx context.Context, u User) error {
	start := time.Now()
	err := i.Client.SetUser(ctx, u)
	i.observe("set_user", start, err)
	return err
}

func (i *instrumented) RemoveUser(ctx context.Context, id string) error {
	start := time.Now()
	err := i.Client.RemoveUser(ctx, id)
	i.observe("remove_user", start, err)
	return err
}

func (i *instrumented) SetChannel(ctx context.Context, c Channel) error {
	start := time.Now()
	err := i.Client.SetChannel(ctx, c)
	i.observe("set_channel", start, err)
	return err
}

func (i *instrumented) RemoveChannel(ctx context.Context, id string) error {
	start := time.Now()
	err := i.Client.RemoveChannel(ctx, id)
	i.observe("remove_channel", start, err)
	return err
}

func (i *instrumented) SetMemberships(ctx context.Context, userID string, memberships []Membership) error {
	start := time.Now()
	err := i.Client.SetMemberships(ctx, userID, memberships)
	i.observe("set_memberships", start, err)
	return err
}

func (i *instrumented) AddChannelsToGroup(ctx context.Context, group string, channels []string) error {
	start := time.Now()
	err := i.Client.AddChannelsToGroup(ctx, group, channels)
	i.observe("add_channels_to_group", start, err)
	return err
}

func (i *instrumented) ListChannelsInGroup(ctx context.Context, group string) ([]string, error) {
	start := time.Now()
	res, err := i.Client.ListChannelsInGroup(ctx, group)
	i.observe("list_channels_in_group", start, err)
	return res, err
}

func (i *instrumented) DeleteGroup(ctx context.Context, group string) error {
	start := time.Now()
	err := i.Client.DeleteGroup(ctx, group)
	i.observe("delete_group", start, err)
	return err
}

func (i *instrumented) SendFile(ctx context.Context, upload FileUpload) (FileResult, error) {
	start := time.Now()
	res, err := i.Client.SendFile(ctx, upload)
	i.observe("send_file", start, err)
	return res, err
}

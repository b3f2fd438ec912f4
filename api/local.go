/*
 * Copyright (c) 2023-2024, Dana Burkart <dana.burkart@gmail.com>
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package pubkit

import (
	"context"
	"encoding/json"
	"sort"
	"sync"

	"github.com/dburkart/pubkit/pkg/database"
	"github.com/pkg/errors"
)

// A LocalClient serves history and publishing from an on-disk message store.
// Channel groups live in memory for the lifetime of the client; the directory
// and file APIs are not available locally.
type LocalClient struct {
	target ConnectionString
	userID string
	db     *database.Database

	groupLock sync.Mutex
	groups    map[string]map[string]struct{}
}

func (client *LocalClient) Open(target ConnectionString, opts Options) error {
	var err error

	client.target = target
	client.userID = opts.UserID
	client.groups = make(map[string]map[string]struct{})
	client.db, err = database.NewDatabase(target.Name(), target.Database, database.Options{Log: opts.Log})
	if err != nil {
		return errors.Wrapf(err, "opening local store %s", target.Database)
	}

	return nil
}

// Database exposes the underlying store, e.g. for metrics collection.
func (client *LocalClient) Database() *database.Database {
	return client.db
}

func (client *LocalClient) Close() error {
	return client.db.Close()
}

func (client *LocalClient) Fetch(ctx context.Context, req FetchRequest) (FetchResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, transportError("fetch", err)
	}
	if req.Channel == "" {
		return nil, storeError("fetch", 400, errors.New("channel is required"))
	}

	entries := client.db.Fetch(req.Channel, req.Start, req.End, req.Limit)
	result := FetchResult{}
	if len(entries) == 0 {
		return result, nil
	}

	records := make([]Record, len(entries))
	for i, e := range entries {
		records[i] = Record{Token: e.Token, Payload: e.Payload}
		if req.IncludeMeta {
			records[i].Meta = e.Meta
		}
		if req.IncludeUUID {
			records[i].Publisher = e.Publisher
		}
	}
	result[req.Channel] = records

	return result, nil
}

func (client *LocalClient) Publish(ctx context.Context, req PublishRequest) (PublishResult, error) {
	if err := ctx.Err(); err != nil {
		return PublishResult{}, transportError("publish", err)
	}

	payload, err := json.Marshal(req.Message)
	if err != nil {
		return PublishResult{}, storeError("publish", 400, err)
	}

	var meta []byte
	if req.Meta != nil {
		meta, err = json.Marshal(req.Meta)
		if err != nil {
			return PublishResult{}, storeError("publish", 400, err)
		}
	}

	token, err := client.db.Append(req.Channel, payload, meta, client.userID)
	if err != nil {
		return PublishResult{}, storeError("publish", 400, err)
	}

	return PublishResult{Token: token}, nil
}

func (client *LocalClient) AddChannelsToGroup(ctx context.Context, group string, channels []string) error {
	if group == "" || len(channels) == 0 {
		return storeError("add channels to group", 400, errors.New("group and channels are required"))
	}

	client.groupLock.Lock()
	defer client.groupLock.Unlock()

	members, ok := client.groups[group]
	if !ok {
		members = make(map[string]struct{})
		client.groups[group] = members
	}
	for _, c := range channels {
		members[c] = struct{}{}
	}

	return nil
}

func (client *LocalClient) ListChannelsInGroup(ctx context.Context, group string) ([]string, error) {
	client.groupLock.Lock()
	defer client.groupLock.Unlock()

	ret := []string{}
	for c := range client.groups[group] {
		ret = append(ret, c)
	}
	sort.Strings(ret)

	return ret, nil
}

func (client *LocalClient) DeleteGroup(ctx context.Context, group string) error {
	client.groupLock.Lock()
	defer client.groupLock.Unlock()

	delete(client.groups, group)
	return nil
}

func (client *LocalClient) SetUser(context.Context, User) error {
	return errors.Wrap(ErrNotSupported, "set user metadata in local mode")
}

func (client *LocalClient) RemoveUser(context.Context, string) error {
	return errors.Wrap(ErrNotSupported, "remove user metadata in local mode")
}

func (client *LocalClient) SetChannel(context.Context, Channel) error {
	return errors.Wrap(ErrNotSupported, "set channel metadata in local mode")
}

func (client *LocalClient) RemoveChannel(context.Context, string) error {
	return errors.Wrap(ErrNotSupported, "remove channel metadata in local mode")
}

func (client *LocalClient) SetMemberships(context.Context, string, []Membership) error {
	return errors.Wrap(ErrNotSupported, "set memberships in local mode")
}

func (client *LocalClient) SendFile(context.Context, FileUpload) (FileResult, error) {
	return FileResult{}, errors.Wrap(ErrNotSupported, "send file in local mode")
}

/*
 * Copyright (c) 2022-2024, Dana Burkart <dana.burkart@gmail.com>
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package pubkit

import (
	"context"
	"encoding/json"

	"github.com/dburkart/pubkit/pkg/timetoken"
	"github.com/rs/zerolog"
)

// A Record is a single message from a channel's history.
type Record struct {
	Token     timetoken.Token
	Payload   json.RawMessage
	Meta      json.RawMessage
	Publisher string
}

// FetchRequest asks for the newest Limit records with Start < t <= End.
type FetchRequest struct {
	Channel     string
	Start       *timetoken.Token // exclusive lower bound
	End         *timetoken.Token // inclusive upper bound
	Limit       int
	IncludeMeta bool
	IncludeUUID bool
}

// FetchResult maps a channel to its records, oldest first. Channels without
// any records in the requested window may be absent.
type FetchResult map[string][]Record

type PublishRequest struct {
	Channel string
	Message any
	Meta    map[string]any
}

type PublishResult struct {
	Token timetoken.Token
}

type User struct {
	ID         string
	Name       string
	Email      string
	ExternalID string
	ProfileURL string
	Custom     map[string]any
}

type Channel struct {
	ID          string
	Name        string
	Description string
	Custom      map[string]any
}

// A Membership places a user in a channel.
type Membership struct {
	Channel string
	Custom  map[string]any
}

type FileUpload struct {
	Channel string
	Path    string
	Name    string
	Message string
}

type FileResult struct {
	ID    string
	Token timetoken.Token
}

// History reads a channel's persisted messages.
type History interface {
	Fetch(context.Context, FetchRequest) (FetchResult, error)
}

type Publisher interface {
	Publish(context.Context, PublishRequest) (PublishResult, error)
}

// Objects manages the user and channel directory (App Context).
type Objects interface {
	SetUser(context.Context, User) error
	RemoveUser(ctx context.Context, id string) error
	SetChannel(context.Context, Channel) error
	RemoveChannel(ctx context.Context, id string) error
	SetMemberships(ctx context.Context, userID string, memberships []Membership) error
}

type ChannelGroups interface {
	AddChannelsToGroup(ctx context.Context, group string, channels []string) error
	ListChannelsInGroup(ctx context.Context, group string) ([]string, error)
	DeleteGroup(ctx context.Context, group string) error
}

type Files interface {
	SendFile(context.Context, FileUpload) (FileResult, error)
}

type Client interface {
	History
	Publisher
	Objects
	ChannelGroups
	Files
	Close() error
}

// Options carries the credentials and identity used to talk to the service.
// The local backend ignores everything but UserID and Log.
type Options struct {
	PublishKey   string
	SubscribeKey string `validate:"required"`
	SecretKey    string
	UserID       string `validate:"required,max=92"`
	Secure       bool
	Log          zerolog.Logger
}

const DefaultUserID = "pubkit"

// NewClient creates a Client for the target described by connstr. Paths and
// file:// URLs open a local message store; pubnub:// URLs talk to the hosted
// service.
func NewClient(connstr string, opts Options) (Client, error) {
	target, err := ParseConnectionString(connstr)
	if err != nil {
		return nil, err
	}

	if opts.UserID == "" {
		opts.UserID = DefaultUserID
	}

	if target.Local {
		client := &LocalClient{}
		if err := client.Open(target, opts); err != nil {
			return nil, err
		}
		return client, nil
	}

	client := &RemoteClient{}
	if err := client.Open(target, opts); err != nil {
		return nil, err
	}
	return client, nil
}

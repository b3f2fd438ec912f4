/*
 * Copyright (c) 2023-2024, Dana Burkart <dana.burkart@gmail.com>
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package pubkit

import (
	"context"
	"encoding/json"
	"os"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	pubnub "github.com/pubnub/go/v7"
	"github.com/rs/zerolog"

	"github.com/dburkart/pubkit/pkg/timetoken"
)

// A RemoteClient talks to the hosted service through the vendor SDK. Every SDK
// call is synchronous; the context is only consulted before a call is made.
type RemoteClient struct {
	target ConnectionString
	pn     *pubnub.PubNub
	log    zerolog.Logger
}

func (client *RemoteClient) Open(target ConnectionString, opts Options) error {
	if err := validator.New().Struct(opts); err != nil {
		return errors.Wrap(err, "invalid credentials")
	}

	config := pubnub.NewConfigWithUserId(pubnub.UserId(opts.UserID))
	config.PublishKey = opts.PublishKey
	config.SubscribeKey = opts.SubscribeKey
	config.SecretKey = opts.SecretKey
	config.Origin = target.Address
	config.Secure = opts.Secure

	client.target = target
	client.pn = pubnub.NewPubNub(config)
	client.log = opts.Log.With().Str("origin", target.Address).Logger()

	return nil
}

func (client *RemoteClient) Close() error {
	client.pn.Destroy()
	return nil
}

// classify turns the SDK's (status, err) pair into our tagged error. Anything
// the service answered with a 4xx/5xx is a store error; the rest is transport.
func classify(op string, status pubnub.StatusResponse, err error) error {
	if err == nil && status.Error == nil {
		return nil
	}
	if err == nil {
		err = status.Error
	}
	if status.StatusCode >= 400 {
		return storeError(op, status.StatusCode, err)
	}
	return transportError(op, err)
}

func parseToken(s string) (timetoken.Token, error) {
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, errors.Wrapf(err, "invalid timetoken %q", s)
	}
	return timetoken.Token(v), nil
}

func rawJSON(v interface{}) json.RawMessage {
	if v == nil {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return b
}

func (client *RemoteClient) Fetch(ctx context.Context, req FetchRequest) (FetchResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, transportError("fetch", err)
	}

	builder := client.pn.Fetch().
		Channels([]string{req.Channel}).
		Count(req.Limit).
		IncludeMeta(req.IncludeMeta).
		IncludeUUID(req.IncludeUUID)
	// The service pages backward from an exclusive newer start towards an
	// inclusive older end, so the window's bounds swap roles.
	if req.End != nil {
		builder = builder.Start(int64(*req.End) + 1)
	}
	if req.Start != nil {
		builder = builder.End(int64(*req.Start) + 1)
	}

	res, status, err := builder.Execute()
	if err := classify("fetch", status, err); err != nil {
		return nil, err
	}

	result := FetchResult{}
	if res == nil {
		return result, nil
	}

	for channel, items := range res.Messages {
		records := make([]Record, 0, len(items))
		for _, item := range items {
			token, err := parseToken(item.Timetoken)
			if err != nil {
				return nil, transportError("fetch", err)
			}
			records = append(records, Record{
				Token:     token,
				Payload:   rawJSON(item.Message),
				Meta:      rawJSON(item.Meta),
				Publisher: item.UUID,
			})
		}
		result[channel] = records
	}

	return result, nil
}

func (client *RemoteClient) Publish(ctx context.Context, req PublishRequest) (PublishResult, error) {
	if err := ctx.Err(); err != nil {
		return PublishResult{}, transportError("publish", err)
	}

	// POST avoids URL length limits on large payloads
	builder := client.pn.Publish().
		Channel(req.Channel).
		Message(req.Message).
		UsePost(true)
	if req.Meta != nil {
		builder = builder.Meta(req.Meta)
	}

	res, status, err := builder.Execute()
	if err := classify("publish", status, err); err != nil {
		return PublishResult{}, err
	}
	if res == nil {
		return PublishResult{}, transportError("publish", errors.New("empty response"))
	}

	return PublishResult{Token: timetoken.Token(res.Timestamp)}, nil
}

func (client *RemoteClient) SetUser(ctx context.Context, u User) error {
	if err := ctx.Err(); err != nil {
		return transportError("set user", err)
	}

	_, status, err := client.pn.SetUUIDMetadata().
		UUID(u.ID).
		Name(u.Name).
		Email(u.Email).
		ExternalID(u.ExternalID).
		ProfileURL(u.ProfileURL).
		Custom(u.Custom).
		Execute()
	return classify("set user", status, err)
}

func (client *RemoteClient) RemoveUser(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return transportError("remove user", err)
	}

	_, status, err := client.pn.RemoveUUIDMetadata().UUID(id).Execute()
	return classify("remove user", status, err)
}

func (client *RemoteClient) SetChannel(ctx context.Context, c Channel) error {
	if err := ctx.Err(); err != nil {
		return transportError("set channel", err)
	}

	_, status, err := client.pn.SetChannelMetadata().
		Channel(c.ID).
		Name(c.Name).
		Description(c.Description).
		Custom(c.Custom).
		Execute()
	return classify("set channel", status, err)
}

func (client *RemoteClient) RemoveChannel(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return transportError("remove channel", err)
	}

	_, status, err := client.pn.RemoveChannelMetadata().Channel(id).Execute()
	return classify("remove channel", status, err)
}

func (client *RemoteClient) SetMemberships(ctx context.Context, userID string, memberships []Membership) error {
	if err := ctx.Err(); err != nil {
		return transportError("set memberships", err)
	}

	sets := make([]pubnub.PNMembershipsSet, len(memberships))
	for i, m := range memberships {
		sets[i].Channel.ID = m.Channel
		sets[i].Custom = m.Custom
	}

	_, status, err := client.pn.SetMemberships().UUID(userID).Set(sets).Execute()
	return classify("set memberships", status, err)
}

func (client *RemoteClient) AddChannelsToGroup(ctx context.Context, group string, channels []string) error {
	if err := ctx.Err(); err != nil {
		return transportError("add channels to group", err)
	}

	_, status, err := client.pn.AddChannelToChannelGroup().
		Channels(channels).
		ChannelGroup(group).
		Execute()
	return classify("add channels to group", status, err)
}

func (client *RemoteClient) ListChannelsInGroup(ctx context.Context, group string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, transportError("list channels in group", err)
	}

	res, status, err := client.pn.ListChannelsInChannelGroup().
		ChannelGroup(group).
		Execute()
	if err := classify("list channels in group", status, err); err != nil {
		return nil, err
	}
	if res == nil {
		return []string{}, nil
	}

	return res.Channels, nil
}

func (client *RemoteClient) DeleteGroup(ctx context.Context, group string) error {
	if err := ctx.Err(); err != nil {
		return transportError("delete group", err)
	}

	_, status, err := client.pn.DeleteChannelGroup().
		ChannelGroup(group).
		Execute()
	return classify("delete group", status, err)
}

func (client *RemoteClient) SendFile(ctx context.Context, upload FileUpload) (FileResult, error) {
	if err := ctx.Err(); err != nil {
		return FileResult{}, transportError("send file", err)
	}

	file, err := os.Open(upload.Path)
	if err != nil {
		return FileResult{}, errors.Wrap(err, "opening upload")
	}
	defer file.Close()

	builder := client.pn.SendFile().
		Channel(upload.Channel).
		Name(upload.Name).
		File(file)
	if upload.Message != "" {
		builder = builder.Message(upload.Message)
	}

	res, status, err := builder.Execute()
	if err := classify("send file", status, err); err != nil {
		return FileResult{}, err
	}
	if res == nil {
		return FileResult{}, transportError("send file", errors.New("empty response"))
	}

	return FileResult{ID: res.Data.ID, Token: timetoken.Token(res.Timestamp)}, nil
}

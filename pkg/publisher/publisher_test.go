/*
 * Copyright (c) 2024, Dana Burkart <dana.burkart@gmail.com>
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package publisher

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pubkit "github.com/dburkart/pubkit/api"
	"github.com/dburkart/pubkit/pkg/generator"
	"github.com/dburkart/pubkit/pkg/timetoken"
)

type fakePublisher struct {
	requests []pubkit.PublishRequest
	failOn   map[int]bool
}

func (f *fakePublisher) Publish(ctx context.Context, req pubkit.PublishRequest) (pubkit.PublishResult, error) {
	f.requests = append(f.requests, req)
	n := len(f.requests)
	if f.failOn[n] {
		return pubkit.PublishResult{}, &pubkit.Error{Kind: pubkit.KindStore, Op: "publish", Status: 413, Err: errors.New("payload too large")}
	}
	return pubkit.PublishResult{Token: timetoken.Token(1000 + n)}, nil
}

func newTestPublisher(client pubkit.Publisher) (*Publisher, *[]time.Duration) {
	p := New(client, generator.New(1), zerolog.Nop())
	slept := []time.Duration{}
	p.sleep = func(ctx context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}
	return p, &slept
}

func TestRunPublishesAndSummarizes(t *testing.T) {
	client := &fakePublisher{failOn: map[int]bool{2: true}}
	p, slept := newTestPublisher(client)

	summary, err := p.Run(context.Background(), Options{
		Channel:   "load",
		Count:     3,
		MinSize:   500,
		MaxSize:   2000,
		Delay:     100 * time.Millisecond,
		Meta:      true,
		Type:      "chat_message",
		Publisher: "tester",
	})
	require.NoError(t, err)

	assert.Equal(t, 3, len(summary.Results))
	assert.Equal(t, 2, summary.Succeeded())
	assert.Equal(t, 1, summary.Failed())
	assert.Len(t, *slept, 2, "no delay after the last message")

	require.Len(t, client.requests, 3)
	for i, req := range client.requests {
		msg := req.Message.(generator.Message)
		assert.Equal(t, "chat_message", msg["type"])
		assert.NotNil(t, req.Meta)

		meta := msg["_meta"].(map[string]any)
		assert.Equal(t, i+1, meta["sequence"])
		assert.Equal(t, 3, meta["total"])
		assert.Equal(t, "tester", meta["publisher"])
	}

	for _, r := range summary.Results {
		assert.GreaterOrEqual(t, r.TargetSize, 500)
		assert.LessOrEqual(t, r.TargetSize, 2000)
	}
	assert.Equal(t, summary.Results[0].Size+summary.Results[2].Size, summary.Bytes())

	rows := summary.Values()
	assert.Equal(t, []string{"Message 2", summary.Results[1].Err.Error()}, rows[len(rows)-1])
}

func TestRunValidatesOptions(t *testing.T) {
	p, _ := newTestPublisher(&fakePublisher{})

	tt := []struct {
		test string
		opts Options
	}{
		{"zero count", Options{Channel: "c", Count: 0, MinSize: 1, MaxSize: 2}},
		{"inverted sizes", Options{Channel: "c", Count: 1, MinSize: 20, MaxSize: 10}},
		{"equal sizes", Options{Channel: "c", Count: 1, MinSize: 10, MaxSize: 10}},
		{"no channel", Options{Count: 1, MinSize: 1, MaxSize: 2}},
		{"bad type", Options{Channel: "c", Count: 1, MinSize: 1, MaxSize: 2, Type: "fax"}},
	}

	for _, tc := range tt {
		t.Run(tc.test, func(t *testing.T) {
			_, err := p.Run(context.Background(), tc.opts)
			assert.Error(t, err)
		})
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	client := &fakePublisher{}
	p, _ := newTestPublisher(client)

	ctx, cancel := context.WithCancel(context.Background())
	p.sleep = func(context.Context, time.Duration) error {
		cancel()
		return context.Canceled
	}

	summary, err := p.Run(ctx, Options{Channel: "c", Count: 5, MinSize: 100, MaxSize: 200, Delay: time.Second})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Len(t, summary.Results, 1)
}

/*
 * Copyright (c) 2024, Dana Burkart <dana.burkart@gmail.com>
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

// Package probe checks whether channel group management needs the secret
// key by running the same operations with and without it.
package probe

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	pubkit "github.com/dburkart/pubkit/api"
)

type Conclusion string

const (
	NotRequired  Conclusion = "SECRET_KEY_NOT_REQUIRED"
	Required     Conclusion = "SECRET_KEY_REQUIRED"
	Interferes   Conclusion = "SECRET_KEY_INTERFERES"
	Inconclusive Conclusion = "INCONCLUSIVE"
)

func (c Conclusion) Describe() string {
	switch c {
	case NotRequired:
		return "secret key is not required for channel groups"
	case Required:
		return "secret key is required for channel groups"
	case Interferes:
		return "only the client without the secret key succeeded"
	}
	return "both clients failed, check the keys and configuration"
}

// DefaultSettle is how long to wait for group changes to propagate.
const DefaultSettle = 2 * time.Second

// A Trial is one client's run through the group lifecycle.
type Trial struct {
	Label    string
	Group    string
	Channels []string

	Created  bool
	Queried  bool
	Verified bool
	Deleted  bool
	Found    []string
	Errors   []string

	client pubkit.ChannelGroups
}

func newTrial(label string, client pubkit.ChannelGroups) *Trial {
	prefix := "pubkit-probe-" + label + "-" + uuid.NewString()[:8]
	return &Trial{
		Label:    label,
		Group:    prefix,
		Channels: []string{prefix + "-1", prefix + "-2"},
		client:   client,
	}
}

func (t *Trial) fail(op string, err error) {
	t.Errors = append(t.Errors, fmt.Sprintf("%s: %v", op, err))
}

type Report struct {
	WithSecret    *Trial
	WithoutSecret *Trial
	Conclusion    Conclusion
}

func mark(ok bool) string {
	if ok {
		return "ok"
	}
	return "failed"
}

func (r Report) Headers() []string {
	return []string{"Operation", "With secret", "Without secret"}
}

func (r Report) Values() [][]string {
	w, wo := r.WithSecret, r.WithoutSecret
	rows := [][]string{
		{"Group", w.Group, wo.Group},
		{"Create", mark(w.Created), mark(wo.Created)},
		{"Query", mark(w.Queried), mark(wo.Queried)},
		{"Channels found", strings.Join(w.Found, " "), strings.Join(wo.Found, " ")},
		{"Verified", mark(w.Verified), mark(wo.Verified)},
		{"Cleanup", mark(w.Deleted), mark(wo.Deleted)},
		{"Errors", strings.Join(w.Errors, "; "), strings.Join(wo.Errors, "; ")},
		{"Conclusion", string(r.Conclusion), r.Conclusion.Describe()},
	}
	return rows
}

type Probe struct {
	withSecret    pubkit.ChannelGroups
	withoutSecret pubkit.ChannelGroups
	log           zerolog.Logger

	Settle time.Duration
	sleep  func(context.Context, time.Duration) error
}

func New(withSecret, withoutSecret pubkit.ChannelGroups, log zerolog.Logger) *Probe {
	return &Probe{
		withSecret:    withSecret,
		withoutSecret: withoutSecret,
		log:           log,
		Settle:        DefaultSettle,
		sleep:         sleep,
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Run creates, queries and removes a group with each client. Operation
// failures are part of the report; only cancellation returns an error.
func (p *Probe) Run(ctx context.Context) (Report, error) {
	report := Report{
		WithSecret:    newTrial("with-secret", p.withSecret),
		WithoutSecret: newTrial("without-secret", p.withoutSecret),
	}
	trials := []*Trial{report.WithSecret, report.WithoutSecret}

	// Groups are removed even when the probe is interrupted
	defer p.cleanup(trials)

	for _, t := range trials {
		p.create(ctx, t)
	}

	p.log.Info().Dur("settle", p.Settle).Msg("waiting for groups to propagate")
	if err := p.sleep(ctx, p.Settle); err != nil {
		return report, err
	}

	for _, t := range trials {
		p.query(ctx, t)
	}

	report.Conclusion = conclude(report.WithSecret, report.WithoutSecret)
	return report, ctx.Err()
}

func (p *Probe) create(ctx context.Context, t *Trial) {
	log := p.log.With().Str("trial", t.Label).Str("group", t.Group).Logger()

	if err := t.client.AddChannelsToGroup(ctx, t.Group, t.Channels); err != nil {
		t.fail("create", err)
		log.Error().Err(err).Msg("unable to create group")
		return
	}
	t.Created = true
	log.Info().Strs("channels", t.Channels).Msg("created group")
}

func (p *Probe) query(ctx context.Context, t *Trial) {
	log := p.log.With().Str("trial", t.Label).Str("group", t.Group).Logger()

	found, err := t.client.ListChannelsInGroup(ctx, t.Group)
	if err != nil {
		t.fail("query", err)
		log.Error().Err(err).Msg("unable to query group")
		return
	}

	t.Queried = true
	t.Found = append([]string{}, found...)
	sort.Strings(t.Found)
	t.Verified = sameChannels(t.Channels, t.Found)
	log.Info().Strs("found", t.Found).Bool("verified", t.Verified).Msg("queried group")
}

func (p *Probe) cleanup(trials []*Trial) {
	// Use a fresh context so an interrupted probe still cleans up
	ctx := context.Background()
	for _, t := range trials {
		if !t.Created {
			continue
		}
		if err := t.client.DeleteGroup(ctx, t.Group); err != nil {
			t.fail("cleanup", err)
			p.log.Warn().Err(err).Str("group", t.Group).Msg("unable to delete group")
			continue
		}
		t.Deleted = true
	}
}

func sameChannels(expected, found []string) bool {
	if len(expected) != len(found) {
		return false
	}
	want := map[string]bool{}
	for _, c := range expected {
		want[c] = true
	}
	for _, c := range found {
		if !want[c] {
			return false
		}
	}
	return true
}

func conclude(with, without *Trial) Conclusion {
	switch {
	case with.Created && without.Created && with.Queried && without.Queried:
		return NotRequired
	case with.Created && !without.Created:
		return Required
	case !with.Created && without.Created:
		return Interferes
	}
	return Inconclusive
}

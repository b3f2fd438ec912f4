/*
 * Copyright (c) 2024, Dana Burkart <dana.burkart@gmail.com>
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

// Package seed fills the service's user and channel directory with
// synthetic users, channels and memberships.
package seed

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	pubkit "github.com/dburkart/pubkit/api"
	"github.com/dburkart/pubkit/pkg/generator"
	"github.com/dburkart/pubkit/pkg/ledger"
)

const (
	DefaultBatchPause      = 100 * time.Millisecond
	DefaultMembershipPause = 50 * time.Millisecond

	// After this many failures in a row the service is assumed unreachable.
	MaxConsecutiveFailures = 10
)

var ErrTooManyFailures = errors.New("too many consecutive failures")

type Options struct {
	Users           int     `validate:"gte=0"`
	Channels        int     `validate:"gte=1"`
	MembershipRatio float64 `validate:"gte=0,lte=1"`
	BatchSize       int     `validate:"gt=0"`
	DryRun          bool
}

func DefaultOptions() Options {
	return Options{
		Users:           100,
		Channels:        20,
		MembershipRatio: 0.3,
		BatchSize:       10,
	}
}

// Client is what the seeder needs from the service: the directory, plus
// group deletion for the ledger's cleanup.
type Client interface {
	pubkit.Objects
	ledger.Remover
}

type Seeder struct {
	client Client
	ledger *ledger.Ledger
	gen    *generator.Generator
	log    zerolog.Logger

	BatchPause      time.Duration
	MembershipPause time.Duration
	sleep           func(context.Context, time.Duration) error
}

func New(client Client, l *ledger.Ledger, gen *generator.Generator, log zerolog.Logger) *Seeder {
	return &Seeder{
		client:          client,
		ledger:          l,
		gen:             gen,
		log:             log,
		BatchPause:      DefaultBatchPause,
		MembershipPause: DefaultMembershipPause,
		sleep:           sleep,
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// MembershipsPerUser is how many channels each user joins.
func MembershipsPerUser(channels int, ratio float64) int {
	n := int(math.Round(float64(channels) * ratio))
	if n < 1 {
		n = 1
	}
	if n > channels {
		n = channels
	}
	return n
}

type Report struct {
	RunID              string
	DryRun             bool
	UsersRequested     int
	UsersCreated       int
	ChannelsRequested  int
	ChannelsCreated    int
	MembershipsCreated int
	MembershipsPlanned int
	Duration           time.Duration

	SampleUsers    []pubkit.User
	SampleChannels []pubkit.Channel
}

func (r Report) Headers() []string {
	return []string{"Field", "Value"}
}

func (r Report) Values() [][]string {
	if r.DryRun {
		rows := [][]string{
			{"Users", strconv.Itoa(r.UsersRequested)},
			{"Channels", strconv.Itoa(r.ChannelsRequested)},
			{"Memberships", strconv.Itoa(r.MembershipsPlanned)},
		}
		for _, u := range r.SampleUsers {
			rows = append(rows, []string{"Sample user", fmt.Sprintf("%s (%s, %s)", u.ID, u.Name, u.Email)})
		}
		for _, c := range r.SampleChannels {
			rows = append(rows, []string{"Sample channel", fmt.Sprintf("%s (%s)", c.ID, c.Description)})
		}
		return rows
	}

	return [][]string{
		{"Run", r.RunID},
		{"Users", fmt.Sprintf("%d/%d", r.UsersCreated, r.UsersRequested)},
		{"Channels", fmt.Sprintf("%d/%d", r.ChannelsCreated, r.ChannelsRequested)},
		{"Memberships", fmt.Sprintf("%d/%d", r.MembershipsCreated, r.MembershipsPlanned)},
		{"Duration", r.Duration.Round(time.Millisecond).String()},
	}
}

const sampleSize = 3

// Run generates and creates the directory. On a fatal error everything this
// run created is removed again, best effort, and the error is returned with
// the partial report.
func (s *Seeder) Run(ctx context.Context, opts Options) (Report, error) {
	if err := validator.New().Struct(opts); err != nil {
		return Report{}, errors.Wrap(err, "invalid seed options")
	}

	started := time.Now()
	users := s.gen.Users(opts.Users)
	channels := s.gen.Channels(opts.Channels)
	perUser := MembershipsPerUser(opts.Channels, opts.MembershipRatio)

	report := Report{
		DryRun:             opts.DryRun,
		UsersRequested:     len(users),
		ChannelsRequested:  len(channels),
		MembershipsPlanned: perUser * len(users),
	}
	s.log.Info().
		Int("users", len(users)).
		Int("channels", len(channels)).
		Int("memberships", report.MembershipsPlanned).
		Dur("generated_in", time.Since(started)).
		Msg("generated directory")

	if opts.DryRun {
		report.SampleUsers = users[:min(sampleSize, len(users))]
		report.SampleChannels = channels[:min(sampleSize, len(channels))]
		return report, nil
	}

	report.RunID = ledger.NewRunID()
	log := s.log.With().Str("run", report.RunID).Logger()

	err := s.create(ctx, log, opts, users, channels, perUser, &report)
	report.Duration = time.Since(started)
	if err == nil {
		return report, nil
	}

	log.Error().Err(err).Msg("seeding failed, removing what was created")
	// The run's context may already be cancelled
	cleanup, cerr := s.ledger.Cleanup(context.Background(), s.client, report.RunID)
	if cerr != nil {
		log.Error().Err(cerr).Msg("cleanup failed")
	} else {
		log.Info().Int("removed", cleanup.Removed).Int("failed", cleanup.Failed).Msg("cleanup complete")
	}
	return report, err
}

func (s *Seeder) create(ctx context.Context, log zerolog.Logger, opts Options, users []pubkit.User, channels []pubkit.Channel, perUser int, report *Report) error {
	failures := 0
	track := func(err error) error {
		if err == nil {
			failures = 0
			return nil
		}
		failures++
		if failures >= MaxConsecutiveFailures {
			return errors.Wrap(ErrTooManyFailures, err.Error())
		}
		return nil
	}

	userIDs := make([]string, 0, len(users))
	for i, u := range users {
		err := s.client.SetUser(ctx, u)
		if err == nil {
			if lerr := s.ledger.Record(report.RunID, ledger.KindUser, u.ID); lerr != nil {
				return lerr
			}
			report.UsersCreated++
			userIDs = append(userIDs, u.ID)
		} else {
			log.Warn().Err(err).Str("user", u.ID).Msg("unable to create user")
		}
		if ferr := track(err); ferr != nil {
			return ferr
		}

		if err := s.batchPause(ctx, log, "users", i, len(users), opts.BatchSize, s.BatchPause); err != nil {
			return err
		}
	}

	channelIDs := make([]string, 0, len(channels))
	for i, c := range channels {
		err := s.client.SetChannel(ctx, c)
		if err == nil {
			if lerr := s.ledger.Record(report.RunID, ledger.KindChannel, c.ID); lerr != nil {
				return lerr
			}
			report.ChannelsCreated++
			channelIDs = append(channelIDs, c.ID)
		} else {
			log.Warn().Err(err).Str("channel", c.ID).Msg("unable to create channel")
		}
		if ferr := track(err); ferr != nil {
			return ferr
		}

		if err := s.batchPause(ctx, log, "channels", i, len(channels), opts.BatchSize, s.BatchPause); err != nil {
			return err
		}
	}

	if len(channelIDs) == 0 {
		return nil
	}

	// Everyone joins the first channel; the rest are random
	guaranteed, others := channelIDs[0], channelIDs[1:]
	for i, id := range userIDs {
		joined := append([]string{guaranteed}, s.gen.Sample(others, perUser-1)...)

		memberships := make([]pubkit.Membership, len(joined))
		for j, c := range joined {
			memberships[j] = s.gen.Membership(c)
		}

		err := s.client.SetMemberships(ctx, id, memberships)
		if err == nil {
			report.MembershipsCreated += len(memberships)
		} else {
			log.Warn().Err(err).Str("user", id).Msg("unable to set memberships")
		}
		if ferr := track(err); ferr != nil {
			return ferr
		}

		if err := s.batchPause(ctx, log, "memberships", i, len(userIDs), opts.BatchSize, s.MembershipPause); err != nil {
			return err
		}
	}

	return nil
}

// batchPause logs progress and sleeps at the end of every batch except the
// last.
func (s *Seeder) batchPause(ctx context.Context, log zerolog.Logger, what string, i, total, batchSize int, pause time.Duration) error {
	done := i + 1
	if done%batchSize != 0 && done != total {
		return ctx.Err()
	}

	log.Info().
		Int("done", done).
		Int("total", total).
		Str("percent", fmt.Sprintf("%.1f%%", float64(done)/float64(total)*100)).
		Msg(what)

	if done == total {
		return ctx.Err()
	}
	return s.sleep(ctx, pause)
}

/*
 * Copyright (c) 2024, Dana Burkart <dana.burkart@gmail.com>
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

// Package session holds the plumbing shared by every subcommand: the
// configured logger, output writer and client.
package session

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	pubkit "github.com/dburkart/pubkit/api"
	"github.com/dburkart/pubkit/pkg/generator"
	"github.com/dburkart/pubkit/pkg/metrics"
	"github.com/dburkart/pubkit/pkg/report"
)

var ErrUnsupportedOutput = errors.New("unsupported output format")

func Logger() zerolog.Logger {
	return viper.Get("logger").(zerolog.Logger)
}

// Options builds client options from the pubnub.* configuration.
func Options() pubkit.Options {
	return pubkit.Options{
		PublishKey:   viper.GetString("pubnub.publish-key"),
		SubscribeKey: viper.GetString("pubnub.subscribe-key"),
		SecretKey:    viper.GetString("pubnub.secret-key"),
		UserID:       viper.GetString("pubnub.user-id"),
		Secure:       viper.GetBool("pubnub.secure"),
		Log:          Logger(),
	}
}

func Writer() (report.OutputWriter, error) {
	output := viper.GetString("pubkit.output")
	for _, f := range report.Formats {
		if f == output {
			return report.NewOutputWriter(os.Stdout, output), nil
		}
	}
	return nil, errors.Wrapf(ErrUnsupportedOutput, "%q, expected one of %v", output, report.Formats)
}

// Context is cancelled on SIGINT or SIGTERM.
func Context(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

type Session struct {
	Client pubkit.Client
	Out    report.OutputWriter
	Log    zerolog.Logger

	metrics *http.Server
}

// Open connects to pubkit.host. When pubkit.prom-port is set, the client is
// instrumented and /metrics is served until Close.
func Open(opts pubkit.Options) (*Session, error) {
	log := Logger()

	out, err := Writer()
	if err != nil {
		return nil, err
	}

	host := viper.GetString("pubkit.host")
	client, err := pubkit.NewClient(host, opts)
	if err != nil {
		return nil, errors.Wrapf(err, "connecting to %s", host)
	}

	s := &Session{Client: client, Out: out, Log: log}

	if port := viper.GetInt("pubkit.prom-port"); port > 0 {
		store := metrics.NewStore()
		if local, ok := client.(*pubkit.LocalClient); ok {
			store.RegisterCollector(metrics.NewDBStatsCollector(local.Database()))
		}
		s.Client = pubkit.Instrument(client, store)
		s.metrics = metrics.Serve(log, store, port)
	}

	return s, nil
}

func (s *Session) Close() error {
	if s.metrics != nil {
		s.metrics.Close()
	}
	return s.Client.Close()
}

// Generator returns a generator seeded from --seed, or from the clock when
// no seed was given.
func Generator() *generator.Generator {
	seed := viper.GetInt64("pubkit.seed")
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return generator.New(seed)
}

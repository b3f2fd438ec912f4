/*
 * Copyright (c) 2024, Dana Burkart <dana.burkart@gmail.com>
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package publisher

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	pubkit "github.com/dburkart/pubkit/api"
	"github.com/dburkart/pubkit/pkg/generator"
	"github.com/dburkart/pubkit/pkg/timetoken"
)

type Options struct {
	Channel string `validate:"required"`
	Count   int    `validate:"gt=0"`
	MinSize int    `validate:"gte=0"`
	MaxSize int    `validate:"gtfield=MinSize"`
	Delay   time.Duration
	Meta    bool
	Type    string
	// Publisher is recorded in each message's _meta block.
	Publisher string
}

func (o Options) Validate() error {
	if err := validator.New().Struct(o); err != nil {
		return err
	}
	if o.Type != "" && !generator.ValidType(o.Type) {
		return errors.Wrap(generator.ErrUnknownType, o.Type)
	}
	return nil
}

// Result describes one publish attempt.
type Result struct {
	Sequence   int
	Success    bool
	Token      timetoken.Token
	Err        error
	Type       string
	Size       int
	TargetSize int
}

type Publisher struct {
	client pubkit.Publisher
	gen    *generator.Generator
	log    zerolog.Logger
	sleep  func(context.Context, time.Duration) error
}

func New(client pubkit.Publisher, gen *generator.Generator, log zerolog.Logger) *Publisher {
	return &Publisher{
		client: client,
		gen:    gen,
		log:    log,
		sleep:  sleep,
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

// Run publishes opts.Count generated messages. Individual publish failures
// are recorded in the returned results; only cancellation stops the run.
func (p *Publisher) Run(ctx context.Context, opts Options) (Summary, error) {
	if err := opts.Validate(); err != nil {
		return Summary{}, errors.Wrap(err, "invalid publish options")
	}

	log := p.log.With().Str("channel", opts.Channel).Logger()
	log.Info().
		Int("count", opts.Count).
		Int("min_size", opts.MinSize).
		Int("max_size", opts.MaxSize).
		Str("type", typeOrRandom(opts.Type)).
		Bool("meta", opts.Meta).
		Msg("publishing messages")

	summary := Summary{Channel: opts.Channel}
	started := time.Now()

	for i := 0; i < opts.Count; i++ {
		if err := ctx.Err(); err != nil {
			summary.Duration = time.Since(started)
			return summary, err
		}

		result := p.publishOne(ctx, opts, i+1)
		summary.Results = append(summary.Results, result)

		if result.Success {
			log.Info().
				Int("sequence", result.Sequence).
				Stringer("timetoken", result.Token).
				Int("size", result.Size).
				Str("type", result.Type).
				Msg("published")
		} else {
			log.Error().Err(result.Err).Int("sequence", result.Sequence).Msg("publish failed")
		}

		if opts.Delay > 0 && i < opts.Count-1 {
			if err := p.sleep(ctx, opts.Delay); err != nil {
				summary.Duration = time.Since(started)
				return summary, err
			}
		}
	}

	summary.Duration = time.Since(started)
	return summary, nil
}

func (p *Publisher) publishOne(ctx context.Context, opts Options, sequence int) Result {
	target := opts.MinSize
	if opts.MaxSize > opts.MinSize {
		target += p.gen.Intn(opts.MaxSize - opts.MinSize + 1)
	}
	result := Result{Sequence: sequence, TargetSize: target, Type: "unknown"}

	msg, err := p.gen.Message(opts.Type, opts.Meta, target)
	if err != nil {
		result.Err = err
		return result
	}
	result.Type, _ = msg["type"].(string)

	msg["_meta"] = map[string]any{
		"sequence":          sequence,
		"total":             opts.Count,
		"generated_at":      time.Now().Format(time.RFC3339Nano),
		"publisher":         opts.Publisher,
		"target_size_bytes": target,
	}
	// The reported size includes the _meta block itself
	msg["_meta"].(map[string]any)["actual_size_bytes"] = generator.Size(msg)
	result.Size = generator.Size(msg)

	req := pubkit.PublishRequest{Channel: opts.Channel, Message: msg}
	if meta, ok := msg["meta"].(map[string]any); ok {
		req.Meta = meta
	}

	res, err := p.client.Publish(ctx, req)
	if err != nil {
		result.Err = err
		return result
	}

	result.Success = true
	result.Token = res.Token
	return result
}

func typeOrRandom(t string) string {
	if t == "" {
		return "random"
	}
	return t
}

// Summary aggregates a publishing run.
type Summary struct {
	Channel  string
	Results  []Result
	Duration time.Duration
}

func (s Summary) Succeeded() int {
	n := 0
	for _, r := range s.Results {
		if r.Success {
			n++
		}
	}
	return n
}

func (s Summary) Failed() int {
	return len(s.Results) - s.Succeeded()
}

// Bytes is the total size of the messages that were published.
func (s Summary) Bytes() int {
	n := 0
	for _, r := range s.Results {
		if r.Success {
			n += r.Size
		}
	}
	return n
}

func (s Summary) Rate() float64 {
	if s.Duration <= 0 {
		return 0
	}
	return float64(len(s.Results)) / s.Duration.Seconds()
}

func (s Summary) AverageSize() int {
	if ok := s.Succeeded(); ok > 0 {
		return s.Bytes() / ok
	}
	return 0
}

func (s Summary) Headers() []string {
	return []string{"Field", "Value"}
}

func (s Summary) Values() [][]string {
	rows := [][]string{
		{"Channel", s.Channel},
		{"Total messages", strconv.Itoa(len(s.Results))},
		{"Successful", strconv.Itoa(s.Succeeded())},
		{"Failed", strconv.Itoa(s.Failed())},
		{"Duration", s.Duration.Round(time.Millisecond).String()},
		{"Rate", fmt.Sprintf("%.2f messages/sec", s.Rate())},
		{"Total data", humanize.Bytes(uint64(s.Bytes()))},
		{"Average size", humanize.Bytes(uint64(s.AverageSize()))},
	}
	for _, r := range s.Results {
		if !r.Success {
			rows = append(rows, []string{fmt.Sprintf("Message %d", r.Sequence), r.Err.Error()})
		}
	}
	return rows
}

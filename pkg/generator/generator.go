/*
 * Copyright (c) 2024, Dana Burkart <dana.burkart@gmail.com>
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

// Package generator produces realistic fake payloads, directory entries and
// file names for exercising a messaging service.
package generator

import (
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v6"
)

type Generator struct {
	fake *gofakeit.Faker
	now  func() time.Time
}

// New returns a Generator. A zero seed picks a random one.
func New(seed int64) *Generator {
	return &Generator{
		fake: gofakeit.New(seed),
		now:  time.Now,
	}
}

func (g *Generator) pick(choices ...string) string {
	return g.fake.RandomString(choices)
}

func (g *Generator) between(min, max int) int {
	return g.fake.Number(min, max)
}

// Intn returns a value in [0, n).
func (g *Generator) Intn(n int) int {
	if n <= 1 {
		return 0
	}
	return g.fake.Number(0, n-1)
}

func (g *Generator) round(min, max float64, places int) float64 {
	v := g.fake.Float64Range(min, max)
	p := 1.0
	for i := 0; i < places; i++ {
		p *= 10
	}
	return float64(int64(v*p+0.5)) / p
}

// maybe returns v half of the time and nil otherwise.
func (g *Generator) maybe(v any) any {
	if g.fake.Bool() {
		return v
	}
	return nil
}

// text builds prose of at most max characters.
func (g *Generator) text(max int) string {
	if max <= 0 {
		return ""
	}

	var b strings.Builder
	for b.Len() < max {
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(g.fake.Sentence(g.between(4, 12)))
	}

	s := b.String()
	if len(s) > max {
		s = strings.TrimSpace(s[:max])
	}
	return s
}

// isoSince renders a random time between the given offset and now.
func (g *Generator) isoSince(ago time.Duration) string {
	now := g.now()
	return g.fake.DateRange(now.Add(-ago), now).Format(time.RFC3339)
}

func (g *Generator) isoUntil(ahead time.Duration) string {
	now := g.now()
	return g.fake.DateRange(now, now.Add(ahead)).Format(time.RFC3339)
}

func (g *Generator) dateSince(ago time.Duration) string {
	now := g.now()
	return g.fake.DateRange(now.Add(-ago), now).Format("2006-01-02")
}

func (g *Generator) coordinates() map[string]any {
	return map[string]any{
		"lat": g.fake.Latitude(),
		"lng": g.fake.Longitude(),
	}
}

const (
	day  = 24 * time.Hour
	year = 365 * day
)

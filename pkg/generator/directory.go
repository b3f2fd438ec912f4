/*
 * Copyright (c) 2024, Dana Burkart <dana.burkart@gmail.com>
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package generator

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	pubkit "github.com/dburkart/pubkit/api"
)

var (
	departments = []string{"Engineering", "Marketing", "Sales", "Support", "Product", "Design", "HR", "Finance"}
	roles       = []string{"Manager", "Developer", "Analyst", "Specialist", "Coordinator", "Director", "Lead"}
)

type channelFamily struct {
	prefix      string
	suffixes    []string
	description string
}

var channelFamilies = []channelFamily{
	{"team-", []string{"engineering", "marketing", "sales", "support", "product", "design", "hr", "finance"}, "Team channel for %s department discussions and updates"},
	{"project-", []string{"alpha", "beta", "gamma", "phoenix", "titan", "nova", "quantum", "nexus"}, "Project channel for %s initiative coordination and updates"},
	{"topic-", []string{"random", "tech-talk", "coffee-chat", "book-club", "fitness", "gaming", "music"}, "Topic-based discussion channel for %s"},
	{"location-", []string{"nyc", "sf", "london", "tokyo", "berlin", "sydney", "toronto", "austin"}, "Location-based channel for %s office discussions"},
	{"event-", []string{"all-hands", "standup", "retrospective", "planning", "demo", "social"}, "Event coordination channel for %s meetings"},
	{"help-", []string{"it-support", "hr-questions", "facilities", "security", "onboarding"}, "Support channel for %s related questions and assistance"},
	{"announcement-", []string{"company", "product", "engineering", "security", "policy"}, "Announcement channel for %s updates and notifications"},
}

// GeneralChannel is always the first generated channel.
const GeneralChannel = "general"

func slug(s string) string {
	s = strings.ToLower(s)
	return strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			return r
		}
		return -1
	}, s)
}

// Users generates n directory users with stable, sequence based ids.
func (g *Generator) Users(n int) []pubkit.User {
	users := make([]pubkit.User, 0, n)
	for i := 1; i <= n; i++ {
		first, last := g.fake.FirstName(), g.fake.LastName()

		users = append(users, pubkit.User{
			ID:         fmt.Sprintf("user_%05d_%s_%s", i, slug(first), slug(last)),
			Name:       first + " " + last,
			Email:      fmt.Sprintf("%s.%s@%s.com", slug(first), slug(last), slug(g.fake.Company())),
			ExternalID: "ext_" + g.fake.UUID()[:8],
			ProfileURL: fmt.Sprintf("https://api.dicebear.com/7.x/personas/svg?seed=%s%s", first, last),
			Custom: map[string]any{
				"department":  g.pick(departments...),
				"role":        g.pick(roles...),
				"join_date":   g.dateSince(2 * year),
				"timezone":    g.fake.TimeZoneRegion(),
				"phone":       g.fake.Phone(),
				"employee_id": fmt.Sprintf("EMP%05d", i),
				"manager":     g.fake.Bool(),
				"status":      g.pick("active", "active", "active", "away", "busy"),
			},
		})
	}
	return users
}

// Channels generates n directory channels. The first is always "general";
// the rest are drawn from themed families, with a numeric suffix added when
// an id repeats.
func (g *Generator) Channels(n int) []pubkit.Channel {
	channels := make([]pubkit.Channel, 0, n)
	seen := map[string]int{}

	for i := 0; i < n; i++ {
		if i == 0 {
			seen[GeneralChannel]++
			channels = append(channels, pubkit.Channel{
				ID:          GeneralChannel,
				Name:        "General",
				Description: "Company-wide general discussion and announcements",
				Custom: map[string]any{
					"type":         "general",
					"visibility":   "public",
					"created_date": g.dateSince(year),
					"max_members":  1000,
					"moderated":    true,
					"category":     "Company",
				},
			})
			continue
		}

		family := channelFamilies[g.between(0, len(channelFamilies)-1)]
		suffix := g.pick(family.suffixes...)
		name := title(strings.ReplaceAll(suffix, "-", " "))

		id := family.prefix + suffix
		seen[id]++
		if seen[id] > 1 {
			id = fmt.Sprintf("%s-%d", id, seen[id])
		}

		var archive any
		if days := []int{30, 60, 90, 365, 0}[g.between(0, 4)]; days > 0 {
			archive = days
		}

		channels = append(channels, pubkit.Channel{
			ID:          id,
			Name:        name,
			Description: fmt.Sprintf(family.description, name),
			Custom: map[string]any{
				"type":               strings.TrimSuffix(family.prefix, "-"),
				"visibility":         g.pick("public", "public", "private"),
				"created_date":       g.dateSince(year),
				"max_members":        []int{50, 100, 200, 500, 1000}[g.between(0, 4)],
				"moderated":          g.fake.Bool(),
				"category":           g.pick("Work", "Social", "Project", "Team", "General", "Support"),
				"archive_after_days": archive,
			},
		})
	}

	return channels
}

// Membership builds the custom data attached to a user joining a channel.
func (g *Generator) Membership(channel string) pubkit.Membership {
	return pubkit.Membership{
		Channel: channel,
		Custom: map[string]any{
			"joined_date":   g.dateSince(180 * day),
			"role":          g.pick("member", "member", "member", "moderator"),
			"notifications": g.fake.Bool(),
			"last_read":     g.isoSince(30 * day),
		},
	}
}

// Sample picks k distinct items from choices, fewer when there are not
// enough.
func (g *Generator) Sample(choices []string, k int) []string {
	shuffled := append([]string{}, choices...)
	g.fake.ShuffleStrings(shuffled)
	if k > len(shuffled) {
		k = len(shuffled)
	}
	return shuffled[:k]
}

var (
	adjectives = []string{"sunny", "quiet", "bright", "misty", "golden", "frosty", "vivid", "calm", "wild", "hazy"}
	nouns      = []string{"harbor", "meadow", "canyon", "forest", "skyline", "river", "summit", "garden", "desert", "island"}
)

// FileName returns a random upload name such as
// misty_harbor_20240512_1a2b3c4d.jpg, keeping ext.
func (g *Generator) FileName(ext string) string {
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return fmt.Sprintf("%s_%s_%s_%s%s",
		g.pick(adjectives...),
		g.pick(nouns...),
		g.now().Format("20060102"),
		uuid.NewString()[:8],
		ext,
	)
}

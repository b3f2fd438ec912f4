/*
 * Copyright (c) 2024, Dana Burkart <dana.burkart@gmail.com>
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package generator

import (
	"encoding/json"
	"regexp"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/andreyvit/diff"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEveryTypeBuilds(t *testing.T) {
	g := New(42)

	for _, kind := range Types {
		t.Run(kind, func(t *testing.T) {
			m, err := g.Message(kind, true, 0)
			require.NoError(t, err)
			assert.Equal(t, kind, m["type"])

			meta, ok := m["meta"].(map[string]any)
			require.True(t, ok, "meta should be attached")
			assert.Len(t, meta, 3)

			_, err = json.Marshal(m)
			assert.NoError(t, err)
		})
	}
}

func TestUnknownType(t *testing.T) {
	_, err := New(1).Message("fax", false, 0)
	assert.ErrorIs(t, err, ErrUnknownType)
	assert.False(t, ValidType("fax"))
	assert.True(t, ValidType("order"))
}

func TestRandomTypeWhenUnset(t *testing.T) {
	m, err := New(7).Message("", false, 0)
	require.NoError(t, err)
	assert.True(t, ValidType(m["type"].(string)))
	assert.NotContains(t, m, "meta")
}

func TestPaddingApproachesTarget(t *testing.T) {
	g := New(3)

	for _, target := range []int{2000, 10000, 25000} {
		m, err := g.Message("system_event", false, target)
		require.NoError(t, err)

		size := Size(m)
		assert.LessOrEqual(t, size, target)
		assert.Greater(t, size, target-2*paddingOverhead, "message of %d bytes is too far below %d", size, target)
	}
}

func TestTrimKeepsMinimumLength(t *testing.T) {
	g := New(5)
	m, err := g.Message("support_ticket", false, 0)
	require.NoError(t, err)

	m["description"] = string(make([]byte, 400))
	g.adjustSize(m, 10)

	assert.Len(t, m["description"], minTrimmedLength)
}

func TestTrimKeepsCharactersWhole(t *testing.T) {
	g := New(5)

	tt := []struct {
		test  string
		text  string
		over  int
		runes int
	}{
		{"two byte", strings.Repeat("é", 400), 51, 374},
		{"three byte", strings.Repeat("€", 400), 10, 396},
		{"down to the minimum", strings.Repeat("日本", 200), 100000, minTrimmedLength},
	}

	for _, tc := range tt {
		t.Run(tc.test, func(t *testing.T) {
			m, err := g.Message("support_ticket", false, 0)
			require.NoError(t, err)
			m["description"] = tc.text

			target := Size(m) - tc.over
			g.adjustSize(m, target)

			s := m["description"].(string)
			assert.True(t, utf8.ValidString(s), "trimmed text is not valid UTF-8")
			assert.Equal(t, tc.runes, utf8.RuneCountInString(s))
			if tc.runes > minTrimmedLength {
				assert.LessOrEqual(t, Size(m), target)
			}
		})
	}
}

func TestSeededGeneratorsAgree(t *testing.T) {
	a, b := New(99), New(99)
	frozen := func() time.Time { return time.Date(2024, 5, 12, 0, 0, 0, 0, time.UTC) }
	a.now, b.now = frozen, frozen

	ma, err := a.Message("order", true, 0)
	require.NoError(t, err)
	mb, err := b.Message("order", true, 0)
	require.NoError(t, err)

	ja, _ := json.MarshalIndent(ma, "", "  ")
	jb, _ := json.MarshalIndent(mb, "", "  ")
	if string(ja) != string(jb) {
		t.Errorf("seeded generators diverged:\n%v", diff.LineDiff(string(ja), string(jb)))
	}
}

func TestChannelsAreUnique(t *testing.T) {
	channels := New(11).Channels(60)
	require.Len(t, channels, 60)
	assert.Equal(t, GeneralChannel, channels[0].ID)

	seen := map[string]bool{}
	for _, c := range channels {
		assert.False(t, seen[c.ID], "duplicate channel id %s", c.ID)
		seen[c.ID] = true
		assert.NotEmpty(t, c.Description)
	}
}

func TestUsers(t *testing.T) {
	users := New(13).Users(3)
	require.Len(t, users, 3)

	id := regexp.MustCompile(`^user_0000[1-3]_[a-z]+_[a-z]+$`)
	for _, u := range users {
		assert.Regexp(t, id, u.ID)
		assert.Contains(t, u.Email, "@")
		assert.Contains(t, u.Custom, "employee_id")
	}
}

func TestSample(t *testing.T) {
	g := New(17)
	picked := g.Sample([]string{"a", "b", "c"}, 2)
	assert.Len(t, picked, 2)
	assert.NotEqual(t, picked[0], picked[1])
	assert.Len(t, g.Sample([]string{"a"}, 5), 1)
}

func TestFileName(t *testing.T) {
	g := New(19)
	g.now = func() time.Time { return time.Date(2024, 5, 12, 0, 0, 0, 0, time.UTC) }

	assert.Regexp(t, `^[a-z]+_[a-z]+_20240512_[0-9a-f]{8}\.png$`, g.FileName("png"))
	assert.Regexp(t, `\.jpg$`, g.FileName(".jpg"))
}

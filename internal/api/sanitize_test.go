package api

import (
	"encoding/json"
	"math"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeCircularMap(t *testing.T) {
	m := map[string]interface{}{"name": "root"}
	m["self"] = m

	out := SafeMarshal(m)
	require.True(t, json.Valid(out), "output must be parseable JSON")

	var parsed map[string]interface{}
	require.NoError(t, json.Unmarshal(out, &parsed))
	assert.Equal(t, "root", parsed["name"])
	assert.Equal(t, "[Circular]", parsed["self"])
}

func TestSanitizeCircularStruct(t *testing.T) {
	type node struct {
		Label string `json:"label"`
		Next  *node  `json:"next"`
	}
	a := &node{Label: "a"}
	b := &node{Label: "b", Next: a}
	a.Next = b

	out := SafeMarshal(a)
	require.True(t, json.Valid(out))
	assert.Contains(t, string(out), `"[Circular]"`)
	assert.Contains(t, string(out), `"a"`)
	assert.Contains(t, string(out), `"b"`)
}

func TestSanitizeSharedReferenceIsNotCircular(t *testing.T) {
	// The same pointer on two sibling branches is a diamond, not a cycle.
	shared := &struct {
		V string `json:"v"`
	}{V: "shared"}
	doc := map[string]interface{}{"left": shared, "right": shared}

	var parsed map[string]interface{}
	require.NoError(t, json.Unmarshal(SafeMarshal(doc), &parsed))
	assert.Equal(t, map[string]interface{}{"v": "shared"}, parsed["left"])
	assert.Equal(t, map[string]interface{}{"v": "shared"}, parsed["right"])
}

func TestSanitizeTruncatesLongStrings(t *testing.T) {
	long := strings.Repeat("x", 5000)

	got, ok := Sanitize(long).(string)
	require.True(t, ok)
	assert.Len(t, got, 1000+len("...[Truncated]"))
	assert.True(t, strings.HasSuffix(got, "...[Truncated]"))

	short := strings.Repeat("x", 1000)
	assert.Equal(t, short, Sanitize(short))
}

func TestSanitizePlaceholders(t *testing.T) {
	t.Run("byte slices", func(t *testing.T) {
		assert.Equal(t, "[Buffer 4 bytes]", Sanitize([]byte{1, 2, 3, 4}))
	})

	t.Run("functions and channels", func(t *testing.T) {
		doc := map[string]interface{}{
			"fn": func() {},
			"ch": make(chan int),
		}
		var parsed map[string]interface{}
		require.NoError(t, json.Unmarshal(SafeMarshal(doc), &parsed))
		assert.Equal(t, "[func]", parsed["fn"])
		assert.Equal(t, "[chan]", parsed["ch"])
	})

	t.Run("non-finite floats", func(t *testing.T) {
		doc := map[string]interface{}{
			"nan": math.NaN(),
			"inf": math.Inf(1),
			"ok":  1.5,
		}
		var parsed map[string]interface{}
		require.NoError(t, json.Unmarshal(SafeMarshal(doc), &parsed))
		assert.Nil(t, parsed["nan"])
		assert.Nil(t, parsed["inf"])
		assert.Equal(t, 1.5, parsed["ok"])
	})
}

func TestSanitizeHonorsTextMarshaler(t *testing.T) {
	token := uuid.New()
	doc := struct {
		Token uuid.UUID `json:"token"`
	}{Token: token}

	var parsed map[string]interface{}
	require.NoError(t, json.Unmarshal(SafeMarshal(doc), &parsed))
	assert.Equal(t, token.String(), parsed["token"])

	t.Run("plain byte slices still get the placeholder", func(t *testing.T) {
		assert.Equal(t, "[Buffer 4 bytes]", Sanitize([]byte{1, 2, 3, 4}))
	})
}

func TestSanitizeTruncatesOnRuneBoundary(t *testing.T) {
	// 400 three-byte runes; 1000 is not a multiple of 3, so a byte cut
	// would land mid-rune.
	long := strings.Repeat("€", 400)

	got, ok := Sanitize(long).(string)
	require.True(t, ok)
	assert.True(t, strings.HasSuffix(got, "...[Truncated]"))
	assert.True(t, utf8.ValidString(got))
	assert.Len(t, got, 999+len("...[Truncated]"))
}

func TestSanitizeTimeFormatting(t *testing.T) {
	ts := time.Date(2025, 3, 14, 9, 26, 53, 0, time.FixedZone("CET", 3600))
	assert.Equal(t, "2025-03-14T08:26:53Z", Sanitize(ts))
}

func TestSanitizeStructTags(t *testing.T) {
	type inner struct {
		City string `json:"city"`
	}
	type payload struct {
		ID       int64   `json:"id"`
		Secret   string  `json:"-"`
		Renamed  string  `json:"displayName"`
		Optional *string `json:"optional,omitempty"`
		inner    string
		Inner    inner `json:"inner"`
	}
	_ = payload{}.inner

	var parsed map[string]interface{}
	out := SafeMarshal(payload{ID: 7, Secret: "hide me", Renamed: "shown", Inner: inner{City: "Porto"}})
	require.NoError(t, json.Unmarshal(out, &parsed))

	assert.Equal(t, float64(7), parsed["id"])
	assert.Equal(t, "shown", parsed["displayName"])
	assert.NotContains(t, parsed, "Secret")
	assert.NotContains(t, parsed, "optional")
	assert.NotContains(t, string(out), "hide me")
	assert.Equal(t, map[string]interface{}{"city": "Porto"}, parsed["inner"])
}

func TestSanitizeDepthLimit(t *testing.T) {
	type link struct {
		Next *link `json:"next"`
	}
	head := &link{}
	cur := head
	for i := 0; i < 100; i++ {
		cur.Next = &link{}
		cur = cur.Next
	}

	out := SafeMarshal(head)
	require.True(t, json.Valid(out))
	assert.Contains(t, string(out), "[MaxDepth]")
}

func TestSafeMarshalNeverPanics(t *testing.T) {
	out := SafeMarshal(nil)
	require.True(t, json.Valid(out))
	assert.Equal(t, "null", string(out))
}

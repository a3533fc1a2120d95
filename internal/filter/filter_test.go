package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type entry struct {
	name, kind, setting string
}

func (e entry) SearchFields() []string { return []string{e.name, e.kind, e.setting} }

var gallery = []entry{
	{"Dragon", "antagonist", "mountain keep"},
	{"Aria", "protagonist", "cyberpunk city"},
	{"Old Wen", "mentor", "river town"},
}

func TestEntries_EmptyQueryReturnsAll(t *testing.T) {
	for _, q := range []string{"", "   "} {
		got := Entries(gallery, q)
		assert.Equal(t, gallery, got, "query %q", q)
	}
}

func TestEntries_CaseInsensitive(t *testing.T) {
	got := Entries(gallery, "dragon")
	assert.Equal(t, []entry{gallery[0]}, got)

	got = Entries(gallery, "CYBERPUNK")
	assert.Equal(t, []entry{gallery[1]}, got)
}

func TestEntries_AnyField(t *testing.T) {
	got := Entries(gallery, "tagonist")
	assert.Equal(t, []entry{gallery[0], gallery[1]}, got, "order must be preserved")
}

func TestEntries_NoMatch(t *testing.T) {
	got := Entries(gallery, "spaceship")
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestFilter_DoesNotMutateInput(t *testing.T) {
	items := append([]entry(nil), gallery...)
	got := Entries(items, "aria")
	got[0].name = "changed"
	assert.Equal(t, gallery, items)
}

func TestMatch(t *testing.T) {
	tests := []struct {
		query  string
		fields []string
		want   bool
	}{
		{"", nil, true},
		{"dragon", []string{"Dragon"}, true},
		{"龙", []string{"青龙传说"}, true},
		{"x", []string{"a", "b"}, false},
		{"x", nil, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Match(tt.query, tt.fields...), "Match(%q, %v)", tt.query, tt.fields)
	}
}

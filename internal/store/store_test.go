package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/yangwenmai/storyverse/internal/kv"
	"github.com/yangwenmai/storyverse/internal/model"
	"github.com/yangwenmai/storyverse/internal/notify"
)

type fixture struct {
	storage     *kv.Memory
	notifier    *notify.Notifier
	characters  *Characters
	storyboards *Storyboards
	history     *SearchHistory
	recent      *RecentSearches
}

func newFixture(t *testing.T, confirm Confirmer, opts ...kv.Option) *fixture {
	t.Helper()
	logger := zaptest.NewLogger(t)
	s := kv.NewMemory(opts...)
	n := notify.New()
	return &fixture{
		storage:     s,
		notifier:    n,
		characters:  NewCharacters(s, n, confirm, logger),
		storyboards: NewStoryboards(s, n, confirm, logger),
		history:     NewSearchHistory(s, n, confirm, 0, logger),
		recent:      NewRecentSearches(s, n, 0, logger),
	}
}

func character(id, name, typ, setting string) model.SavedCharacter {
	payload, _ := json.Marshal(map[string]any{
		"basic_info": map[string]any{"name": name},
		"type":       typ,
		"setting":    setting,
	})
	return model.NewSavedCharacter(id, payload, "")
}

func ids[T model.Entry](items []T) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, it.EntryID())
	}
	return out
}

// ---------------------------------------------------------------------------
// Save / Load
// ---------------------------------------------------------------------------

func TestLoad_EmptyWhenNeverSaved(t *testing.T) {
	f := newFixture(t, AlwaysConfirm)
	ctx := context.Background()

	got := f.characters.Load(ctx)
	assert.NotNil(t, got)
	assert.Empty(t, got)
	assert.NoError(t, f.characters.LastLoadError())
}

func TestSave_AppendsInOrder(t *testing.T) {
	f := newFixture(t, AlwaysConfirm)
	ctx := context.Background()

	want := make([]string, 0, 5)
	for i := range 5 {
		id := fmt.Sprintf("c%d", i)
		require.NoError(t, f.characters.Save(ctx, character(id, "n", "t", "s")))
		want = append(want, id)
	}
	assert.Equal(t, want, ids(f.characters.Load(ctx)))
}

func TestSave_RejectsEmptyAndDuplicateID(t *testing.T) {
	f := newFixture(t, AlwaysConfirm)
	ctx := context.Background()

	err := f.characters.Save(ctx, character("", "n", "t", "s"))
	assert.ErrorIs(t, err, model.ErrInvalidInput)

	require.NoError(t, f.characters.Save(ctx, character("a", "n", "t", "s")))
	err = f.characters.Save(ctx, character("a", "other", "t", "s"))
	assert.ErrorIs(t, err, model.ErrInvalidInput)
	assert.Len(t, f.characters.Load(ctx), 1)
}

func TestSave_QuotaExceededLeavesCollection(t *testing.T) {
	f := newFixture(t, AlwaysConfirm, kv.WithMaxValueBytes(600))
	ctx := context.Background()

	require.NoError(t, f.characters.Save(ctx, character("a", "n", "t", "s")))
	big := character("b", strings.Repeat("x", 1000), "t", "s")
	err := f.characters.Save(ctx, big)
	require.ErrorIs(t, err, model.ErrQuotaExceeded)

	assert.Equal(t, []string{"a"}, ids(f.characters.Load(ctx)))
}

func TestSave_CollectionsAreIndependent(t *testing.T) {
	f := newFixture(t, AlwaysConfirm)
	ctx := context.Background()

	require.NoError(t, f.characters.Save(ctx, character("a", "n", "t", "s")))
	require.NoError(t, f.storyboards.Save(ctx, model.NewSavedStoryboard("b", "", "script", "film", 1, nil)))

	assert.Equal(t, []string{"a"}, ids(f.characters.Load(ctx)))
	assert.Equal(t, []string{"b"}, ids(f.storyboards.Load(ctx)))
	assert.Empty(t, f.history.Load(ctx))
}

func TestLoad_CorruptDataReadsAsEmpty(t *testing.T) {
	f := newFixture(t, AlwaysConfirm)
	ctx := context.Background()

	require.NoError(t, f.storage.Set(ctx, KeyStoryboards, []byte("{not json")))

	got := f.storyboards.Load(ctx)
	assert.Empty(t, got)
	assert.Error(t, f.storyboards.LastLoadError())

	// Writes refuse to replace a value they cannot parse.
	err := f.storyboards.Save(ctx, model.NewSavedStoryboard("s1", "t", "", "", 0, nil))
	require.ErrorIs(t, err, model.ErrUnreadable)
	raw, _, _ := f.storage.Get(ctx, KeyStoryboards)
	assert.Equal(t, "{not json", string(raw))

	// ClearAll resets it.
	require.NoError(t, f.storyboards.ClearAll(ctx))
	require.NoError(t, f.storyboards.Save(ctx, model.NewSavedStoryboard("s1", "t", "", "", 0, nil)))
	assert.NoError(t, f.storyboards.LastLoadError())
	assert.Equal(t, []string{"s1"}, ids(f.storyboards.Load(ctx)))
}

// flakyStorage fails the next failGets reads.
type flakyStorage struct {
	*kv.Memory
	failGets int
}

func (s *flakyStorage) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if s.failGets > 0 {
		s.failGets--
		return nil, false, errors.New("connection reset")
	}
	return s.Memory.Get(ctx, key)
}

func TestWrites_AbortOnReadFailure(t *testing.T) {
	ctx := context.Background()
	s := &flakyStorage{Memory: kv.NewMemory()}
	n := notify.New()
	chars := NewCharacters(s, n, AlwaysConfirm, zaptest.NewLogger(t))
	var notified int
	n.Subscribe(notify.TopicCharacters, func(notify.Event) { notified++ })

	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, chars.Save(ctx, character(id, id, "", "")))
	}
	notified = 0

	s.failGets = 1
	err := chars.Save(ctx, character("d", "d", "", ""))
	require.ErrorIs(t, err, model.ErrUnreadable)
	assert.Contains(t, err.Error(), "connection reset")
	assert.Equal(t, []string{"a", "b", "c"}, ids(chars.Load(ctx)))

	s.failGets = 1
	_, err = chars.Delete(ctx, "a")
	require.ErrorIs(t, err, model.ErrUnreadable)

	s.failGets = 1
	_, _, err = chars.ToggleFavorite(ctx, "a")
	require.ErrorIs(t, err, model.ErrUnreadable)

	got := chars.Load(ctx)
	assert.Equal(t, []string{"a", "b", "c"}, ids(got))
	assert.False(t, got[0].IsFavorite)
	assert.Zero(t, notified)

	// The failure was transient.
	require.NoError(t, chars.Save(ctx, character("d", "d", "", "")))
	assert.Equal(t, []string{"a", "b", "c", "d"}, ids(chars.Load(ctx)))
}

func TestGet(t *testing.T) {
	f := newFixture(t, AlwaysConfirm)
	ctx := context.Background()
	require.NoError(t, f.characters.Save(ctx, character("a", "Aria", "Mage", "Fantasy")))

	got, err := f.characters.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "Aria", got.Name)

	_, err = f.characters.Get(ctx, "missing")
	assert.ErrorIs(t, err, model.ErrNotFound)
}

// ---------------------------------------------------------------------------
// Delete / ClearAll
// ---------------------------------------------------------------------------

func TestDelete_FirstStoryboard(t *testing.T) {
	f := newFixture(t, AlwaysConfirm)
	ctx := context.Background()
	for _, id := range []string{"s1", "s2", "s3"} {
		require.NoError(t, f.storyboards.Save(ctx, model.NewSavedStoryboard(id, "", "", "", 0, nil)))
	}

	deleted, err := f.storyboards.Delete(ctx, "s1")
	require.NoError(t, err)
	assert.True(t, deleted)
	assert.Equal(t, []string{"s2", "s3"}, ids(f.storyboards.Load(ctx)))
}

func TestDelete_MissingIDLeavesCollectionUnchanged(t *testing.T) {
	f := newFixture(t, AlwaysConfirm)
	ctx := context.Background()
	require.NoError(t, f.characters.Save(ctx, character("a", "n", "t", "s")))

	var notified int
	f.notifier.Subscribe(notify.TopicCharacters, func(notify.Event) { notified++ })

	deleted, err := f.characters.Delete(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, deleted)
	assert.Equal(t, []string{"a"}, ids(f.characters.Load(ctx)))
	assert.Zero(t, notified)
}

func TestDelete_Declined(t *testing.T) {
	f := newFixture(t, NeverConfirm)
	ctx := context.Background()
	require.NoError(t, f.characters.Save(ctx, character("a", "n", "t", "s")))

	deleted, err := f.characters.Delete(ctx, "a")
	assert.ErrorIs(t, err, model.ErrConfirmationDeclined)
	assert.False(t, deleted)
	assert.Len(t, f.characters.Load(ctx), 1)

	assert.ErrorIs(t, f.characters.ClearAll(ctx), model.ErrConfirmationDeclined)
	assert.Len(t, f.characters.Load(ctx), 1)
}

func TestDelete_ContextConfirmer(t *testing.T) {
	f := newFixture(t, ContextConfirmer)
	ctx := context.Background()
	require.NoError(t, f.characters.Save(ctx, character("a", "n", "t", "s")))

	_, err := f.characters.Delete(ctx, "a")
	require.ErrorIs(t, err, model.ErrConfirmationDeclined)

	deleted, err := f.characters.Delete(WithConfirmed(ctx, true), "a")
	require.NoError(t, err)
	assert.True(t, deleted)
}

func TestDelete_PromptsEvenForMissingID(t *testing.T) {
	var prompts []string
	confirm := ConfirmFunc(func(_ context.Context, prompt string) bool {
		prompts = append(prompts, prompt)
		return true
	})
	f := newFixture(t, confirm)

	_, err := f.storyboards.Delete(context.Background(), "missing")
	require.NoError(t, err)
	assert.Equal(t, []string{"Delete this storyboard?"}, prompts)
}

func TestClearAll(t *testing.T) {
	f := newFixture(t, AlwaysConfirm)
	ctx := context.Background()
	require.NoError(t, f.history.Save(ctx, model.NewSearchHistoryEntry("h1", "q", "general", nil)))
	require.NoError(t, f.characters.Save(ctx, character("a", "n", "t", "s")))

	require.NoError(t, f.history.ClearAll(ctx))
	assert.Empty(t, f.history.Load(ctx))
	assert.Len(t, f.characters.Load(ctx), 1)

	_, found, err := f.storage.Get(ctx, KeySearchHistory)
	require.NoError(t, err)
	assert.False(t, found)
}

// ---------------------------------------------------------------------------
// Favorites
// ---------------------------------------------------------------------------

func TestToggleFavorite_TwiceRestores(t *testing.T) {
	f := newFixture(t, AlwaysConfirm)
	ctx := context.Background()
	require.NoError(t, f.characters.Save(ctx, character("a", "n", "t", "s")))
	require.NoError(t, f.characters.Save(ctx, character("b", "n", "t", "s")))

	got, found, err := f.characters.ToggleFavorite(ctx, "b")
	require.NoError(t, err)
	require.True(t, found)
	assert.True(t, got.IsFavorite)

	loaded := f.characters.Load(ctx)
	assert.False(t, loaded[0].IsFavorite)
	assert.True(t, loaded[1].IsFavorite)

	_, _, err = f.characters.ToggleFavorite(ctx, "b")
	require.NoError(t, err)
	assert.False(t, f.characters.Load(ctx)[1].IsFavorite)
	assert.Equal(t, []string{"a", "b"}, ids(f.characters.Load(ctx)))
}

func TestToggleFavorite_Missing(t *testing.T) {
	f := newFixture(t, AlwaysConfirm)
	_, found, err := f.storyboards.ToggleFavorite(context.Background(), "missing")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestToggleFavorite_UnsupportedForHistory(t *testing.T) {
	f := newFixture(t, AlwaysConfirm)
	assert.False(t, f.history.SupportsFavorites())
	_, _, err := f.history.ToggleFavorite(context.Background(), "h1")
	assert.ErrorIs(t, err, model.ErrFavoritesUnsupported)
}

// ---------------------------------------------------------------------------
// Search history and recent searches
// ---------------------------------------------------------------------------

func TestSearchHistory_NewestFirstAndCapped(t *testing.T) {
	f := newFixture(t, AlwaysConfirm)
	ctx := context.Background()

	for i := range DefaultHistoryLimit + 1 {
		id := fmt.Sprintf("h%d", i)
		require.NoError(t, f.history.Save(ctx, model.NewSearchHistoryEntry(id, "q", "general", nil)))
	}

	got := f.history.Load(ctx)
	require.Len(t, got, DefaultHistoryLimit)
	assert.Equal(t, fmt.Sprintf("h%d", DefaultHistoryLimit), got[0].ID)
	assert.Equal(t, "h1", got[len(got)-1].ID, "oldest entry h0 is dropped")
}

func TestRecentSearches_DedupeAndCap(t *testing.T) {
	f := newFixture(t, AlwaysConfirm)
	ctx := context.Background()

	for i := range 12 {
		_, err := f.recent.Add(ctx, fmt.Sprintf("q%d", i))
		require.NoError(t, err)
	}
	got := f.recent.List(ctx)
	require.Len(t, got, DefaultRecentLimit)
	assert.Equal(t, "q11", got[0])
	assert.Equal(t, "q2", got[len(got)-1])

	got, err := f.recent.Add(ctx, "q5")
	require.NoError(t, err)
	assert.Equal(t, "q5", got[0])
	assert.Len(t, got, DefaultRecentLimit)
	var count int
	for _, q := range got {
		if q == "q5" {
			count++
		}
	}
	assert.Equal(t, 1, count)
}

func TestRecentSearches_IgnoresBlank(t *testing.T) {
	f := newFixture(t, AlwaysConfirm)
	ctx := context.Background()

	var notified int
	f.notifier.Subscribe(notify.TopicRecentSearches, func(notify.Event) { notified++ })

	got, err := f.recent.Add(ctx, "   ")
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Zero(t, notified)
}

func TestRecentSearches_CorruptReadsAsEmpty(t *testing.T) {
	f := newFixture(t, AlwaysConfirm)
	ctx := context.Background()
	require.NoError(t, f.storage.Set(ctx, KeyRecentSearches, []byte(`"nope"`)))

	assert.Empty(t, f.recent.List(ctx))
	_, err := f.recent.Add(ctx, "dragons")
	require.ErrorIs(t, err, model.ErrUnreadable)
	raw, _, _ := f.storage.Get(ctx, KeyRecentSearches)
	assert.Equal(t, `"nope"`, string(raw))
}

func TestRecentSearches_AddAbortsOnReadFailure(t *testing.T) {
	ctx := context.Background()
	s := &flakyStorage{Memory: kv.NewMemory()}
	recent := NewRecentSearches(s, nil, 0, zaptest.NewLogger(t))

	for _, q := range []string{"elves", "dwarves"} {
		_, err := recent.Add(ctx, q)
		require.NoError(t, err)
	}

	s.failGets = 1
	got, err := recent.Add(ctx, "dragons")
	require.ErrorIs(t, err, model.ErrUnreadable)
	assert.Nil(t, got)
	assert.Equal(t, []string{"dwarves", "elves"}, recent.List(ctx))
}

// ---------------------------------------------------------------------------
// Filter and notifications
// ---------------------------------------------------------------------------

func TestFilter_FindsCharacterByName(t *testing.T) {
	f := newFixture(t, AlwaysConfirm)
	ctx := context.Background()
	require.NoError(t, f.characters.Save(ctx, character("a", "Aria", "Mage", "Fantasy")))
	require.NoError(t, f.characters.Save(ctx, character("b", "Borin", "Warrior", "Mountains")))

	got := f.characters.Filter(ctx, "aria")
	require.Len(t, got, 1)
	assert.Equal(t, "a", got[0].ID)

	assert.Len(t, f.characters.Filter(ctx, ""), 2)
	assert.Empty(t, f.characters.Filter(ctx, "dragon"))
}

func TestNotify_HandlerCanLoad(t *testing.T) {
	f := newFixture(t, AlwaysConfirm)
	ctx := context.Background()

	var seen [][]string
	f.notifier.Subscribe(notify.TopicStoryboards, func(notify.Event) {
		seen = append(seen, ids(f.storyboards.Load(ctx)))
	})

	require.NoError(t, f.storyboards.Save(ctx, model.NewSavedStoryboard("s1", "", "", "", 0, nil)))
	_, _, err := f.storyboards.ToggleFavorite(ctx, "s1")
	require.NoError(t, err)
	_, err = f.storyboards.Delete(ctx, "s1")
	require.NoError(t, err)

	assert.Equal(t, [][]string{{"s1"}, {"s1"}, {}}, seen)
}

func TestNotify_NoEventOnFailedWrite(t *testing.T) {
	f := newFixture(t, AlwaysConfirm, kv.WithMaxValueBytes(10))
	var notified int
	f.notifier.Subscribe(notify.TopicCharacters, func(notify.Event) { notified++ })

	err := f.characters.Save(context.Background(), character("a", "n", "t", "s"))
	require.True(t, errors.Is(err, model.ErrQuotaExceeded))
	assert.Zero(t, notified)
}

func TestPromptConfirmer(t *testing.T) {
	cases := []struct {
		input string
		want  bool
	}{
		{"y\n", true},
		{"YES\n", true},
		{"n\n", false},
		{"\n", false},
		{"", false},
	}
	for _, tc := range cases {
		var out strings.Builder
		p := NewPromptConfirmer(strings.NewReader(tc.input), &out)
		got := p.Confirm(context.Background(), "Delete?")
		if got != tc.want {
			t.Errorf("Confirm(%q) = %v, want %v", tc.input, got, tc.want)
		}
		if !strings.Contains(out.String(), "Delete? [y/N]") {
			t.Errorf("prompt = %q, want it to contain the question", out.String())
		}
	}
}

package store

import (
	"go.uber.org/zap"

	"github.com/yangwenmai/storyverse/internal/kv"
	"github.com/yangwenmai/storyverse/internal/model"
	"github.com/yangwenmai/storyverse/internal/notify"
)

// Storage keys, shared with the web client's local storage layout.
const (
	KeyCharacters     = "savedCharacters"
	KeyStoryboards    = "savedStoryboards"
	KeySearchHistory  = "searchHistory"
	KeyRecentSearches = "recentSearches"
)

// Default size caps.
const (
	DefaultHistoryLimit = 50
	DefaultRecentLimit  = 10
)

// Characters is the character gallery.
type Characters = Collection[model.SavedCharacter]

// Storyboards is the storyboard gallery.
type Storyboards = Collection[model.SavedStoryboard]

// SearchHistory is the background search history.
type SearchHistory = Collection[model.SearchHistoryEntry]

// NewCharacters creates the character gallery: oldest first, unbounded, favorites enabled.
func NewCharacters(s kv.Storage, n *notify.Notifier, confirm Confirmer, logger *zap.Logger) *Characters {
	return NewCollection(s, n, Config[model.SavedCharacter]{
		Key:     KeyCharacters,
		Topic:   notify.TopicCharacters,
		Order:   Append,
		Confirm: confirm,
		Toggle:  toggleFavorite[model.SavedCharacter],
		Noun:    "character",
	}, logger)
}

// NewStoryboards creates the storyboard gallery: oldest first, unbounded, favorites enabled.
func NewStoryboards(s kv.Storage, n *notify.Notifier, confirm Confirmer, logger *zap.Logger) *Storyboards {
	return NewCollection(s, n, Config[model.SavedStoryboard]{
		Key:     KeyStoryboards,
		Topic:   notify.TopicStoryboards,
		Order:   Append,
		Confirm: confirm,
		Toggle:  toggleFavorite[model.SavedStoryboard],
		Noun:    "storyboard",
	}, logger)
}

// NewSearchHistory creates the search history: newest first, capped at limit
// (DefaultHistoryLimit when limit <= 0), no favorites.
func NewSearchHistory(s kv.Storage, n *notify.Notifier, confirm Confirmer, limit int, logger *zap.Logger) *SearchHistory {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	return NewCollection(s, n, Config[model.SearchHistoryEntry]{
		Key:     KeySearchHistory,
		Topic:   notify.TopicSearchHistory,
		Order:   Prepend,
		Limit:   limit,
		Confirm: confirm,
		Noun:    "search history entry",
	}, logger)
}

func toggleFavorite[T model.Favorable[T]](it T) T {
	return it.WithFavorite(!it.Favorite())
}

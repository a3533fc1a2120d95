package model

import (
	"time"

	"github.com/google/uuid"
)

// Kind identifies which collection an artifact belongs to.
type Kind string

// Artifact kinds
const (
	KindCharacter     Kind = "character"
	KindStoryboard    Kind = "storyboard"
	KindSearchHistory Kind = "search_history"
)

// Entry is implemented by every persisted artifact.
type Entry interface {
	EntryID() string
	// SearchFields returns the text fields matched by gallery search.
	SearchFields() []string
}

// Favorable is implemented by artifacts that can be starred in a gallery.
// WithFavorite returns a copy; entries are values and never mutated in place.
type Favorable[T any] interface {
	Entry
	Favorite() bool
	WithFavorite(fav bool) T
}

// NewID returns a random identifier for a new artifact.
func NewID() string {
	return uuid.NewString()
}

func timestamp() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}

package model

import (
	"encoding/json"
	"strings"
)

// Display fallbacks used when a generated character sheet omits a field.
const (
	DefaultCharacterName    = "Unnamed character"
	DefaultCharacterType    = "Unknown type"
	DefaultCharacterSetting = "Unknown setting"
)

// SavedCharacter is a generated character sheet kept in the character gallery.
type SavedCharacter struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Type       string          `json:"type"`
	Setting    string          `json:"setting"`
	Data       json.RawMessage `json:"data"`
	ImageURL   string          `json:"imageUrl,omitempty"`
	CreatedAt  string          `json:"createdAt"`
	IsFavorite bool            `json:"isFavorite"`
}

// NewSavedCharacter wraps a character payload returned by the backend.
// Name, type and setting are extracted from the payload once, at save time.
func NewSavedCharacter(id string, payload json.RawMessage, imageURL string) SavedCharacter {
	var sheet struct {
		BasicInfo struct {
			Name any `json:"name"`
		} `json:"basic_info"`
		Type    any `json:"type"`
		Setting any `json:"setting"`
	}
	// A payload that is not an object still gets saved, with every display field defaulted.
	_ = json.Unmarshal(payload, &sheet)

	return SavedCharacter{
		ID:        id,
		Name:      stringOr(sheet.BasicInfo.Name, DefaultCharacterName),
		Type:      stringOr(sheet.Type, DefaultCharacterType),
		Setting:   stringOr(sheet.Setting, DefaultCharacterSetting),
		Data:      payload,
		ImageURL:  imageURL,
		CreatedAt: timestamp(),
	}
}

func (c SavedCharacter) EntryID() string { return c.ID }

func (c SavedCharacter) SearchFields() []string {
	return []string{c.Name, c.Type, c.Setting}
}

func (c SavedCharacter) Favorite() bool { return c.IsFavorite }

func (c SavedCharacter) WithFavorite(fav bool) SavedCharacter {
	c.IsFavorite = fav
	return c
}

func stringOr(v any, fallback string) string {
	s, ok := v.(string)
	if !ok || strings.TrimSpace(s) == "" {
		return fallback
	}
	return s
}

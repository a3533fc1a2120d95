package model

import (
	"bytes"
	"encoding/json"
	"maps"
	"slices"
	"strconv"
	"strings"
	"time"
)

// Shot is a single camera shot of a generated storyboard. Shots come from
// model output, so every field decodes leniently: numbers and booleans are
// accepted where text is expected, and keys Shot does not know are kept in
// Extra and written back out.
type Shot struct {
	ShotNumber  Number `json:"shot_number"`
	ShotType    Text   `json:"shot_type"`
	Angle       Text   `json:"angle"`
	Movement    Text   `json:"movement"`
	Description Text   `json:"description"`
	Action      Text   `json:"action"`
	Dialogue    Text   `json:"dialogue"`
	Duration    Text   `json:"duration"`
	Transition  Text   `json:"transition"`
	Lighting    Text   `json:"lighting"`
	ColorTone   Text   `json:"color_tone"`
	Composition Text   `json:"composition"`
	Mood        Text   `json:"mood"`
	Note        Text   `json:"note,omitempty"`
	// RawContent carries the unparsed model reply when the backend could not
	// split it into shots.
	RawContent Text `json:"raw_content,omitempty"`

	Extra map[string]json.RawMessage `json:"-"`
}

type plainShot Shot

var shotKeys = []string{
	"shot_number", "shot_type", "angle", "movement", "description", "action", "dialogue",
	"duration", "transition", "lighting", "color_tone", "composition", "mood", "note", "raw_content",
}

func (s *Shot) UnmarshalJSON(b []byte) error {
	var p plainShot
	if err := json.Unmarshal(b, &p); err != nil {
		return err
	}
	var all map[string]json.RawMessage
	if err := json.Unmarshal(b, &all); err != nil {
		return err
	}
	for _, k := range shotKeys {
		delete(all, k)
	}
	p.Extra = nil
	if len(all) > 0 {
		p.Extra = all
	}
	*s = Shot(p)
	return nil
}

func (s Shot) MarshalJSON() ([]byte, error) {
	b, err := json.Marshal(plainShot(s))
	if err != nil || len(s.Extra) == 0 {
		return b, err
	}
	var buf bytes.Buffer
	buf.Write(b[:len(b)-1])
	for _, k := range slices.Sorted(maps.Keys(s.Extra)) {
		if slices.Contains(shotKeys, k) {
			continue
		}
		key, _ := json.Marshal(k)
		v := s.Extra[k]
		if !json.Valid(v) {
			v = json.RawMessage("null")
		}
		buf.WriteByte(',')
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Text is a string that also decodes from any other JSON value, keeping its
// literal text. null decodes as "".
type Text string

func (t *Text) UnmarshalJSON(b []byte) error {
	switch {
	case bytes.Equal(b, []byte("null")):
		*t = ""
	case len(b) > 0 && b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*t = Text(s)
	default:
		*t = Text(b)
	}
	return nil
}

// Number is an integer that also decodes from a numeric string. Values that
// are not numbers decode as 0.
type Number int

func (n *Number) UnmarshalJSON(b []byte) error {
	s := string(b)
	if len(b) > 0 && b[0] == '"' {
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
	}
	s = strings.TrimSpace(s)
	if i, err := strconv.Atoi(s); err == nil {
		*n = Number(i)
		return nil
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		*n = Number(int(f))
		return nil
	}
	*n = 0
	return nil
}

// SavedStoryboard is a generated shot list kept in the storyboard gallery.
type SavedStoryboard struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	Script     string `json:"script"`
	Style      string `json:"style"`
	Shots      int    `json:"shots"`
	Storyboard []Shot `json:"storyboard"`
	CreatedAt  string `json:"createdAt"`
	IsFavorite bool   `json:"isFavorite"`
}

// NewSavedStoryboard builds a gallery entry. A blank title becomes "Storyboard <time>".
func NewSavedStoryboard(id, title, script, style string, shots int, storyboard []Shot) SavedStoryboard {
	now := time.Now()
	if title == "" {
		title = "Storyboard " + now.Format("2006-01-02 15:04:05")
	}
	if storyboard == nil {
		storyboard = []Shot{}
	}
	return SavedStoryboard{
		ID:         id,
		Title:      title,
		Script:     script,
		Style:      style,
		Shots:      shots,
		Storyboard: storyboard,
		CreatedAt:  now.UTC().Format(time.RFC3339Nano),
	}
}

func (s SavedStoryboard) EntryID() string { return s.ID }

func (s SavedStoryboard) SearchFields() []string {
	return []string{s.Title, s.Script, s.Style}
}

func (s SavedStoryboard) Favorite() bool { return s.IsFavorite }

func (s SavedStoryboard) WithFavorite(fav bool) SavedStoryboard {
	s.IsFavorite = fav
	return s
}

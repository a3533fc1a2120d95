package model

import (
	"encoding/json"
	"testing"
)

func TestNewSavedCharacter(t *testing.T) {
	payload := json.RawMessage(`{"basic_info":{"name":"Aria"},"type":"protagonist","setting":"cyberpunk city"}`)
	c := NewSavedCharacter("c-1", payload, "https://img.example/aria.png")

	if c.Name != "Aria" {
		t.Errorf("Name = %q, want %q", c.Name, "Aria")
	}
	if c.Type != "protagonist" {
		t.Errorf("Type = %q, want %q", c.Type, "protagonist")
	}
	if c.Setting != "cyberpunk city" {
		t.Errorf("Setting = %q, want %q", c.Setting, "cyberpunk city")
	}
	if c.IsFavorite {
		t.Error("IsFavorite should default to false")
	}
	if c.CreatedAt == "" {
		t.Error("CreatedAt should not be empty")
	}
	if string(c.Data) != string(payload) {
		t.Errorf("Data = %s, want payload unchanged", c.Data)
	}
}

func TestNewSavedCharacter_Fallbacks(t *testing.T) {
	tests := []struct {
		name    string
		payload string
	}{
		{"empty object", `{}`},
		{"blank values", `{"basic_info":{"name":"  "},"type":"","setting":""}`},
		{"wrong types", `{"basic_info":{"name":42},"type":["x"],"setting":null}`},
		{"not an object", `"just text"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewSavedCharacter("c-1", json.RawMessage(tt.payload), "")
			if c.Name != DefaultCharacterName {
				t.Errorf("Name = %q, want %q", c.Name, DefaultCharacterName)
			}
			if c.Type != DefaultCharacterType {
				t.Errorf("Type = %q, want %q", c.Type, DefaultCharacterType)
			}
			if c.Setting != DefaultCharacterSetting {
				t.Errorf("Setting = %q, want %q", c.Setting, DefaultCharacterSetting)
			}
		})
	}
}

func TestWithFavorite_ReturnsCopy(t *testing.T) {
	c := NewSavedCharacter("c-1", json.RawMessage(`{}`), "")
	starred := c.WithFavorite(true)
	if !starred.Favorite() {
		t.Error("WithFavorite(true) should set favorite")
	}
	if c.Favorite() {
		t.Error("original value should be unchanged")
	}
}

func TestNewSavedStoryboard(t *testing.T) {
	sb := NewSavedStoryboard("s-1", "", "INT. LAB - NIGHT", "noir", 4, nil)
	if sb.Title == "" {
		t.Error("blank title should get a default")
	}
	if sb.Storyboard == nil {
		t.Error("Storyboard should be an empty slice, not nil")
	}
	fields := sb.SearchFields()
	if len(fields) != 3 || fields[1] != "INT. LAB - NIGHT" || fields[2] != "noir" {
		t.Errorf("SearchFields = %v", fields)
	}
}

func TestNewSearchHistoryEntry(t *testing.T) {
	e := NewSearchHistoryEntry("h-1", "dragons", "background", nil)
	if e.Results == nil {
		t.Error("Results should be an empty slice, not nil")
	}
	b, err := json.Marshal(e)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var raw map[string]any
	if err := json.Unmarshal(b, &raw); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if _, ok := raw["isFavorite"]; ok {
		t.Error("search history entries have no favorite flag")
	}
}

func TestNewID_Unique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id := NewID()
		if seen[id] {
			t.Fatalf("duplicate id %q after %d calls", id, i)
		}
		seen[id] = true
	}
}

func TestShot_LenientDecode(t *testing.T) {
	tests := []struct {
		name       string
		in         string
		wantNumber Number
		wantDur    Text
	}{
		{"typed", `{"shot_number":1,"duration":"3s"}`, 1, "3s"},
		{"numeric duration", `{"shot_number":2,"duration":3}`, 2, "3"},
		{"string shot number", `{"shot_number":"3","duration":2.5}`, 3, "2.5"},
		{"float shot number", `{"shot_number":4.0,"duration":null}`, 4, ""},
		{"garbage shot number", `{"shot_number":"first","duration":true}`, 0, "true"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var s Shot
			if err := json.Unmarshal([]byte(tt.in), &s); err != nil {
				t.Fatalf("Unmarshal: %v", err)
			}
			if s.ShotNumber != tt.wantNumber {
				t.Errorf("ShotNumber = %d, want %d", s.ShotNumber, tt.wantNumber)
			}
			if s.Duration != tt.wantDur {
				t.Errorf("Duration = %q, want %q", s.Duration, tt.wantDur)
			}
		})
	}
}

func TestShot_KeepsRawContentAndUnknownKeys(t *testing.T) {
	in := `{"shot_number":1,"description":"parse failed","raw_content":"RAW LLM TEXT","camera":{"lens":"35mm"}}`

	var s Shot
	if err := json.Unmarshal([]byte(in), &s); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if s.RawContent != "RAW LLM TEXT" {
		t.Errorf("RawContent = %q, want %q", s.RawContent, "RAW LLM TEXT")
	}
	if got := string(s.Extra["camera"]); got != `{"lens":"35mm"}` {
		t.Errorf("Extra[camera] = %s, want the original object", got)
	}

	out, err := json.Marshal(s)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var back map[string]any
	if err := json.Unmarshal(out, &back); err != nil {
		t.Fatalf("re-decode %s: %v", out, err)
	}
	if back["raw_content"] != "RAW LLM TEXT" {
		t.Errorf("raw_content = %v after a round trip", back["raw_content"])
	}
	if cam, ok := back["camera"].(map[string]any); !ok || cam["lens"] != "35mm" {
		t.Errorf("camera = %v after a round trip", back["camera"])
	}
}

package backend

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/yangwenmai/storyverse/internal/model"
)

// Heat levels, hottest first. Any other heat sorts last.
var heatRanks = map[string]int{
	"高": 0, "high": 0,
	"中": 1, "medium": 1,
	"低": 2, "low": 2,
}

func heatRank(heat string) int {
	if r, ok := heatRanks[strings.ToLower(strings.TrimSpace(heat))]; ok {
		return r
	}
	return len(heatRanks)
}

// SortTopicsByHeat returns a copy of topics ordered hottest first. Ties keep
// their original order. A heat outside 高/中/低 (or high/medium/low) sorts
// after low; the web client put such topics first instead.
func SortTopicsByHeat(topics []Topic) []Topic {
	sorted := slices.Clone(topics)
	slices.SortStableFunc(sorted, func(a, b Topic) int {
		return heatRank(a.Heat) - heatRank(b.Heat)
	})
	return sorted
}

// Outline sections and the key variants the backend uses for them.
var (
	OutlineSummary    = []string{"story_summary", "故事梗概"}
	OutlineCharacters = []string{"characters", "主要人物设定"}
	OutlineWorld      = []string{"world_setting", "世界观设定"}
	OutlineStructure  = []string{"story_structure", "故事结构"}
	OutlineChapters   = []string{"chapter_outline", "章节大纲"}
	OutlineConflicts  = []string{"main_conflicts", "主要冲突和转折点"}
	OutlineThemes     = []string{"theme_and_symbols", "主题思想和象征元素"}
)

// OutlineField returns the first of keys present with a non-empty value in
// outline.
func OutlineField(outline map[string]any, keys ...string) (any, bool) {
	for _, k := range keys {
		v, ok := outline[k]
		if !ok || v == nil {
			continue
		}
		if s, isString := v.(string); isString && strings.TrimSpace(s) == "" {
			continue
		}
		return v, true
	}
	return nil, false
}

// Fields decodes the outline object. A non-object outline yields an empty map.
func (r *OutlineResponse) Fields() map[string]any {
	fields := map[string]any{}
	_ = json.Unmarshal(r.Outline, &fields)
	return fields
}

const unsetAppearance = "未设置"

// MinAppearanceParts is the fewest descriptors an image request accepts.
const MinAppearanceParts = 3

// CharacterAppearance joins the appearance descriptors of a generated
// character sheet, skipping blank and unset values. It also returns how many
// descriptors were used.
func CharacterAppearance(character json.RawMessage) (string, int) {
	var sheet struct {
		Appearance map[string]any `json:"appearance"`
	}
	if err := json.Unmarshal(character, &sheet); err != nil || sheet.Appearance == nil {
		return "", 0
	}
	var parts []string
	for _, key := range []string{"height", "build", "hair_color", "eye_color", "clothing_style", "special_features"} {
		s, ok := sheet.Appearance[key].(string)
		s = strings.TrimSpace(s)
		if !ok || s == "" || s == unsetAppearance {
			continue
		}
		parts = append(parts, s)
	}
	return strings.Join(parts, ", "), len(parts)
}

// CharacterImageRequestFor builds a portrait request from a generated sheet.
// The name falls back to fallbackName and then to the default character name.
func CharacterImageRequestFor(character json.RawMessage, fallbackName, style string) (CharacterImageRequest, error) {
	saved := model.NewSavedCharacter("", character, "")
	name := saved.Name
	if name == model.DefaultCharacterName && strings.TrimSpace(fallbackName) != "" {
		name = fallbackName
	}

	appearance, n := CharacterAppearance(character)
	if n < MinAppearanceParts {
		return CharacterImageRequest{}, fmt.Errorf("character appearance has %d descriptors, need at least %d: %w",
			n, MinAppearanceParts, model.ErrInvalidInput)
	}
	return CharacterImageRequest{
		CharacterName: name,
		Appearance:    appearance,
		Style:         orDefault(style, "anime"),
	}, nil
}

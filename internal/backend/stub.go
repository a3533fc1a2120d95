package backend

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/yangwenmai/storyverse/internal/model"
)

// Stub returns canned replies (for development/testing). It validates
// requests the same way Client does.
type Stub struct{}

var _ Service = Stub{}

func ok() Envelope { return Envelope{Success: true} }

func mustJSON(v any) json.RawMessage {
	b, _ := json.Marshal(v)
	return b
}

func (Stub) GenerateCharacter(_ context.Context, req CharacterRequest) (*CharacterResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	name := orDefault(req.Name, "Aria")
	return &CharacterResponse{
		Envelope: ok(),
		Character: mustJSON(map[string]any{
			"basic_info": map[string]any{"name": name, "age": orDefault(req.Age, "24"), "gender": req.Gender},
			"type":       req.Type,
			"setting":    req.Setting,
			"appearance": map[string]any{
				"height":         "tall",
				"build":          "slender",
				"hair_color":     "silver",
				"eye_color":      "grey",
				"clothing_style": "travelling cloak",
			},
			"personality": orDefault(req.Personality, "curious and stubborn"),
		}),
	}, nil
}

func (Stub) GenerateCharacterImage(_ context.Context, req CharacterImageRequest) (*CharacterImageResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return &CharacterImageResponse{
		Envelope:   ok(),
		ImageURL:   "https://example.invalid/stub/" + model.NewID() + ".png",
		PromptUsed: fmt.Sprintf("%s, %s, %s style", req.CharacterName, req.Appearance, req.Style),
	}, nil
}

func (Stub) GenerateOutline(_ context.Context, req OutlineRequest) (*OutlineResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return &OutlineResponse{
		Envelope: ok(),
		Outline: mustJSON(map[string]any{
			"story_summary": fmt.Sprintf("A %s %s story about %v.", req.Style, req.Genre, req.Keywords),
			"chapter_outline": []map[string]string{
				{"chapter": "Chapter 1", "summary": "The call."},
				{"chapter": "Chapter 2", "summary": "The road."},
			},
		}),
	}, nil
}

func (Stub) ContinueChapter(_ context.Context, req ContinueRequest) (*ContinueResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return &ContinueResponse{Envelope: ok(), ContinuedContent: req.PreviousContent + " And the story went on."}, nil
}

func (Stub) AdjustStyle(_ context.Context, req StyleRequest) (*StyleResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return &StyleResponse{Envelope: ok(), AdjustedContent: fmt.Sprintf("[%s] %s", req.TargetStyle, req.Content)}, nil
}

func (Stub) ConvertToScript(_ context.Context, req ScriptRequest) (*ScriptResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return &ScriptResponse{Envelope: ok(), Script: "INT. STUB SCENE - DAY\n\n" + req.Content}, nil
}

func (Stub) GenerateStoryboard(_ context.Context, req StoryboardRequest) (*StoryboardResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	req = req.withDefaults()
	shots := make([]model.Shot, 0, req.Shots)
	for i := 1; i <= req.Shots; i++ {
		shots = append(shots, model.Shot{
			ShotNumber:  model.Number(i),
			ShotType:    "medium",
			Angle:       "eye level",
			Movement:    "static",
			Description: model.Text(fmt.Sprintf("Shot %d of %s", i, req.Style)),
			Duration:    "3s",
			Transition:  "cut",
		})
	}
	return &StoryboardResponse{Envelope: ok(), Storyboard: shots}, nil
}

func (Stub) AnalyzeImage(_ context.Context, req ImageAnalysisRequest) (*AnalysisResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	req = req.withDefaults()
	return &AnalysisResponse{Envelope: ok(), Analysis: mustJSON(map[string]string{
		"content": fmt.Sprintf("Stub %s analysis of %s.", req.AnalysisType, req.ImageURL),
	})}, nil
}

func (Stub) AnalyzeVideo(_ context.Context, req VideoAnalysisRequest) (*AnalysisResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	req = req.withDefaults()
	return &AnalysisResponse{Envelope: ok(), Analysis: mustJSON(map[string]string{
		"content": fmt.Sprintf("Stub %s analysis of %s.", req.AnalysisFocus, req.VideoURL),
	})}, nil
}

func (Stub) EnhancedSearch(_ context.Context, req SearchRequest) (*SearchResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	req = req.withDefaults()
	return &SearchResponse{
		Envelope: ok(),
		Results: []model.SearchResult{
			{Title: "About " + req.Query, Description: "A stub result for " + req.Query + ".", Source: "stub"},
		},
		Summary:       "Stub summary for " + req.Query + ".",
		RelatedTopics: []string{req.Query + " history", req.Query + " in fiction"},
	}, nil
}

func (Stub) HotTopics(_ context.Context, req HotTopicsRequest) (*HotTopicsResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return &HotTopicsResponse{Envelope: ok(), Topics: []Topic{
		{Title: "Cozy fantasy", Heat: "中", Trend: "上升", Keywords: []string{"found family"}},
		{Title: "Time loops", Heat: "高", Trend: "热门", Keywords: []string{"mystery"}},
		{Title: "Epistolary horror", Heat: "低", Trend: "新兴", Keywords: []string{"letters"}},
	}}, nil
}

func (Stub) Inspiration(_ context.Context, req InspirationRequest) (*InspirationResponse, error) {
	return &InspirationResponse{Envelope: ok(), Inspirations: []Inspiration{{
		Title:        "A map that redraws itself",
		Description:  fmt.Sprintf("A %s idea.", orDefault(req.Genre, "genre-free")),
		Scenarios:    []string{"The heroes follow a route that changes overnight."},
		Applications: []string{"Opening hook"},
		Resources:    []string{},
		Techniques:   []string{"Unreliable artefact"},
	}}}, nil
}

package backend

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/yangwenmai/storyverse/internal/model"
)

// Envelope is the success flag carried by every backend reply.
type Envelope struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

func (e Envelope) envelope() Envelope { return e }

type enveloped interface{ envelope() Envelope }

func required(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%s is required: %w", field, model.ErrInvalidInput)
	}
	return nil
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

// ---------------------------------------------------------------------------
// Characters
// ---------------------------------------------------------------------------

type CharacterRequest struct {
	Name        string `json:"name,omitempty"`
	Type        string `json:"type"`
	Setting     string `json:"setting"`
	Age         string `json:"age,omitempty"`
	Gender      string `json:"gender,omitempty"`
	Personality string `json:"personality,omitempty"`
	Description string `json:"description,omitempty"`
}

func (r CharacterRequest) Validate() error {
	if err := required("type", r.Type); err != nil {
		return err
	}
	return required("setting", r.Setting)
}

type CharacterResponse struct {
	Envelope
	// Character is the generated sheet, kept opaque so it can be saved verbatim.
	Character           json.RawMessage   `json:"character,omitempty"`
	BackgroundMaterials []json.RawMessage `json:"background_materials,omitempty"`
}

type CharacterImageRequest struct {
	CharacterName string `json:"character_name"`
	Appearance    string `json:"appearance"`
	Style         string `json:"style"`
	Pose          string `json:"pose,omitempty"`
}

func (r CharacterImageRequest) Validate() error {
	if err := required("character_name", r.CharacterName); err != nil {
		return err
	}
	if err := required("appearance", r.Appearance); err != nil {
		return err
	}
	return required("style", r.Style)
}

type CharacterImageResponse struct {
	Envelope
	ImageURL   string `json:"image_url,omitempty"`
	PromptUsed string `json:"prompt_used,omitempty"`
}

// ---------------------------------------------------------------------------
// Novel
// ---------------------------------------------------------------------------

type OutlineRequest struct {
	Genre        string   `json:"genre"`
	Style        string   `json:"style"`
	Keywords     []string `json:"keywords"`
	TargetLength string   `json:"target_length"`
}

func (r OutlineRequest) Validate() error {
	if err := required("genre", r.Genre); err != nil {
		return err
	}
	if err := required("style", r.Style); err != nil {
		return err
	}
	for _, k := range r.Keywords {
		if strings.TrimSpace(k) != "" {
			return nil
		}
	}
	return fmt.Errorf("keywords is required: %w", model.ErrInvalidInput)
}

func (r OutlineRequest) withDefaults() OutlineRequest {
	r.TargetLength = orDefault(r.TargetLength, "medium")
	return r
}

type OutlineResponse struct {
	Envelope
	// Outline is a nested object whose keys may be English or Chinese; see OutlineField.
	Outline             json.RawMessage   `json:"outline,omitempty"`
	BackgroundMaterials []json.RawMessage `json:"background_materials,omitempty"`
}

type ContinueRequest struct {
	PreviousContent       string `json:"previous_content"`
	ContinuationDirection string `json:"continuation_direction,omitempty"`
	TargetLength          int    `json:"target_length"`
}

func (r ContinueRequest) Validate() error {
	if r.TargetLength < 0 {
		return fmt.Errorf("target_length must not be negative: %w", model.ErrInvalidInput)
	}
	return required("previous_content", r.PreviousContent)
}

func (r ContinueRequest) withDefaults() ContinueRequest {
	if r.TargetLength == 0 {
		r.TargetLength = 1000
	}
	return r
}

type ContinueResponse struct {
	Envelope
	ContinuedContent string `json:"continued_content,omitempty"`
}

type StyleRequest struct {
	Content          string `json:"content"`
	TargetStyle      string `json:"target_style"`
	StyleDescription string `json:"style_description,omitempty"`
}

func (r StyleRequest) Validate() error {
	if err := required("content", r.Content); err != nil {
		return err
	}
	return required("target_style", r.TargetStyle)
}

type StyleResponse struct {
	Envelope
	AdjustedContent string `json:"adjusted_content,omitempty"`
}

// ---------------------------------------------------------------------------
// Script and storyboard
// ---------------------------------------------------------------------------

type ScriptRequest struct {
	Content    string   `json:"content"`
	Format     string   `json:"format"`
	Characters []string `json:"characters,omitempty"`
}

func (r ScriptRequest) Validate() error { return required("content", r.Content) }

func (r ScriptRequest) withDefaults() ScriptRequest {
	r.Format = orDefault(r.Format, "standard")
	return r
}

type ScriptResponse struct {
	Envelope
	Script string `json:"script,omitempty"`
}

type StoryboardRequest struct {
	Script           string `json:"script"`
	Style            string `json:"style"`
	Shots            int    `json:"shots"`
	SceneDescription string `json:"scene_description,omitempty"`
}

func (r StoryboardRequest) Validate() error {
	if r.Shots < 0 {
		return fmt.Errorf("shots must not be negative: %w", model.ErrInvalidInput)
	}
	return required("script", r.Script)
}

func (r StoryboardRequest) withDefaults() StoryboardRequest {
	r.Style = orDefault(r.Style, "cinematic")
	if r.Shots == 0 {
		r.Shots = 6
	}
	return r
}

type StoryboardResponse struct {
	Envelope
	Storyboard []model.Shot `json:"storyboard,omitempty"`
}

type ImageAnalysisRequest struct {
	ImageURL     string `json:"image_url"`
	AnalysisType string `json:"analysis_type"`
	Description  string `json:"description,omitempty"`
}

func (r ImageAnalysisRequest) Validate() error { return required("image_url", r.ImageURL) }

func (r ImageAnalysisRequest) withDefaults() ImageAnalysisRequest {
	r.AnalysisType = orDefault(r.AnalysisType, "composition")
	return r
}

type VideoAnalysisRequest struct {
	VideoURL      string `json:"video_url"`
	AnalysisFocus string `json:"analysis_focus"`
	Description   string `json:"description,omitempty"`
}

func (r VideoAnalysisRequest) Validate() error { return required("video_url", r.VideoURL) }

func (r VideoAnalysisRequest) withDefaults() VideoAnalysisRequest {
	r.AnalysisFocus = orDefault(r.AnalysisFocus, "storyboard")
	return r
}

type AnalysisResponse struct {
	Envelope
	Analysis json.RawMessage `json:"analysis,omitempty"`
}

// Content returns analysis.content, or "" when absent.
func (r *AnalysisResponse) Content() string {
	var a struct {
		Content string `json:"content"`
	}
	_ = json.Unmarshal(r.Analysis, &a)
	return a.Content
}

// ---------------------------------------------------------------------------
// Search
// ---------------------------------------------------------------------------

type SearchRequest struct {
	Query      string `json:"query"`
	SearchType string `json:"search_type"`
	Context    string `json:"context,omitempty"`
	Limit      int    `json:"limit"`
}

func (r SearchRequest) Validate() error {
	if r.Limit < 0 {
		return fmt.Errorf("limit must not be negative: %w", model.ErrInvalidInput)
	}
	return required("query", r.Query)
}

func (r SearchRequest) withDefaults() SearchRequest {
	r.Query = strings.TrimSpace(r.Query)
	r.SearchType = orDefault(r.SearchType, "general")
	if r.Limit == 0 {
		r.Limit = 15
	}
	return r
}

type SearchResponse struct {
	Envelope
	Results       []model.SearchResult `json:"results"`
	Summary       string               `json:"summary,omitempty"`
	RelatedTopics []string             `json:"related_topics"`
}

type HotTopicsRequest struct {
	Category string `json:"category,omitempty"`
	Limit    int    `json:"limit"`
}

func (r HotTopicsRequest) Validate() error {
	if r.Limit < 0 {
		return fmt.Errorf("limit must not be negative: %w", model.ErrInvalidInput)
	}
	return nil
}

func (r HotTopicsRequest) withDefaults() HotTopicsRequest {
	if r.Limit == 0 {
		r.Limit = 20
	}
	return r
}

type Topic struct {
	Title         string   `json:"title"`
	Heat          string   `json:"heat"`
	Description   string   `json:"description"`
	Keywords      []string `json:"keywords"`
	Trend         string   `json:"trend"`
	CreativeValue string   `json:"creative_value"`
}

type HotTopicsResponse struct {
	Envelope
	Topics []Topic `json:"topics"`
}

type InspirationRequest struct {
	Genre    string   `json:"genre,omitempty"`
	Theme    string   `json:"theme,omitempty"`
	Style    string   `json:"style,omitempty"`
	Keywords []string `json:"keywords,omitempty"`
}

func (r InspirationRequest) Validate() error { return nil }

type Inspiration struct {
	Title        string   `json:"title"`
	Description  string   `json:"description"`
	Scenarios    []string `json:"scenarios"`
	Applications []string `json:"applications"`
	Resources    []string `json:"resources"`
	Techniques   []string `json:"techniques"`
}

type InspirationResponse struct {
	Envelope
	Inspirations []Inspiration `json:"inspirations"`
}

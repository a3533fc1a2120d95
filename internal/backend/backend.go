// Package backend is a typed client of the remote generation and search API.
package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// Service is implemented by the HTTP client and by Stub.
type Service interface {
	GenerateCharacter(ctx context.Context, req CharacterRequest) (*CharacterResponse, error)
	GenerateCharacterImage(ctx context.Context, req CharacterImageRequest) (*CharacterImageResponse, error)
	GenerateOutline(ctx context.Context, req OutlineRequest) (*OutlineResponse, error)
	ContinueChapter(ctx context.Context, req ContinueRequest) (*ContinueResponse, error)
	AdjustStyle(ctx context.Context, req StyleRequest) (*StyleResponse, error)
	ConvertToScript(ctx context.Context, req ScriptRequest) (*ScriptResponse, error)
	GenerateStoryboard(ctx context.Context, req StoryboardRequest) (*StoryboardResponse, error)
	AnalyzeImage(ctx context.Context, req ImageAnalysisRequest) (*AnalysisResponse, error)
	AnalyzeVideo(ctx context.Context, req VideoAnalysisRequest) (*AnalysisResponse, error)
	EnhancedSearch(ctx context.Context, req SearchRequest) (*SearchResponse, error)
	HotTopics(ctx context.Context, req HotTopicsRequest) (*HotTopicsResponse, error)
	Inspiration(ctx context.Context, req InspirationRequest) (*InspirationResponse, error)
}

// Endpoint names one backend operation.
type Endpoint string

const (
	EndpointCharacter      Endpoint = "character"
	EndpointCharacterImage Endpoint = "character-image"
	EndpointOutline        Endpoint = "outline"
	EndpointContinue       Endpoint = "continue"
	EndpointRewrite        Endpoint = "rewrite"
	EndpointScript         Endpoint = "script"
	EndpointStoryboard     Endpoint = "storyboard"
	EndpointAnalyzeImage   Endpoint = "analyze-image"
	EndpointAnalyzeVideo   Endpoint = "analyze-video"
	EndpointSearch         Endpoint = "search"
	EndpointHotTopics      Endpoint = "hot-topics"
	EndpointInspiration    Endpoint = "inspiration"
)

var paths = map[Endpoint]string{
	EndpointCharacter:      "/api/character/generate",
	EndpointCharacterImage: "/api/character/image",
	EndpointOutline:        "/api/novel/outline",
	EndpointContinue:       "/api/novel/continue",
	EndpointRewrite:        "/api/novel/rewrite",
	EndpointScript:         "/api/script/convert",
	EndpointStoryboard:     "/api/storyboard/generate",
	EndpointAnalyzeImage:   "/api/storyboard/analyze",
	EndpointAnalyzeVideo:   "/api/storyboard/analyze-video",
	EndpointSearch:         "/api/search/enhanced-search",
	EndpointHotTopics:      "/api/search/hot-topics",
	EndpointInspiration:    "/api/search/inspiration",
}

// Path returns the backend URL path of e, or "" if e is unknown.
func (e Endpoint) Path() string { return paths[e] }

// HTTPError is a non-2xx reply from the backend.
type HTTPError struct {
	Status int
	Body   string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("backend HTTP %d: %s", e.Status, e.Message())
}

// Message returns the backend's "detail" text when the body carries one,
// otherwise the raw body.
func (e *HTTPError) Message() string {
	var body struct {
		Detail any `json:"detail"`
	}
	if err := json.Unmarshal([]byte(e.Body), &body); err == nil {
		if s, ok := body.Detail.(string); ok && s != "" {
			return s
		}
	}
	return strings.TrimSpace(e.Body)
}

// BackendError is a reply with success=false. Message is passed through unmodified.
type BackendError struct {
	Endpoint Endpoint
	Message  string
}

func (e *BackendError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("backend %s failed", e.Endpoint)
	}
	return e.Message
}

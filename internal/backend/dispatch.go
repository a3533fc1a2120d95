package backend

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/yangwenmai/storyverse/internal/model"
)

// Endpoints lists every endpoint Call accepts.
func Endpoints() []Endpoint {
	return []Endpoint{
		EndpointCharacter, EndpointCharacterImage, EndpointOutline, EndpointContinue,
		EndpointRewrite, EndpointScript, EndpointStoryboard, EndpointAnalyzeImage,
		EndpointAnalyzeVideo, EndpointSearch, EndpointHotTopics, EndpointInspiration,
	}
}

// Call decodes body as the request of endpoint and invokes the matching
// method of svc.
func Call(ctx context.Context, svc Service, endpoint Endpoint, body []byte) (any, error) {
	switch endpoint {
	case EndpointCharacter:
		return invoke(ctx, body, svc.GenerateCharacter)
	case EndpointCharacterImage:
		return invoke(ctx, body, svc.GenerateCharacterImage)
	case EndpointOutline:
		return invoke(ctx, body, svc.GenerateOutline)
	case EndpointContinue:
		return invoke(ctx, body, svc.ContinueChapter)
	case EndpointRewrite:
		return invoke(ctx, body, svc.AdjustStyle)
	case EndpointScript:
		return invoke(ctx, body, svc.ConvertToScript)
	case EndpointStoryboard:
		return invoke(ctx, body, svc.GenerateStoryboard)
	case EndpointAnalyzeImage:
		return invoke(ctx, body, svc.AnalyzeImage)
	case EndpointAnalyzeVideo:
		return invoke(ctx, body, svc.AnalyzeVideo)
	case EndpointSearch:
		return invoke(ctx, body, svc.EnhancedSearch)
	case EndpointHotTopics:
		return invoke(ctx, body, svc.HotTopics)
	case EndpointInspiration:
		return invoke(ctx, body, svc.Inspiration)
	}
	return nil, fmt.Errorf("endpoint %q: %w", endpoint, model.ErrNotFound)
}

func invoke[Req, Resp any](ctx context.Context, body []byte, fn func(context.Context, Req) (*Resp, error)) (any, error) {
	var req Req
	if len(body) > 0 {
		if err := json.Unmarshal(body, &req); err != nil {
			return nil, fmt.Errorf("invalid request body: %v: %w", err, model.ErrInvalidInput)
		}
	}
	resp, err := fn(ctx, req)
	if err != nil {
		return nil, err
	}
	return resp, nil
}

package api

import (
	"github.com/codedeck/codedeck/internal/domain"
	apiTypes "github.com/codedeck/codedeck/pkg/api"
)

func domainEventToAPIEvent(runID string, e domain.Event) apiTypes.StreamEvent {
	return apiTypes.StreamEvent{
		Type:      apiTypes.EventType(e.Type.String()),
		RunID:     runID,
		Timestamp: e.Timestamp,
		Data:      convertEventData(e),
	}
}

func convertEventData(e domain.Event) any {
	switch d := e.Data.(type) {
	case domain.MessageStartData:
		return apiTypes.MessageStartData{ID: d.ID}
	case domain.TextData:
		return apiTypes.TextData{Content: d.Content}
	case domain.ThinkingData:
		return apiTypes.ThinkingData{Content: d.Content}
	case domain.ToolUseStartData:
		return apiTypes.ToolUseStartData{ID: d.ID, Tool: d.Tool, Input: d.Input}
	case domain.ToolUseEndData:
		return apiTypes.ToolUseEndData{ID: d.ID, Status: string(d.Status), Error: d.Error}
	case domain.ErrorData:
		return apiTypes.ErrorData{Message: d.Message, Code: d.Code}
	default:
		return d
	}
}

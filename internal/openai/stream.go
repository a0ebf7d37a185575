package openai

import "encoding/json"

type streamDelta struct {
	Role    string `json:"role,omitempty"`
	Content string `json:"content,omitempty"`
}

type streamChoice struct {
	Index        int         `json:"index"`
	Delta        streamDelta `json:"delta"`
	FinishReason *string     `json:"finish_reason"`
}

type streamChunk struct {
	ID      string         `json:"id"`
	Object  string         `json:"object"`
	Created int64          `json:"created"`
	Model   string         `json:"model"`
	Choices []streamChoice `json:"choices"`
}

func stopPtr(s string) *string { return &s }

func newStreamChunk(id, model string, created int64, choice streamChoice) *streamChunk {
	return &streamChunk{
		ID:      id,
		Object:  "chat.completion.chunk",
		Created: created,
		Model:   model,
		Choices: []streamChoice{choice},
	}
}

// translateStreamEvent maps one decoded Anthropic SSE event to the OpenAI
// chunk it corresponds to, per the event-type table: message_start opens
// the assistant turn, content_block_delta carries text, message_delta and
// message_stop close it out with a finish_reason. Any other event type
// (e.g. content_block_start, ping) produces nothing.
func translateStreamEvent(id, model string, created int64, event string, data []byte) (*streamChunk, bool) {
	switch event {
	case "message_start":
		return newStreamChunk(id, model, created, streamChoice{
			Index: 0,
			Delta: streamDelta{Role: "assistant", Content: ""},
		}), true

	case "content_block_delta":
		var doc struct {
			Delta struct {
				Text string `json:"text"`
			} `json:"delta"`
		}
		if err := json.Unmarshal(data, &doc); err != nil || doc.Delta.Text == "" {
			return nil, false
		}
		return newStreamChunk(id, model, created, streamChoice{
			Index: 0,
			Delta: streamDelta{Content: doc.Delta.Text},
		}), true

	case "message_delta":
		var doc struct {
			Delta struct {
				StopReason string `json:"stop_reason"`
			} `json:"delta"`
		}
		if err := json.Unmarshal(data, &doc); err != nil || doc.Delta.StopReason == "" {
			return nil, false
		}
		return newStreamChunk(id, model, created, streamChoice{
			Index:        0,
			Delta:        streamDelta{},
			FinishReason: stopPtr(finishReason(doc.Delta.StopReason)),
		}), true

	case "message_stop":
		return newStreamChunk(id, model, created, streamChoice{
			Index:        0,
			Delta:        streamDelta{},
			FinishReason: stopPtr("stop"),
		}), true

	default:
		return nil, false
	}
}

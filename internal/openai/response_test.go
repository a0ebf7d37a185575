package openai

import (
	"encoding/json"
	"testing"
)

func TestTranslateNonStreamingResponse(t *testing.T) {
	anthropicBody := []byte(`{
		"id": "msg_1",
		"content": [{"type":"text","text":"Hello "},{"type":"text","text":"there"}],
		"stop_reason": "end_turn",
		"usage": {"input_tokens": 12, "output_tokens": 34}
	}`)

	out, err := translateNonStreamingResponse(anthropicBody, "gpt-5-mini", 1700000000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var resp chatCompletionResponse
	if err := json.Unmarshal(out, &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Object != "chat.completion" {
		t.Errorf("expected object chat.completion, got %q", resp.Object)
	}
	if resp.Model != "gpt-5-mini" {
		t.Errorf("expected model echoed back, got %q", resp.Model)
	}
	if len(resp.Choices) != 1 || resp.Choices[0].Message.Content != "Hello there" {
		t.Fatalf("expected concatenated text content, got %+v", resp.Choices)
	}
	if resp.Choices[0].FinishReason != "stop" {
		t.Errorf("expected finish_reason stop, got %q", resp.Choices[0].FinishReason)
	}
	if resp.Usage.PromptTokens != 12 || resp.Usage.CompletionTokens != 34 || resp.Usage.TotalTokens != 46 {
		t.Errorf("expected usage 12/34/46, got %+v", resp.Usage)
	}
}

func TestFinishReasonMapsMaxTokensToLength(t *testing.T) {
	if got := finishReason("max_tokens"); got != "length" {
		t.Errorf("expected length, got %q", got)
	}
	if got := finishReason("end_turn"); got != "stop" {
		t.Errorf("expected stop, got %q", got)
	}
}

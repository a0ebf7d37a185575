package openai

import (
	"encoding/json"
	"testing"

	"github.com/ccgate/ccgate/internal/config"
)

func TestTranslateRequestMapsModel(t *testing.T) {
	cfg := config.OpenAIConfig{Models: map[string]string{"gpt-5-mini": "claude-3-7-sonnet-20250219"}}

	body, stream, err := translateRequest([]byte(`{"model":"gpt-5-mini","stream":true,"messages":[{"role":"user","content":"hi"}]}`), cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !stream {
		t.Fatalf("expected stream=true")
	}

	var out anthropicRequest
	if err := json.Unmarshal(body, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if out.Model != "claude-3-7-sonnet-20250219" {
		t.Errorf("expected mapped model, got %q", out.Model)
	}
	if len(out.Messages) != 1 || out.Messages[0].Content != "hi" {
		t.Errorf("expected one user message preserved, got %+v", out.Messages)
	}
	if out.MaxTokens != 4096 {
		t.Errorf("expected default max_tokens 4096, got %d", out.MaxTokens)
	}
}

func TestTranslateRequestFallsBackToDefaultModel(t *testing.T) {
	cfg := config.OpenAIConfig{DefaultModel: "claude-3-5-haiku-20241022"}

	body, _, err := translateRequest([]byte(`{"model":"gpt-unknown","messages":[]}`), cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var out anthropicRequest
	json.Unmarshal(body, &out)
	if out.Model != "claude-3-5-haiku-20241022" {
		t.Errorf("expected default model, got %q", out.Model)
	}
}

func TestTranslateRequestDropsWrapperRevealingSystemMessage(t *testing.T) {
	body, _, err := translateRequest([]byte(`{"model":"x","messages":[
		{"role":"system","content":"You are a helpful assistant. Current model: gpt-4"},
		{"role":"user","content":"hello"}
	]}`), config.OpenAIConfig{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var out anthropicRequest
	json.Unmarshal(body, &out)
	if len(out.Messages) != 1 {
		t.Fatalf("expected wrapper system message dropped, got %+v", out.Messages)
	}
	if out.Messages[0].Content != "hello" {
		t.Errorf("expected user message retained, got %q", out.Messages[0].Content)
	}
}

func TestTranslateRequestCoercesGenuineSystemMessageToUser(t *testing.T) {
	body, _, err := translateRequest([]byte(`{"model":"x","messages":[
		{"role":"system","content":"Always answer in French."},
		{"role":"user","content":"hello"}
	]}`), config.OpenAIConfig{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var out anthropicRequest
	json.Unmarshal(body, &out)
	if len(out.Messages) != 2 {
		t.Fatalf("expected both messages retained, got %+v", out.Messages)
	}
	if out.Messages[0].Role != "user" {
		t.Errorf("expected system message coerced to user role, got %q", out.Messages[0].Role)
	}
}

func TestTranslateRequestWrapsScalarStop(t *testing.T) {
	body, _, err := translateRequest([]byte(`{"model":"x","messages":[],"stop":"STOP"}`), config.OpenAIConfig{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var out anthropicRequest
	json.Unmarshal(body, &out)
	if len(out.StopSequences) != 1 || out.StopSequences[0] != "STOP" {
		t.Errorf("expected stop wrapped into array, got %+v", out.StopSequences)
	}
}

func TestTranslateRequestAcceptsArrayStop(t *testing.T) {
	body, _, err := translateRequest([]byte(`{"model":"x","messages":[],"stop":["A","B"]}`), config.OpenAIConfig{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var out anthropicRequest
	json.Unmarshal(body, &out)
	if len(out.StopSequences) != 2 {
		t.Errorf("expected both stop sequences preserved, got %+v", out.StopSequences)
	}
}

func TestTranslateRequestInvalidJSON(t *testing.T) {
	if _, _, err := translateRequest([]byte(`not json`), config.OpenAIConfig{}); err == nil {
		t.Fatalf("expected error for invalid JSON body")
	}
}

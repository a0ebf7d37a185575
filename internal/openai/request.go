package openai

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ccgate/ccgate/internal/config"
)

// incomingRequest is the OpenAI Chat Completions request shape. Stop is
// decoded lazily since OpenAI accepts it as either a scalar string or an
// array of strings.
type incomingRequest struct {
	Model       string            `json:"model"`
	Messages    []incomingMessage `json:"messages"`
	MaxTokens   int               `json:"max_tokens"`
	Temperature *float32          `json:"temperature"`
	TopP        *float32          `json:"top_p"`
	Stop        json.RawMessage   `json:"stop"`
	Stream      bool              `json:"stream"`
}

type incomingMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// wrapperTells are substrings that identify a system/developer message as
// revealing the chat-completions wrapper rather than carrying genuine
// caller-supplied instructions.
var wrapperTells = []string{"current model:", "gpt", "you are a helpful assistant"}

// translateRequest builds the Anthropic request body and reports whether
// the client asked for a streaming response.
func translateRequest(body []byte, cfg config.OpenAIConfig) ([]byte, bool, error) {
	var in incomingRequest
	if err := json.Unmarshal(body, &in); err != nil {
		return nil, false, fmt.Errorf("invalid JSON request body: %w", err)
	}

	model := in.Model
	if mapped, ok := cfg.Models[model]; ok {
		model = mapped
	} else if cfg.DefaultModel != "" {
		model = cfg.DefaultModel
	}

	out := anthropicRequest{
		Model:       model,
		MaxTokens:   in.MaxTokens,
		Temperature: in.Temperature,
		TopP:        in.TopP,
		Stream:      in.Stream,
	}
	if out.MaxTokens <= 0 {
		out.MaxTokens = 4096
	}

	for _, m := range in.Messages {
		if (m.Role == "developer" || m.Role == "system") && revealsWrapper(m.Content) {
			continue
		}
		role := m.Role
		if role == "developer" || role == "system" {
			role = "user"
		}
		out.Messages = append(out.Messages, anthropicMessage{Role: role, Content: m.Content})
	}

	if stops, err := decodeStop(in.Stop); err == nil && len(stops) > 0 {
		out.StopSequences = stops
	}

	encoded, err := json.Marshal(out)
	if err != nil {
		return nil, false, err
	}
	return encoded, in.Stream, nil
}

func revealsWrapper(content string) bool {
	lower := strings.ToLower(content)
	for _, tell := range wrapperTells {
		if strings.Contains(lower, tell) {
			return true
		}
	}
	return false
}

// decodeStop accepts either a JSON string or a JSON array of strings,
// always returning the array form Anthropic's stop_sequences expects.
func decodeStop(raw json.RawMessage) ([]string, error) {
	if len(raw) == 0 {
		return nil, nil
	}

	var single string
	if err := json.Unmarshal(raw, &single); err == nil {
		return []string{single}, nil
	}

	var many []string
	if err := json.Unmarshal(raw, &many); err == nil {
		return many, nil
	}

	return nil, fmt.Errorf("stop field is neither a string nor an array of strings")
}

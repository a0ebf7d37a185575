package openai

import (
	"encoding/json"
	"strings"

	"github.com/google/uuid"
	openaisdk "github.com/sashabaranov/go-openai"
)

type chatCompletionMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionChoice struct {
	Index        int                   `json:"index"`
	Message      chatCompletionMessage `json:"message"`
	FinishReason string                `json:"finish_reason"`
}

type chatCompletionResponse struct {
	ID      string                 `json:"id"`
	Object  string                 `json:"object"`
	Created int64                  `json:"created"`
	Model   string                 `json:"model"`
	Choices []chatCompletionChoice `json:"choices"`
	Usage   openaisdk.Usage        `json:"usage"`
}

// newChatCompletionID mints an id in the "chatcmpl-<rand>" shape OpenAI
// clients expect, using a UUID as the random component.
func newChatCompletionID() string {
	return "chatcmpl-" + strings.ReplaceAll(uuid.NewString(), "-", "")
}

func finishReason(stopReason string) string {
	if stopReason == "end_turn" || stopReason == "" {
		return string(openaisdk.FinishReasonStop)
	}
	return string(openaisdk.FinishReasonLength)
}

// translateNonStreamingResponse builds the OpenAI chat.completion body from
// a fully-buffered Anthropic Messages API response.
func translateNonStreamingResponse(anthropicBody []byte, model string, createdUnix int64) ([]byte, error) {
	var resp anthropicResponse
	if err := json.Unmarshal(anthropicBody, &resp); err != nil {
		return nil, err
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}

	out := chatCompletionResponse{
		ID:      newChatCompletionID(),
		Object:  "chat.completion",
		Created: createdUnix,
		Model:   model,
		Choices: []chatCompletionChoice{{
			Index:        0,
			Message:      chatCompletionMessage{Role: "assistant", Content: text.String()},
			FinishReason: finishReason(resp.StopReason),
		}},
		Usage: openaisdk.Usage{
			PromptTokens:     resp.Usage.InputTokens,
			CompletionTokens: resp.Usage.OutputTokens,
			TotalTokens:      resp.Usage.InputTokens + resp.Usage.OutputTokens,
		},
	}

	return json.Marshal(out)
}

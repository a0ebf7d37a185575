// Package tokenusage implements the Token/Usage Extractor (C9): pulling
// input/output/cache token counts out of an Anthropic Messages API response
// body, whether it is a single JSON document or an SSE event stream.
package tokenusage

import (
	"bytes"
	"compress/flate"
	"compress/gzip"
	"encoding/json"
	"io"
	"strings"

	"github.com/andybalholm/brotli"
	"github.com/ccgate/ccgate/internal/pricing"
)

type usagePayload struct {
	InputTokens              int `json:"input_tokens"`
	OutputTokens             int `json:"output_tokens"`
	CacheCreationInputTokens int `json:"cache_creation_input_tokens"`
	CacheReadInputTokens     int `json:"cache_read_input_tokens"`
}

func (p usagePayload) counts() pricing.TokenCounts {
	return pricing.TokenCounts{
		InputTokens:         p.InputTokens,
		OutputTokens:        p.OutputTokens,
		CacheCreationTokens: p.CacheCreationInputTokens,
		CacheReadTokens:     p.CacheReadInputTokens,
	}
}

func (p usagePayload) empty() bool {
	return p == usagePayload{}
}

// Extract parses body, first as a single JSON document with a top-level
// `usage` object, then (if that fails) as an SSE event stream, returning the
// usage fields merged across events as extractSSE describes. ok is false if
// no usage was found at all, in which case callers should record zero counts.
func Extract(body []byte) (pricing.TokenCounts, bool) {
	if counts, ok := extractJSON(body); ok {
		return counts, true
	}
	return extractSSE(body)
}

// Decode reverses the Content-Encoding an upstream applied to body so
// Extract can read the plaintext usage fields underneath. The bytes handed
// to the client are left untouched; this only affects what the extractor
// sees. An unrecognized or empty encoding returns body unchanged.
func Decode(body []byte, contentEncoding string) []byte {
	var r io.Reader
	switch strings.ToLower(strings.TrimSpace(contentEncoding)) {
	case "gzip":
		gz, err := gzip.NewReader(bytes.NewReader(body))
		if err != nil {
			return body
		}
		defer gz.Close()
		r = gz
	case "br":
		r = brotli.NewReader(bytes.NewReader(body))
	case "deflate":
		fl := flate.NewReader(bytes.NewReader(body))
		defer fl.Close()
		r = fl
	default:
		return body
	}

	decoded, err := io.ReadAll(r)
	if err != nil || len(decoded) == 0 {
		return body
	}
	return decoded
}

func extractJSON(body []byte) (pricing.TokenCounts, bool) {
	var doc struct {
		Usage usagePayload `json:"usage"`
	}
	if err := json.Unmarshal(body, &doc); err != nil {
		return pricing.TokenCounts{}, false
	}
	if doc.Usage.empty() {
		return pricing.TokenCounts{}, false
	}
	return doc.Usage.counts(), true
}

// extractSSE walks event/data pairs, folding in usage fields from
// `message_start` (nested at message.usage) and `message_delta` (top-level
// usage) events as they appear. A later event's fields override the same
// fields from an earlier one; fields it does not carry (message_delta never
// repeats input_tokens) keep whatever value an earlier event set, since
// Anthropic's delta usage only carries the cumulative output-token count.
func extractSSE(body []byte) (pricing.TokenCounts, bool) {
	var merged usagePayload
	found := false

	var event string
	for _, rawLine := range strings.Split(string(body), "\n") {
		line := strings.TrimRight(rawLine, "\r")

		switch {
		case strings.HasPrefix(line, "event:"):
			event = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
			if data == "" {
				continue
			}
			if usage, ok := usageFromData(event, []byte(data)); ok {
				merged = merge(merged, usage)
				found = true
			}
		}
	}

	if !found {
		return pricing.TokenCounts{}, false
	}
	return merged.counts(), true
}

// merge overlays fields present (non-zero) in next onto prev, leaving prev's
// value where next did not carry that field.
func merge(prev, next usagePayload) usagePayload {
	if next.InputTokens != 0 {
		prev.InputTokens = next.InputTokens
	}
	if next.OutputTokens != 0 {
		prev.OutputTokens = next.OutputTokens
	}
	if next.CacheCreationInputTokens != 0 {
		prev.CacheCreationInputTokens = next.CacheCreationInputTokens
	}
	if next.CacheReadInputTokens != 0 {
		prev.CacheReadInputTokens = next.CacheReadInputTokens
	}
	return prev
}

func usageFromData(event string, data []byte) (usagePayload, bool) {
	switch event {
	case "message_start":
		var doc struct {
			Message struct {
				Usage usagePayload `json:"usage"`
			} `json:"message"`
		}
		if err := json.Unmarshal(data, &doc); err != nil {
			return usagePayload{}, false
		}
		if doc.Message.Usage.empty() {
			return usagePayload{}, false
		}
		return doc.Message.Usage, true
	case "message_delta":
		var doc struct {
			Usage usagePayload `json:"usage"`
		}
		if err := json.Unmarshal(data, &doc); err != nil {
			return usagePayload{}, false
		}
		if doc.Usage.empty() {
			return usagePayload{}, false
		}
		return doc.Usage, true
	default:
		return usagePayload{}, false
	}
}

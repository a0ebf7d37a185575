package openai

import (
	"bytes"
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/ccgate/ccgate/internal/apperr"
	"github.com/ccgate/ccgate/internal/proxy"
	"github.com/ccgate/ccgate/internal/tokenusage"
)

// translatingSink implements proxy.Sink, wrapping the real client sink. The
// Anthropic Proxy writes to it exactly as it would to any other sink, never
// knowing its bytes are being rewritten in flight — the wrapping-sink
// pattern the translator uses instead of patching the proxy's writer.
type translatingSink struct {
	real    proxy.Sink
	model   string
	stream  bool
	id      string
	created int64

	status          int
	headerWritten   bool
	contentEncoding string
	errored         bool // status >= 400: buffer and emit as one OpenAI error body

	pending []byte       // unconsumed bytes of a partial SSE block (streaming)
	buf     bytes.Buffer // full body so far (non-streaming, or any error body)
}

func newTranslatingSink(real proxy.Sink, model string, stream bool, now time.Time) *translatingSink {
	return &translatingSink{real: real, model: model, stream: stream, id: newChatCompletionID(), created: now.Unix()}
}

// WriteHeader captures the upstream/proxy status. A success opens the SSE
// stream immediately (streaming mode) or waits for finish() to know the
// translated Content-Type (non-streaming). An error status is never let
// through as a 200 event stream: it is buffered instead and rendered as a
// single OpenAI-shaped error body, with the real status, once finish() runs.
func (s *translatingSink) WriteHeader(status int, header http.Header) {
	s.status = status
	s.contentEncoding = header.Get("Content-Encoding")

	if status >= 400 {
		s.errored = true
		return
	}

	if s.stream && !s.headerWritten {
		h := http.Header{}
		h.Set("Content-Type", "text/event-stream")
		h.Set("Cache-Control", "no-cache")
		h.Set("Connection", "keep-alive")
		s.real.WriteHeader(http.StatusOK, h)
		s.headerWritten = true
	}
	// Non-streaming header is deferred to finish(), once the translated
	// body (and its real Content-Type) is known.
}

func (s *translatingSink) Write(p []byte) (int, error) {
	if s.errored {
		s.buf.Write(p)
		return len(p), nil
	}

	if s.stream {
		s.pending = append(s.pending, p...)
		for {
			idx := bytes.Index(s.pending, []byte("\n\n"))
			if idx < 0 {
				break
			}
			block := s.pending[:idx]
			s.pending = s.pending[idx+2:]
			s.emitBlock(block)
		}
		return len(p), nil
	}

	s.buf.Write(p)
	return len(p), nil
}

func (s *translatingSink) emitBlock(block []byte) {
	var event string
	var data []byte
	for _, line := range bytes.Split(block, []byte("\n")) {
		switch {
		case bytes.HasPrefix(line, []byte("event:")):
			event = strings.TrimSpace(string(line[len("event:"):]))
		case bytes.HasPrefix(line, []byte("data:")):
			data = bytes.TrimSpace(line[len("data:"):])
		}
	}
	if len(data) == 0 {
		return
	}

	chunk, ok := translateStreamEvent(s.id, s.model, s.created, event, data)
	if !ok {
		return
	}
	encoded, err := json.Marshal(chunk)
	if err != nil {
		return
	}
	s.writeFrame(encoded)
}

func (s *translatingSink) writeFrame(payload []byte) {
	s.real.Write([]byte("data: "))
	s.real.Write(payload)
	s.real.Write([]byte("\n\n"))
}

// finish flushes whatever the last Write left buffered: an errored response
// (whatever its status, stream or not) as one OpenAI-shaped error body; for
// a successful stream, any trailing partial block plus the terminating
// [DONE] marker; for a successful non-streaming response, the translated
// JSON body.
func (s *translatingSink) finish() {
	if s.errored {
		s.finishError()
		return
	}

	if s.stream {
		if len(s.pending) > 0 {
			s.emitBlock(s.pending)
			s.pending = nil
		}
		s.real.Write([]byte("data: [DONE]\n\n"))
		return
	}

	body, err := translateNonStreamingResponse(tokenusage.Decode(s.buf.Bytes(), s.contentEncoding), s.model, s.created)
	if err != nil {
		log.Printf("openai: failed to translate non-streaming response: %v", err)
		writeTranslatorError(s.real, apperr.Internal("failed to translate upstream response"))
		return
	}

	h := http.Header{}
	h.Set("Content-Type", "application/json")
	s.real.WriteHeader(http.StatusOK, h)
	s.real.Write(body)
}

// finishError renders the buffered error body — either the proxy's own
// error envelope or the upstream Messages API's error envelope — as a
// single OpenAI-shaped error response, preserving its real type and status
// instead of collapsing every failure into upstream_error.
func (s *translatingSink) finishError() {
	decoded := tokenusage.Decode(s.buf.Bytes(), s.contentEncoding)

	var upstreamErr anthropicError
	errType := "upstream_error"
	message := "upstream error"
	if err := json.Unmarshal(decoded, &upstreamErr); err == nil && upstreamErr.Error.Message != "" {
		message = upstreamErr.Error.Message
		if upstreamErr.Error.Type != "" {
			errType = upstreamErr.Error.Type
		}
	}

	body, _ := json.Marshal(map[string]interface{}{
		"error": map[string]interface{}{"message": message, "type": errType, "code": s.status},
	})
	h := http.Header{}
	h.Set("Content-Type", "application/json")
	s.real.WriteHeader(s.status, h)
	s.real.Write(body)
}

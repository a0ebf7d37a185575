package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ccgate/ccgate/internal/apperr"
	"github.com/ccgate/ccgate/internal/config"
	"github.com/ccgate/ccgate/internal/proxy"
)

// Translator is the OpenAI Chat Completions front-end (C10). It transcodes
// an incoming request to the Anthropic Messages shape, runs it through the
// Anthropic Proxy, and transcodes the response back.
type Translator struct {
	proxy    *proxy.Proxy
	cfgStore *config.Store
}

// New builds a Translator over the given Proxy and config store.
func New(p *proxy.Proxy, cfgStore *config.Store) *Translator {
	return &Translator{proxy: p, cfgStore: cfgStore}
}

// Translate translates body, runs it through the Anthropic Proxy, and
// writes the translated response to sink.
func (t *Translator) Translate(ctx context.Context, body []byte, header http.Header, query url.Values, clientIP string, sink proxy.Sink) {
	cfg := t.cfgStore.Snapshot().Server.OpenAI
	if !cfg.Enabled {
		writeTranslatorError(sink, apperr.ServiceUnavailable("the OpenAI-compatible endpoint is disabled"))
		return
	}

	anthropicBody, stream, err := translateRequest(body, cfg)
	if err != nil {
		writeTranslatorError(sink, apperr.InvalidRequest(err.Error()))
		return
	}

	var translated struct {
		Model string `json:"model"`
	}
	_ = json.Unmarshal(anthropicBody, &translated)

	req := &proxy.Request{
		Method:    http.MethodPost,
		Path:      "/anthropic/v1/messages",
		Header:    scrubHeaders(header),
		Query:     query,
		Body:      anthropicBody,
		ClientIP:  clientIP,
		UserAgent: "ccgate-openai-translator",
	}

	wrapped := newTranslatingSink(sink, translated.Model, stream, time.Now())
	t.proxy.Serve(ctx, req, wrapped)
	wrapped.finish()
}

// scrubHeaders drops browser-only headers that leak the client's original
// request context and are meaningless to an upstream Anthropic API.
func scrubHeaders(h http.Header) http.Header {
	out := http.Header{}
	for k, vv := range h {
		lower := strings.ToLower(k)
		if lower == "referer" || lower == "origin" || strings.HasPrefix(lower, "sec-fetch-") || strings.HasPrefix(lower, "sec-ch-ua") {
			continue
		}
		for _, v := range vv {
			out.Add(k, v)
		}
	}
	out.Set("User-Agent", "ccgate-openai-translator")
	return out
}

// writeTranslatorError renders a translator-level failure (a disabled
// endpoint, an unparseable request, or an upstream response that cannot be
// translated) as an OpenAI-shaped error body.
func writeTranslatorError(sink proxy.Sink, e *apperr.Error) {
	body, _ := json.Marshal(map[string]interface{}{
		"error": map[string]string{
			"message": e.Message,
			"type":    string(e.Kind),
		},
	})
	h := http.Header{}
	h.Set("Content-Type", "application/json")
	sink.WriteHeader(e.Status, h)
	sink.Write(body)
}

package tokenusage_test

import (
	"bytes"
	"compress/gzip"
	"testing"

	"github.com/andybalholm/brotli"
	"github.com/ccgate/ccgate/internal/tokenusage"
)

func TestExtractJSON(t *testing.T) {
	body := []byte(`{"id":"msg_1","usage":{"input_tokens":100,"output_tokens":50}}`)
	counts, ok := tokenusage.Extract(body)
	if !ok {
		t.Fatalf("expected usage to be found")
	}
	if counts.InputTokens != 100 || counts.OutputTokens != 50 {
		t.Errorf("unexpected counts: %+v", counts)
	}
}

func TestExtractJSONMissingFieldsDefaultZero(t *testing.T) {
	body := []byte(`{"usage":{"input_tokens":10}}`)
	counts, ok := tokenusage.Extract(body)
	if !ok {
		t.Fatalf("expected usage to be found")
	}
	if counts.OutputTokens != 0 {
		t.Errorf("expected missing output_tokens to default to 0, got %d", counts.OutputTokens)
	}
}

func TestExtractSSELastMessageDeltaWins(t *testing.T) {
	body := []byte("event: message_start\n" +
		`data: {"message":{"usage":{"input_tokens":103,"output_tokens":2}}}` + "\n\n" +
		"event: content_block_delta\n" +
		`data: {"delta":{"text":"hi"}}` + "\n\n" +
		"event: message_delta\n" +
		`data: {"usage":{"output_tokens":57}}` + "\n\n")

	counts, ok := tokenusage.Extract(body)
	if !ok {
		t.Fatalf("expected usage to be found")
	}
	if counts.InputTokens != 103 {
		t.Errorf("expected input_tokens carried from message_start, got %d", counts.InputTokens)
	}
	if counts.OutputTokens != 57 {
		t.Errorf("expected output_tokens 57 (last message_delta wins), got %d", counts.OutputTokens)
	}
}

func TestExtractNoUsageFound(t *testing.T) {
	_, ok := tokenusage.Extract([]byte(`{"hello":"world"}`))
	if ok {
		t.Errorf("expected no usage found")
	}
}

func TestDecodeGzip(t *testing.T) {
	plain := []byte(`{"usage":{"input_tokens":7,"output_tokens":3}}`)
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	gz.Write(plain)
	gz.Close()

	decoded := tokenusage.Decode(buf.Bytes(), "gzip")
	if string(decoded) != string(plain) {
		t.Errorf("expected gzip body decoded to plaintext, got %s", decoded)
	}
}

func TestDecodeBrotli(t *testing.T) {
	plain := []byte(`{"usage":{"input_tokens":7,"output_tokens":3}}`)
	var buf bytes.Buffer
	bw := brotli.NewWriter(&buf)
	bw.Write(plain)
	bw.Close()

	decoded := tokenusage.Decode(buf.Bytes(), "br")
	if string(decoded) != string(plain) {
		t.Errorf("expected brotli body decoded to plaintext, got %s", decoded)
	}
}

func TestDecodeUnknownEncodingPassesThrough(t *testing.T) {
	body := []byte(`{"usage":{"input_tokens":1}}`)
	if decoded := tokenusage.Decode(body, ""); string(decoded) != string(body) {
		t.Errorf("expected body unchanged for empty encoding, got %s", decoded)
	}
}

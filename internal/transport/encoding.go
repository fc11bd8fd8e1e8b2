package transport

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/vmihailenco/msgpack/v5"
)

// Encoding selects the payload representation of a request.
type Encoding string

const (
	EncodingJSON    Encoding = "json"
	EncodingMsgpack Encoding = "msgpack"
)

const (
	contentTypeJSON    = "application/json"
	contentTypeMsgpack = "application/msgpack"
)

// ParseEncoding validates a user-supplied encoding name. An empty string means JSON.
func ParseEncoding(s string) (Encoding, error) {
	switch Encoding(strings.ToLower(s)) {
	case "", EncodingJSON:
		return EncodingJSON, nil
	case EncodingMsgpack:
		return EncodingMsgpack, nil
	default:
		return "", fmt.Errorf("unknown encoding %q: must be 'json' or 'msgpack'", s)
	}
}

// ContentType returns the MIME type used on the wire for this encoding.
func (e Encoding) ContentType() string {
	if e == EncodingMsgpack {
		return contentTypeMsgpack
	}
	return contentTypeJSON
}

// marshal encodes v. Pre-encoded json.RawMessage payloads pass through untouched
// for JSON. Msgpack bodies are normalized through JSON first so that json tags
// and embedded json.RawMessage fields produce the same document in both encodings.
func (e Encoding) marshal(v any) ([]byte, error) {
	raw, ok := v.(json.RawMessage)
	if !ok {
		b, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("failed to encode json payload: %w", err)
		}
		raw = b
	}
	if e != EncodingMsgpack {
		return raw, nil
	}

	generic, err := jsonDocument(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to re-encode payload: %w", err)
	}
	b, err := msgpack.Marshal(generic)
	if err != nil {
		return nil, fmt.Errorf("failed to encode msgpack payload: %w", err)
	}
	return b, nil
}

// jsonDocument decodes b into maps, slices and scalars. Integral numbers stay
// integers so msgpack does not widen them to floats.
func jsonDocument(b []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, err
	}
	return numbers(doc), nil
}

func numbers(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, e := range t {
			t[k] = numbers(e)
		}
		return t
	case []any:
		for i, e := range t {
			t[i] = numbers(e)
		}
		return t
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i
		}
		f, _ := t.Float64()
		return f
	default:
		return v
	}
}

// compress gzips a request body.
func compress(body []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(body); err != nil {
		return nil, fmt.Errorf("failed to compress payload: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("failed to compress payload: %w", err)
	}
	return buf.Bytes(), nil
}

// decode unmarshals a response body according to its content type. Msgpack
// bodies are normalized through JSON so that destination types only need json
// tags and json.RawMessage fields keep working.
func decode(contentType string, body []byte, v any) error {
	if strings.HasPrefix(contentType, contentTypeMsgpack) {
		var generic any
		if err := msgpack.Unmarshal(body, &generic); err != nil {
			return fmt.Errorf("failed to decode msgpack response: %w", err)
		}
		b, err := json.Marshal(generic)
		if err != nil {
			return fmt.Errorf("failed to normalize msgpack response: %w", err)
		}
		body = b
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("failed to decode json response: %w", err)
	}
	return nil
}

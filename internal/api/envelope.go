package api

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Unwrap returns the payload of a response body. The API is inconsistent:
// some endpoints answer with the bare payload, others wrap it as
// {"dados": ...} or {"data": ...}. Keys are probed in that order and a
// null value counts as absent.
func Unwrap(body []byte) json.RawMessage {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return trimmed
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &obj); err != nil {
		return trimmed
	}
	for _, key := range []string{"dados", "data"} {
		if v, ok := obj[key]; ok && !isNull(v) {
			return v
		}
	}
	return trimmed
}

func isNull(v json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(v), []byte("null"))
}

func decodeItem(body []byte, out any) error {
	payload := Unwrap(body)
	if len(payload) == 0 || isNull(payload) {
		return nil
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}
	return nil
}

func decodeList[T any](body []byte) ([]T, error) {
	payload := Unwrap(body)
	if len(payload) == 0 || payload[0] != '[' {
		return []T{}, nil
	}
	var out []T
	if err := json.Unmarshal(payload, &out); err != nil {
		return nil, fmt.Errorf("decode list: %w", err)
	}
	if out == nil {
		out = []T{}
	}
	return out, nil
}

package cache

import (
	"encoding/json"
	"fmt"
)

// encodeValue serializes a cache value. Values keep their JSON type on the
// way back, so a stored bool reads back as a bool and nothing else.
func encodeValue(value any) ([]byte, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("encode cache value: %w", err)
	}
	return data, nil
}

// decodeValue is the inverse of encodeValue. Payloads that are not valid JSON
// (for example values written by another client) come back as raw strings.
func decodeValue(data []byte) any {
	var value any
	if err := json.Unmarshal(data, &value); err != nil {
		return string(data)
	}
	return value
}

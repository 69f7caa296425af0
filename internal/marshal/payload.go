package marshal

import (
	"encoding/json"
	"fmt"
)

// EncodeMap serializes a structured payload for the "map" callback shape.
// Maps cross the boundary as JSON text; a nil map becomes the null sentinel.
func EncodeMap(m map[string]any) (NullString, error) {
	if m == nil {
		return Null, nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return Null, fmt.Errorf("hostbridge: encoding payload: %w", err)
	}
	return Text(string(b)), nil
}

// DecodeMap parses a payload produced by EncodeMap (or by native code using
// the same convention). The null sentinel decodes to a nil map.
func DecodeMap(s NullString) (map[string]any, error) {
	if !s.Valid {
		return nil, nil
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(s.String), &m); err != nil {
		return nil, fmt.Errorf("hostbridge: decoding payload: %w", err)
	}
	return m, nil
}

// DecodeInto parses a payload into a typed value.
func DecodeInto(s NullString, v any) error {
	if !s.Valid {
		return fmt.Errorf("hostbridge: decoding payload: null")
	}
	if err := json.Unmarshal([]byte(s.String), v); err != nil {
		return fmt.Errorf("hostbridge: decoding payload: %w", err)
	}
	return nil
}

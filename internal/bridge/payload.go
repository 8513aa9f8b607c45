package bridge

import (
	"encoding/json"
	"fmt"
)

func marshalPayload(v any) (json.RawMessage, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("bridge: marshal payload: %w", err)
	}
	return raw, nil
}

func unmarshalPayload(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		return fmt.Errorf("bridge: empty payload")
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("bridge: unmarshal payload: %w", err)
	}
	return nil
}

package gateway

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ParseObject decodes a reply that should be a single JSON object. Markdown
// code fences and prose around the object are tolerated.
func ParseObject(text string) (map[string]json.RawMessage, error) {
	body := stripFences(strings.TrimSpace(text))
	if body == "" {
		return nil, errors.New("empty reply")
	}

	if strings.HasPrefix(body, "[") {
		return nil, errors.New("reply is a JSON array, not an object")
	}
	if !strings.HasPrefix(body, "{") {
		start := strings.Index(body, "{")
		end := strings.LastIndex(body, "}")
		if start < 0 || end <= start {
			return nil, fmt.Errorf("reply is not a JSON object")
		}
		body = body[start : end+1]
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal([]byte(body), &obj); err != nil {
		return nil, fmt.Errorf("decode reply: %w", err)
	}
	if obj == nil {
		return nil, fmt.Errorf("reply is not a JSON object")
	}
	return obj, nil
}

func stripFences(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	// Drop the opening fence line, which may carry a language tag
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	} else {
		s = strings.TrimPrefix(s, "```")
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

package intent

import (
	"encoding/json"
	"fmt"
	"strings"
)

type classificationJSON struct {
	Intent     *string  `json:"intent"`
	Confidence *float64 `json:"confidence"`
	Reasoning  *string  `json:"reasoning"`
	Domain     *string  `json:"domain"`
}

// Parse extracts a Classification from model output. The model is asked for
// bare JSON but often wraps it in prose or code fences, so the first balanced
// object is used.
func Parse(response string) (Classification, error) {
	obj, ok := firstJSONObject(response)
	if !ok {
		return Classification{}, fmt.Errorf("no JSON object in response")
	}

	var raw classificationJSON
	if err := json.Unmarshal([]byte(obj), &raw); err != nil {
		return Classification{}, fmt.Errorf("decode classification: %w", err)
	}

	var missing []string
	if raw.Intent == nil {
		missing = append(missing, "intent")
	}
	if raw.Confidence == nil {
		missing = append(missing, "confidence")
	}
	if raw.Domain == nil {
		missing = append(missing, "domain")
	}
	if len(missing) > 0 {
		return Classification{}, fmt.Errorf("missing fields: %s", strings.Join(missing, ", "))
	}

	in := Intent(strings.ToLower(strings.TrimSpace(*raw.Intent)))
	if !in.Valid() {
		return Classification{}, fmt.Errorf("unknown intent %q", *raw.Intent)
	}
	dom := Domain(strings.ToLower(strings.TrimSpace(*raw.Domain)))
	if !dom.Valid() {
		return Classification{}, fmt.Errorf("unknown domain %q", *raw.Domain)
	}

	conf := *raw.Confidence
	if conf < 0 {
		conf = 0
	}
	if conf > 1 {
		conf = 1
	}

	c := Classification{Intent: in, Confidence: conf, Domain: dom}
	if raw.Reasoning != nil {
		c.Reasoning = *raw.Reasoning
	}
	return c, nil
}

// firstJSONObject returns the first brace-balanced {...} span, ignoring
// braces inside JSON strings.
func firstJSONObject(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	for start >= 0 {
		depth := 0
		inString := false
		escaped := false
		for i := start; i < len(s); i++ {
			c := s[i]
			if inString {
				switch {
				case escaped:
					escaped = false
				case c == '\\':
					escaped = true
				case c == '"':
					inString = false
				}
				continue
			}
			switch c {
			case '"':
				inString = true
			case '{':
				depth++
			case '}':
				depth--
				if depth == 0 {
					return s[start : i+1], true
				}
			}
		}
		next := strings.IndexByte(s[start+1:], '{')
		if next < 0 {
			break
		}
		start += next + 1
	}
	return "", false
}

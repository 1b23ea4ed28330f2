// Package llmtext parses free-form LLM answers that may or may not be JSON.
// An ordered list of extraction strategies is tried: direct JSON, markdown-
// fenced JSON, then plain text.
package llmtext

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var fencedJSONRe = regexp.MustCompile("(?s)```(?:json)?\\s*(\\{.*?\\})\\s*```")

// ParseObject attempts to read a JSON object from raw text: first the whole
// trimmed text, then the first markdown-fenced block, then the first
// brace-delimited span.
func ParseObject(raw string) (map[string]any, bool) {
	trimmed := strings.TrimSpace(raw)

	var obj map[string]any
	if err := json.Unmarshal([]byte(trimmed), &obj); err == nil {
		return obj, true
	}

	if m := fencedJSONRe.FindStringSubmatch(trimmed); m != nil {
		if err := json.Unmarshal([]byte(m[1]), &obj); err == nil {
			return obj, true
		}
	}

	// Last resort: widest brace-delimited span.
	if start := strings.Index(trimmed, "{"); start >= 0 {
		if end := strings.LastIndex(trimmed, "}"); end > start {
			if err := json.Unmarshal([]byte(trimmed[start:end+1]), &obj); err == nil {
				return obj, true
			}
		}
	}

	return nil, false
}

// Field returns the first of keys found in the parsed object form of raw,
// stringified; when no object parses or no key is present, the trimmed raw
// text is returned instead.
func Field(raw string, keys ...string) string {
	obj, ok := ParseObject(raw)
	if !ok {
		return strings.TrimSpace(raw)
	}
	for _, key := range keys {
		if v, present := obj[key]; present {
			if s := stringify(v); s != "" {
				return s
			}
		}
	}
	return strings.TrimSpace(raw)
}

// BoolField returns the boolean at the first of keys found in the parsed
// object form of raw. ok is false when no object parses or no key holds a
// usable boolean.
func BoolField(raw string, keys ...string) (value, ok bool) {
	obj, parsed := ParseObject(raw)
	if !parsed {
		return false, false
	}
	for _, key := range keys {
		switch v := obj[key].(type) {
		case bool:
			return v, true
		case string:
			if b, err := strconv.ParseBool(strings.ToLower(strings.TrimSpace(v))); err == nil {
				return b, true
			}
		}
	}
	return false, false
}

func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case float64:
		// JSON numbers arrive as float64; render integers without decimals.
		if t == float64(int64(t)) {
			return strconv.FormatInt(int64(t), 10)
		}
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		if t {
			return "true"
		}
		return "false"
	default:
		return strings.TrimSpace(fmt.Sprintf("%v", t))
	}
}

package tool

import (
	"encoding/json"
	"fmt"
	"strings"
)

// maxSuggestionDistance bounds the edit distance for "did you mean"
// suggestions.
const maxSuggestionDistance = 2

// nearestKeys returns registered tool keys similar to name: substring
// containment in either direction, or Levenshtein distance within
// maxSuggestionDistance. Registration order is preserved.
func nearestKeys(name string, keys []string) []string {
	var matches []string
	lower := strings.ToLower(name)
	for _, key := range keys {
		lowerKey := strings.ToLower(key)
		if strings.Contains(lowerKey, lower) || strings.Contains(lower, lowerKey) {
			matches = append(matches, key)
			continue
		}
		if levenshtein(lower, lowerKey) <= maxSuggestionDistance {
			matches = append(matches, key)
		}
	}
	return matches
}

// levenshtein computes the edit distance between two strings using the
// two-row dynamic programming formulation.
func levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}
	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min3(curr[j-1]+1, prev[j]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}

// usageExample renders a corrected-call example for a tool, filling the
// schema's required properties with placeholder values.
func usageExample(t Tool) string {
	args := map[string]any{}
	schema := t.InputSchema()
	if schema != nil {
		props, _ := schema["properties"].(map[string]any)
		for _, name := range requiredProps(schema) {
			placeholder := "..."
			if prop, ok := props[name].(map[string]any); ok {
				if typ, _ := prop["type"].(string); typ != "" {
					placeholder = "<" + typ + ">"
				}
			}
			args[name] = placeholder
		}
	}
	raw, _ := json.Marshal(args)
	return fmt.Sprintf(`{"name": %q, "arguments": %q}`, t.Key(), string(raw))
}

// requiredProps extracts the required property names from a schema,
// tolerating both []string and JSON-decoded []any shapes.
func requiredProps(schema map[string]any) []string {
	switch req := schema["required"].(type) {
	case []string:
		return req
	case []any:
		out := make([]string, 0, len(req))
		for _, r := range req {
			if s, ok := r.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

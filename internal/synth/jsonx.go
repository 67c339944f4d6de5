package synth

import "strings"

// extractJSON pulls a JSON document out of a model response that may wrap it
// in markdown fences or surrounding prose. Returns the raw text unchanged
// when no braces are found; the caller's decoder reports the violation.
func extractJSON(response string) string {
	s := strings.TrimSpace(response)

	// Strip a ```json ... ``` fence if present.
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		if i := strings.LastIndex(s, "```"); i >= 0 {
			s = s[:i]
		}
		s = strings.TrimSpace(s)
	}

	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end < start {
		return s
	}
	return s[start : end+1]
}

package llm

import (
	"encoding/json"
	"fmt"
	"strings"
)

// StripCodeFence removes a surrounding markdown code fence, if any.
func StripCodeFence(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	lines := strings.Split(text, "\n")
	endIdx := len(lines)
	for i := len(lines) - 1; i > 0; i-- {
		if strings.TrimSpace(lines[i]) == "```" {
			endIdx = i
			break
		}
	}
	if endIdx <= 1 {
		return ""
	}
	return strings.TrimSpace(strings.Join(lines[1:endIdx], "\n"))
}

// DecodeJSON parses an LLM response into v, tolerating markdown fences.
func DecodeJSON(text string, v any) error {
	text = StripCodeFence(text)
	if text == "" {
		return fmt.Errorf("empty response")
	}
	if err := json.Unmarshal([]byte(text), v); err != nil {
		return fmt.Errorf("response is not valid JSON: %w", err)
	}
	return nil
}

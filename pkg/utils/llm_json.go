package utils

import (
	"encoding/json"
	"fmt"
	"strings"
)

// StripFences removes a surrounding markdown code fence from a model reply.
func StripFences(response string) string {
	response = strings.TrimSpace(response)
	response = strings.TrimPrefix(response, "```json")
	response = strings.TrimPrefix(response, "```")
	response = strings.TrimSuffix(response, "```")
	return strings.TrimSpace(response)
}

// ExtractJSON isolates the outermost JSON object in a model reply.
func ExtractJSON(response string) string {
	response = StripFences(response)
	startIdx := strings.Index(response, "{")
	endIdx := strings.LastIndex(response, "}")

	if startIdx == -1 || endIdx == -1 || endIdx <= startIdx {
		return response
	}

	return response[startIdx : endIdx+1]
}

// DecodeJSON parses the JSON object embedded in a model reply into T.
func DecodeJSON[T any](response string) (T, error) {
	var out T
	content := ExtractJSON(response)
	if err := json.Unmarshal([]byte(content), &out); err != nil {
		return out, fmt.Errorf("json unmarshal failed: %w", err)
	}
	return out, nil
}

// Truncate shortens s to maxLen bytes for log lines.
func Truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

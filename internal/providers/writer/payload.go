package writer

import (
	"encoding/json"
	"errors"
	"strings"
)

type articlePayload struct {
	Title   string `json:"title"`
	Content string `json:"content"`
	Body    string `json:"body"`
}

// parseArticle extracts {title, content} from model output. When the output is
// not the expected JSON shape the raw text is returned as content with
// structured=false so nothing the provider billed for is thrown away.
func parseArticle(raw string) (title, content string, structured bool) {
	parsed, err := parseModelPayload[articlePayload](raw)
	if err == nil {
		body := coalesce(parsed.Content, parsed.Body)
		if body != "" {
			return strings.TrimSpace(parsed.Title), body, true
		}
	}
	return guessTitle(raw), strings.TrimSpace(raw), false
}

// guessTitle picks a markdown heading or the first short line of free text.
func guessTitle(raw string) string {
	for _, line := range strings.Split(trimCodeFence(raw), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "#") {
			return strings.TrimSpace(strings.TrimLeft(line, "#"))
		}
		if len([]rune(line)) <= 120 && !strings.ContainsAny(line, "{}") {
			return line
		}
		return ""
	}
	return ""
}

func parseModelPayload[T any](raw string) (T, error) {
	var zero T
	cleaned := extractJSONFragment(raw)
	if cleaned == "" {
		return zero, errors.New("empty payload")
	}
	var decoded T
	if err := json.Unmarshal([]byte(cleaned), &decoded); err != nil {
		return zero, err
	}
	return decoded, nil
}

func extractJSONFragment(raw string) string {
	text := trimCodeFence(strings.TrimSpace(raw))
	if text == "" {
		return ""
	}
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end < start {
		return ""
	}
	return strings.TrimSpace(text[start : end+1])
}

func trimCodeFence(text string) string {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```JSON")
	trimmed = strings.TrimPrefix(trimmed, "```")
	if idx := strings.LastIndex(trimmed, "```"); idx >= 0 {
		trimmed = trimmed[:idx]
	}
	return strings.TrimSpace(trimmed)
}

func coalesce(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

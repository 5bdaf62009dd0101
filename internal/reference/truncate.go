package reference

import (
	"strings"
	"unicode"
)

// Truncate cuts raw to at most maxLen runes, preferring to end on a sentence
// boundary. The cut never lands before minLen runes; when no boundary exists
// in [minLen, maxLen] the text is cut at maxLen.
func Truncate(raw string, maxLen, minLen int) string {
	text := strings.TrimSpace(raw)
	runes := []rune(text)
	if maxLen <= 0 || len(runes) <= maxLen {
		return text
	}
	if minLen < 0 {
		minLen = 0
	}
	if minLen > maxLen {
		minLen = maxLen
	}
	cut := maxLen
	for i := maxLen - 1; i >= minLen && i > 0; i-- {
		if isSentenceEnd(runes, i) {
			cut = i + 1
			break
		}
	}
	return strings.TrimRightFunc(string(runes[:cut]), unicode.IsSpace)
}

// isSentenceEnd reports whether runes[i] terminates a sentence, meaning it is
// terminal punctuation followed by whitespace or a line break.
func isSentenceEnd(runes []rune, i int) bool {
	switch runes[i] {
	case '\n':
		return true
	case '.', '!', '?', '。', '！', '？':
		return i+1 >= len(runes) || unicode.IsSpace(runes[i+1])
	default:
		return false
	}
}

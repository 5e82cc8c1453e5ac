package pipeline

import (
	"strings"
	"unicode"
)

// SplitSentences breaks text at whitespace runs that follow a sentence
// terminator (. ? !). Segments are trimmed and empty ones dropped, so
// the result never contains blank sentences.
func SplitSentences(text string) []string {
	var sentences []string
	runes := []rune(text)
	start := 0

	for i := 0; i < len(runes); i++ {
		if !unicode.IsSpace(runes[i]) || i == 0 || !isTerminator(runes[i-1]) {
			continue
		}
		if seg := strings.TrimSpace(string(runes[start:i])); seg != "" {
			sentences = append(sentences, seg)
		}
		for i < len(runes) && unicode.IsSpace(runes[i]) {
			i++
		}
		start = i
	}
	if seg := strings.TrimSpace(string(runes[start:])); seg != "" {
		sentences = append(sentences, seg)
	}
	return sentences
}

func isTerminator(r rune) bool {
	return r == '.' || r == '?' || r == '!'
}

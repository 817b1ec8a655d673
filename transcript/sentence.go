// Package transcript turns streamed speech recognition results into an
// append-only transcript: speaker segments, the latest spoken sentence, and
// the single live partial line.
package transcript

import (
	"regexp"
	"strings"
)

// regexSentence matches a run of text closed by one or more terminators.
var regexSentence = regexp.MustCompile(`[^.!?]+[.!?]+`)

// LatestSentence returns the last complete sentence in text.
// Without a terminator the whole trimmed text is returned.
// ok is false when text is empty or only whitespace.
func LatestSentence(text string) (sentence string, ok bool) {
	matches := regexSentence.FindAllString(text, -1)
	if len(matches) > 0 {
		return strings.TrimSpace(matches[len(matches)-1]), true
	}

	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return "", false
	}
	return trimmed, true
}

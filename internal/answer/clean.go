package answer

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

var codeBlockRe = regexp.MustCompile("(?s)^```[a-zA-Z]*\\s*(.*?)\\s*```$")

var answerPrefixRe = regexp.MustCompile(`(?i)^\**answer\**\s*:\**\s*`)

var notFoundRe = regexp.MustCompile(`(?i)^(not\s+found|no\s+answer(\s+found)?)\b`)

var refusalRe = regexp.MustCompile(
	`(?i)(i\s+(cannot|can't|could\s+not|couldn't|was\s+unable\s+to|am\s+unable\s+to)\s+(find|locate|determine)|` +
		`(document|excerpts?|text|context)\s+(does|do)\s+not\s+(contain|mention|specify|provide|include|state)|` +
		`not\s+(mentioned|specified|provided|stated|included)\s+in\s+the\s+(document|excerpts?|text|context)|` +
		`no\s+information\s+(is\s+)?(available|provided|given)?\s*(about|on|regarding))`,
)

// Clean normalizes a raw model reply: code fences and an "Answer:" label are
// removed, whitespace is collapsed and the result is capped at maxRunes.
func Clean(s string, maxRunes int) string {
	s = strings.TrimSpace(s)
	if m := codeBlockRe.FindStringSubmatch(s); len(m) > 1 {
		s = m[1]
	}
	s = answerPrefixRe.ReplaceAllString(strings.TrimSpace(s), "")
	s = strings.Join(strings.Fields(s), " ")
	if len(s) >= 2 && strings.HasPrefix(s, `"`) && strings.HasSuffix(s, `"`) {
		s = strings.TrimSpace(s[1 : len(s)-1])
	}
	return truncateRunes(s, maxRunes)
}

// IsNoAnswer reports whether a cleaned reply says the document has no answer.
func IsNoAnswer(s string) bool {
	if s == "" {
		return true
	}
	if notFoundRe.MatchString(s) {
		return true
	}
	return refusalRe.MatchString(s)
}

func truncateRunes(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	if n <= 3 {
		return string(runes[:n])
	}
	return string(runes[:n-3]) + "..."
}

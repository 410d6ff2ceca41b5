// Package textutil provides the lexical helpers the chat engine uses to turn loose
// free text into typed fragments: normalized comparison strings, clock times, weekday
// sets, dates, priorities, categories, yes/no answers and free-form names.
//
// Every function is pure and never returns an error; "not found" is reported through
// a boolean or an empty result.
package textutil

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

// NormalizeText lowercases s, drops every character that is not a letter, digit,
// colon or space, and collapses runs of whitespace.
func NormalizeText(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.ToLower(s) {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r), r == ':':
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// ContainsWord reports whether phrase occurs in the normalized text on word boundaries.
// Both arguments are expected to be normalized already.
func ContainsWord(normalized, phrase string) bool {
	if phrase == "" {
		return false
	}
	return strings.Contains(" "+normalized+" ", " "+phrase+" ")
}

// RemovePhrase removes every word-bounded occurrence of phrase from the normalized text.
func RemovePhrase(normalized, phrase string) string {
	if phrase == "" {
		return normalized
	}
	padded := " " + normalized + " "
	needle := " " + phrase + " "
	for strings.Contains(padded, needle) {
		padded = strings.ReplaceAll(padded, needle, " ")
	}
	return strings.Join(strings.Fields(padded), " ")
}

// RemoveFold removes the first case-insensitive occurrence of sub from s.
func RemoveFold(s, sub string) string {
	if sub == "" {
		return s
	}
	lower := strings.ToLower(s)
	idx := strings.Index(lower, strings.ToLower(sub))
	if idx < 0 {
		return s
	}
	if len(lower) != len(s) {
		// Case mapping changed byte widths; work on the lowered copy.
		return strings.TrimSpace(lower[:idx] + " " + lower[idx+len(sub):])
	}
	return strings.TrimSpace(s[:idx] + " " + s[idx+len(sub):])
}

// TitleCase upper-cases the first letter of every whitespace separated word.
func TitleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		runes := []rune(w)
		runes[0] = unicode.ToUpper(runes[0])
		words[i] = string(runes)
	}
	return strings.Join(words, " ")
}

var (
	intPattern    = regexp.MustCompile(`-?\d+`)
	numberPattern = regexp.MustCompile(`-?\d+(?:\.\d+)?`)
	listSplitter  = regexp.MustCompile(`(?i)\s*(?:,|;|\n|\band then\b|\bthen\b|\band\b)\s*`)
)

// FirstInt returns the first integer found in s.
func FirstInt(s string) (int, bool) {
	m := intPattern.FindString(s)
	if m == "" {
		return 0, false
	}
	n, err := strconv.Atoi(m)
	if err != nil {
		return 0, false
	}
	return n, true
}

// AllInts returns every integer found in s, in order.
func AllInts(s string) []int {
	var out []int
	for _, m := range intPattern.FindAllString(s, -1) {
		if n, err := strconv.Atoi(m); err == nil {
			out = append(out, n)
		}
	}
	return out
}

// FirstNumber returns the first decimal number found in s.
func FirstNumber(s string) (float64, bool) {
	m := numberPattern.FindString(s)
	if m == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// SplitList splits a comma, semicolon, newline or "and" separated list into trimmed items.
func SplitList(s string) []string {
	parts := listSplitter.Split(s, -1)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// ExtractPriority maps urgency words to high, medium or low.
func ExtractPriority(s string) (string, bool) {
	n := NormalizeText(s)
	switch {
	case ContainsWord(n, "urgent"), ContainsWord(n, "high"), ContainsWord(n, "asap"):
		return "high", true
	case ContainsWord(n, "low"):
		return "low", true
	case ContainsWord(n, "medium"), ContainsWord(n, "normal"):
		return "medium", true
	default:
		return "", false
	}
}

var categoryTable = []struct {
	keywords []string
	category string
}{
	{[]string{"health", "healthy", "fitness", "exercise"}, "health"},
	{[]string{"wellness", "mindful", "mindfulness", "meditation"}, "mindfulness"},
	{[]string{"learning", "learn", "study", "studying"}, "learning"},
	{[]string{"personal", "growth"}, "work"},
	{[]string{"social"}, "social"},
	{[]string{"work"}, "work"},
}

// ExtractCategory maps domain words to a fixed category. The first table row with a
// matching keyword wins.
func ExtractCategory(s string) (string, bool) {
	n := NormalizeText(s)
	for _, row := range categoryTable {
		for _, kw := range row.keywords {
			if ContainsWord(n, kw) {
				return row.category, true
			}
		}
	}
	return "", false
}

var (
	affirmativeWords = []string{"yes", "yeah", "yep", "yup", "sure", "ok", "okay", "confirm", "confirmed", "do it", "go ahead", "correct", "y"}
	negativeWords    = []string{"no", "nope", "nah", "cancel", "stop", "dont", "never mind", "nevermind", "n"}
)

// ParseYesNo classifies an answer as affirmative or negative. ok is false when the
// answer is ambiguous.
func ParseYesNo(s string) (answer bool, ok bool) {
	n := NormalizeText(s)
	if n == "" {
		return false, false
	}
	for _, w := range affirmativeWords {
		if ContainsWord(n, w) {
			return true, true
		}
	}
	for _, w := range negativeWords {
		if ContainsWord(n, w) {
			return false, true
		}
	}
	return false, false
}
